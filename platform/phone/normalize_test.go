package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already e164", "+15551234567", "+15551234567"},
		{"valid national format", "(212) 555-0123", "+12125550123"},
		{"possible but unassigned exchange", "(555) 123-4567", "+15551234567"},
		{"dashes and spaces", "555 123 4567", "+15551234567"},
		{"whitespace trimmed", "  +15551234567  ", "+15551234567"},
		{"empty", "", ""},
		{"unparseable passes through", "not a number", "not a number"},
		{"impossible length passes through", "123", "123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeE164(tt.input); got != tt.want {
				t.Fatalf("NormalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsKnown(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"+15551234567", true},
		{"Unknown", false},
		{"unknown", false},
		{"  unknown  ", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsKnown(tt.input); got != tt.want {
			t.Fatalf("IsKnown(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
