package vapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

func TestListCallsMapsFields(t *testing.T) {
	started := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	ended := started.Add(95 * time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Fatalf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		if r.URL.Query().Get("createdAtGt") == "" {
			t.Fatal("createdAtGt missing from query")
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"id":           "call-1",
			"customer":     map[string]any{"number": "+15551234567"},
			"endedReason":  "customer-ended-call",
			"transcript":   "Sounds good, book me in.",
			"analysis":     map[string]any{"summary": "Customer booked an appointment."},
			"startedAt":    started.Format(time.RFC3339),
			"endedAt":      ended.Format(time.RFC3339),
			"recordingUrl": "https://example.com/rec.wav",
			"createdAt":    ended.Format(time.RFC3339),
		}})
	}))
	defer server.Close()

	client := New(&config.Config{VapiBaseURL: server.URL, VapiAPIKey: "test-key"}, logger.New("development"))
	calls, err := client.ListCalls(context.Background(), started.Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListCalls returned error: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}

	call := calls[0]
	if call.ID != "call-1" {
		t.Fatalf("unexpected id %q", call.ID)
	}
	if call.CustomerPhone != "+15551234567" {
		t.Fatalf("unexpected phone %q", call.CustomerPhone)
	}
	if call.DurationSeconds != 95 {
		t.Fatalf("expected duration 95, got %d", call.DurationSeconds)
	}
	if call.Summary != "Customer booked an appointment." {
		t.Fatalf("unexpected summary %q", call.Summary)
	}
}

func TestListCallsFollowsCursor(t *testing.T) {
	var requests []string
	base := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Query().Get("createdAtLt"))
		if len(requests) > 1 {
			_ = json.NewEncoder(w).Encode([]map[string]any{})
			return
		}
		page := make([]map[string]any, pageSize)
		for i := range page {
			page[i] = map[string]any{
				"id":        "call",
				"createdAt": base.Add(-time.Duration(i) * time.Minute).Format(time.RFC3339),
			}
		}
		_ = json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	client := New(&config.Config{VapiBaseURL: server.URL, VapiAPIKey: "test-key"}, logger.New("development"))
	calls, err := client.ListCalls(context.Background(), base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("ListCalls returned error: %v", err)
	}
	if len(calls) != pageSize {
		t.Fatalf("expected %d calls, got %d", pageSize, len(calls))
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 page requests, got %d", len(requests))
	}
	if requests[0] != "" {
		t.Fatalf("first page should have no cursor, got %q", requests[0])
	}
	if requests[1] == "" {
		t.Fatal("second page should carry the createdAtLt cursor")
	}
}

func TestListCallsFailsClosedWhenUnconfigured(t *testing.T) {
	client := New(&config.Config{}, logger.New("development"))
	if _, err := client.ListCalls(context.Background(), time.Now().Add(-time.Hour)); err == nil {
		t.Fatal("expected error from unconfigured client")
	}
}

func TestDurationNeverNegative(t *testing.T) {
	started := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	earlier := started.Add(-time.Minute)
	call := apiCall{StartedAt: &started, EndedAt: &earlier}
	if got := call.toProviderCall().DurationSeconds; got != 0 {
		t.Fatalf("expected clamped duration 0, got %d", got)
	}
}
