package attio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"callops_backend/internal/outcome"
	"callops_backend/internal/sinks"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

func newTestClient(serverURL string) *Client {
	c := New(&config.Config{AttioAPIKey: "test-key"}, logger.New("development"))
	c.baseURL = serverURL
	return c
}

func TestUpdateRecordDegradesFieldSet(t *testing.T) {
	var attempts []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Fatalf("unexpected method %s", r.Method)
		}
		var body struct {
			Data struct {
				Values map[string]any `json:"values"`
			} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		attempts = append(attempts, body.Data.Values)
		// Reject anything carrying the recording url field, as a workspace
		// without that custom attribute would.
		if _, ok := body.Data.Values["call_recording_url"]; ok {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.UpdateRecord(context.Background(), "rec-1", sinks.CRMUpdate{
		Outcome:      outcome.Booked,
		Summary:      "Appointment booked.",
		RecordingURL: "https://example.com/rec.wav",
	})
	if err != nil {
		t.Fatalf("UpdateRecord returned error: %v", err)
	}
	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}
	if _, ok := attempts[0]["call_recording_url"]; !ok {
		t.Fatal("first attempt should carry the full field set")
	}
	if _, ok := attempts[1]["call_recording_url"]; ok {
		t.Fatal("second attempt should have dropped the recording url")
	}
	if attempts[1]["call_outcome"] != "booked" {
		t.Fatalf("outcome missing from reduced attempt: %v", attempts[1])
	}
}

func TestUpdateRecordAllAttemptsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.UpdateRecord(context.Background(), "rec-1", sinks.CRMUpdate{Outcome: outcome.Interested})
	if err == nil {
		t.Fatal("expected error when every attempt fails")
	}
}

func TestUpdateRecordRequiresRecordID(t *testing.T) {
	client := newTestClient("http://unused")
	if err := client.UpdateRecord(context.Background(), "", sinks.CRMUpdate{Outcome: outcome.Booked}); err == nil {
		t.Fatal("expected validation error for empty record id")
	}
}

func TestFindByPhoneNormalizesAndReturnsFirst(t *testing.T) {
	var gotFilter map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/records/query") {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			Filter map[string]any `json:"filter"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		gotFilter = body.Filter
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": map[string]any{"record_id": "rec-first"}},
				{"id": map[string]any{"record_id": "rec-second"}},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id := client.FindByPhone(context.Background(), "(555) 123-4567")
	if id != "rec-first" {
		t.Fatalf("expected first match, got %q", id)
	}
	if gotFilter["phone_numbers"] != "+15551234567" {
		t.Fatalf("phone should be normalized to E.164, got %v", gotFilter["phone_numbers"])
	}
}

func TestFindByPhoneSkipsUnknownNumber(t *testing.T) {
	client := newTestClient("http://unused")
	for _, input := range []string{"", "Unknown", "unknown"} {
		if id := client.FindByPhone(context.Background(), input); id != "" {
			t.Fatalf("expected no lookup for %q, got %q", input, id)
		}
	}
}

func TestLookupErrorTreatedAsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if id := client.FindByEmail(context.Background(), "a@example.com"); id != "" {
		t.Fatalf("lookup error should report not found, got %q", id)
	}
}

func TestCreatePersonReturnsRecordID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		var body struct {
			Data struct {
				Values map[string]any `json:"values"`
			} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Data.Values["name"] != "Jane Doe" {
			t.Fatalf("unexpected values: %v", body.Data.Values)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"id": map[string]any{"record_id": "rec-new"}},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	id, err := client.CreatePerson(context.Background(), "Jane Doe", "jane@example.com", "+15551234567")
	if err != nil {
		t.Fatalf("CreatePerson returned error: %v", err)
	}
	if id != "rec-new" {
		t.Fatalf("expected rec-new, got %q", id)
	}
}

func TestCreatePersonRequiresSomeIdentity(t *testing.T) {
	client := newTestClient("http://unused")
	if _, err := client.CreatePerson(context.Background(), "", "", "unknown"); err == nil {
		t.Fatal("expected validation error when no usable identity fields")
	}
}

func TestDisabledClientFailsClosed(t *testing.T) {
	client := New(&config.Config{}, logger.New("development"))
	if err := client.UpdateRecord(context.Background(), "rec-1", sinks.CRMUpdate{Outcome: outcome.Booked}); err == nil {
		t.Fatal("expected error from unconfigured client")
	}
	if id := client.FindByPhone(context.Background(), "+15551234567"); id != "" {
		t.Fatalf("unconfigured lookup should report not found, got %q", id)
	}
}
