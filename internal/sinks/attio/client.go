// Package attio implements the CRM sink against the Attio API: record
// updates, person lookup by phone or email, and person creation.
package attio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"callops_backend/internal/sinks"
	"callops_backend/platform/apperr"
	"callops_backend/platform/logger"
	"callops_backend/platform/phone"
)

const defaultBaseURL = "https://api.attio.com/v2"

// Config is the subset of application config the Attio sink needs.
type Config interface {
	GetAttioAPIKey() string
	GetAttioObjectSlug() string
	IsAttioEnabled() bool
}

// Client talks to the Attio API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	object     string
	enabled    bool
	log        *logger.Logger
}

// New creates a new Attio client. An unconfigured client fails closed:
// writes report an unavailable error, lookups report not found.
func New(cfg Config, log *logger.Logger) *Client {
	object := cfg.GetAttioObjectSlug()
	if object == "" {
		object = "people"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     cfg.GetAttioAPIKey(),
		object:     object,
		enabled:    cfg.IsAttioEnabled(),
		log:        log,
	}
}

// attemptSpec is one entry in the degrading update sequence: a fixed set of
// attribute values tried as a whole. Specs are tried in order until one
// succeeds, so a workspace missing optional custom attributes still gets the
// core outcome written.
type attemptSpec struct {
	name   string
	values map[string]any
}

func updateAttempts(in sinks.CRMUpdate) []attemptSpec {
	specs := []attemptSpec{}

	full := map[string]any{"call_outcome": in.Outcome.String()}
	if in.Summary != "" {
		full["call_summary"] = in.Summary
	}
	if in.RecordingURL != "" {
		full["call_recording_url"] = in.RecordingURL
	}
	specs = append(specs, attemptSpec{name: "full", values: full})

	if in.Summary != "" {
		specs = append(specs, attemptSpec{
			name:   "outcome_and_summary",
			values: map[string]any{"call_outcome": in.Outcome.String(), "call_summary": in.Summary},
		})
	}

	specs = append(specs, attemptSpec{
		name:   "outcome_only",
		values: map[string]any{"call_outcome": in.Outcome.String()},
	})

	return specs
}

// UpdateRecord writes the call outcome to an existing record. It tries the
// degrading attempt sequence and succeeds as soon as any attempt succeeds.
func (c *Client) UpdateRecord(ctx context.Context, recordID string, in sinks.CRMUpdate) error {
	if !c.enabled {
		return apperr.Unavailable("attio not configured")
	}
	if recordID == "" {
		return apperr.Validation("record id required")
	}

	var lastErr error
	for _, spec := range updateAttempts(in) {
		err := c.patchRecord(ctx, recordID, spec.values)
		if err == nil {
			if spec.name != "full" {
				c.log.Info("attio update succeeded with reduced field set", "attempt", spec.name, "recordId", recordID)
			}
			return nil
		}
		lastErr = err
		c.log.Warn("attio update attempt failed", "attempt", spec.name, "recordId", recordID, "error", err)
	}
	return fmt.Errorf("attio update: all attempts failed: %w", lastErr)
}

func (c *Client) patchRecord(ctx context.Context, recordID string, values map[string]any) error {
	reqURL := fmt.Sprintf("%s/objects/%s/records/%s", c.baseURL, c.object, recordID)
	body := map[string]any{"data": map[string]any{"values": values}}

	resp, err := c.do(ctx, http.MethodPatch, reqURL, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// FindByPhone resolves a person record by phone number. The number is
// normalized to E.164 before querying. Lookup errors are swallowed and
// reported as not found: callers prefer creating a possible duplicate over
// losing the write entirely.
func (c *Client) FindByPhone(ctx context.Context, phoneNumber string) string {
	if !c.enabled || !phone.IsKnown(phoneNumber) {
		return ""
	}
	return c.queryRecordID(ctx, map[string]any{
		"phone_numbers": phone.NormalizeE164(phoneNumber),
	})
}

// FindByEmail resolves a person record by email address. Errors are treated
// as not found, as with FindByPhone.
func (c *Client) FindByEmail(ctx context.Context, email string) string {
	if !c.enabled || email == "" {
		return ""
	}
	return c.queryRecordID(ctx, map[string]any{
		"email_addresses": email,
	})
}

func (c *Client) queryRecordID(ctx context.Context, filter map[string]any) string {
	reqURL := fmt.Sprintf("%s/objects/%s/records/query", c.baseURL, c.object)
	body := map[string]any{"filter": filter, "limit": 2}

	resp, err := c.do(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		c.log.Warn("attio lookup failed, treating as not found", "error", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("attio lookup failed, treating as not found", "status", resp.StatusCode)
		_, _ = io.Copy(io.Discard, resp.Body)
		return ""
	}

	var parsed struct {
		Data []struct {
			ID struct {
				RecordID string `json:"record_id"`
			} `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.log.Warn("attio lookup decode failed, treating as not found", "error", err)
		return ""
	}
	if len(parsed.Data) == 0 {
		return ""
	}
	if len(parsed.Data) > 1 {
		// More than one candidate: the API's ordering decides. There is no
		// documented tie-break rule.
		c.log.Warn("attio lookup returned multiple matches, using first")
	}
	return parsed.Data[0].ID.RecordID
}

// CreatePerson creates a new person record with whichever of name, email and
// phone are available, and returns the new record id.
func (c *Client) CreatePerson(ctx context.Context, name, email, phoneNumber string) (string, error) {
	if !c.enabled {
		return "", apperr.Unavailable("attio not configured")
	}

	values := map[string]any{}
	if name != "" {
		values["name"] = name
	}
	if email != "" {
		values["email_addresses"] = []string{email}
	}
	if phone.IsKnown(phoneNumber) {
		values["phone_numbers"] = []string{phone.NormalizeE164(phoneNumber)}
	}
	if len(values) == 0 {
		return "", apperr.Validation("person needs at least one of name, email, phone")
	}

	reqURL := fmt.Sprintf("%s/objects/%s/records", c.baseURL, c.object)
	body := map[string]any{"data": map[string]any{"values": values}}

	resp, err := c.do(ctx, http.MethodPost, reqURL, body)
	if err != nil {
		return "", fmt.Errorf("attio create: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("attio create: status %d", resp.StatusCode)
	}

	var parsed struct {
		Data struct {
			ID struct {
				RecordID string `json:"record_id"`
			} `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("attio create decode: %w", err)
	}
	return parsed.Data.ID.RecordID, nil
}

func (c *Client) do(ctx context.Context, method, reqURL string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return c.httpClient.Do(req)
}
