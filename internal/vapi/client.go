// Package vapi provides the HTTP client for the Vapi voice-AI provider API.
// It is used by the reconciliation importer to list historical calls; live
// traffic arrives through the end-of-call webhook instead.
package vapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"callops_backend/platform/apperr"
	"callops_backend/platform/logger"
)

const defaultBaseURL = "https://api.vapi.ai"

// pageSize is the provider's maximum page size for call listings.
const pageSize = 100

// Config is the subset of application config the Vapi client needs.
type Config interface {
	GetVapiBaseURL() string
	GetVapiAPIKey() string
	IsVapiEnabled() bool
}

// Client is the HTTP client for the Vapi API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	enabled    bool
	log        *logger.Logger
}

// New creates a new Vapi API client.
func New(cfg Config, log *logger.Logger) *Client {
	baseURL := cfg.GetVapiBaseURL()
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		apiKey:     cfg.GetVapiAPIKey(),
		enabled:    cfg.IsVapiEnabled(),
		log:        log,
	}
}

// ProviderCall is one completed call as reported by the provider's listing
// endpoint, reduced to the fields the pipeline consumes.
type ProviderCall struct {
	ID              string
	CustomerPhone   string
	EndedReason     string
	Transcript      string
	Summary         string
	DurationSeconds int
	RecordingURL    string
	CreatedAt       time.Time
}

type apiCall struct {
	ID       string `json:"id"`
	Customer struct {
		Number string `json:"number"`
	} `json:"customer"`
	EndedReason string `json:"endedReason"`
	Transcript  string `json:"transcript"`
	Analysis    struct {
		Summary string `json:"summary"`
	} `json:"analysis"`
	StartedAt    *time.Time `json:"startedAt"`
	EndedAt      *time.Time `json:"endedAt"`
	RecordingURL string     `json:"recordingUrl"`
	CreatedAt    time.Time  `json:"createdAt"`
}

func (a apiCall) toProviderCall() ProviderCall {
	duration := 0
	if a.StartedAt != nil && a.EndedAt != nil {
		duration = int(a.EndedAt.Sub(*a.StartedAt).Seconds())
		if duration < 0 {
			duration = 0
		}
	}
	return ProviderCall{
		ID:              a.ID,
		CustomerPhone:   a.Customer.Number,
		EndedReason:     a.EndedReason,
		Transcript:      a.Transcript,
		Summary:         a.Analysis.Summary,
		DurationSeconds: duration,
		RecordingURL:    a.RecordingURL,
		CreatedAt:       a.CreatedAt,
	}
}

// ListCalls fetches all calls created after the given time, following the
// provider's createdAtLt cursor until the window is exhausted. Pages are
// returned newest first; the combined result keeps that order.
func (c *Client) ListCalls(ctx context.Context, since time.Time) ([]ProviderCall, error) {
	if !c.enabled {
		return nil, apperr.Unavailable("vapi api not configured")
	}

	var all []ProviderCall
	cursor := time.Time{}

	for {
		page, err := c.listPage(ctx, since, cursor)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, call := range page {
			all = append(all, call.toProviderCall())
		}

		if len(page) < pageSize {
			break
		}
		cursor = page[len(page)-1].CreatedAt
	}

	c.log.Debug("vapi calls listed", "since", since, "count", len(all))
	return all, nil
}

func (c *Client) listPage(ctx context.Context, since, before time.Time) ([]apiCall, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", pageSize))
	params.Set("createdAtGt", since.UTC().Format(time.RFC3339))
	if !before.IsZero() {
		params.Set("createdAtLt", before.UTC().Format(time.RFC3339))
	}

	reqURL := fmt.Sprintf("%s/call?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("vapi request failed", "error", err)
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, fmt.Errorf("unauthorized: invalid API key")
	default:
		c.log.Error("vapi upstream error", "status", resp.StatusCode)
		return nil, fmt.Errorf("upstream error: status %d", resp.StatusCode)
	}

	var page []apiCall
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return page, nil
}
