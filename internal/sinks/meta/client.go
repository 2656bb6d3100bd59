// Package meta implements the ad-platform conversion sink using the Meta
// Conversions API. Call outcomes are reported as offline lead events keyed by
// hashed customer identifiers, optionally tied back to the originating Lead
// Ads lead.
package meta

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"callops_backend/internal/sinks"
	"callops_backend/platform/apperr"
	"callops_backend/platform/logger"
	"callops_backend/platform/phone"
)

const defaultGraphURL = "https://graph.facebook.com"

// leadIDPattern is the strict numeric shape of a Lead Ads lead id. Anything
// else is omitted from the payload rather than sent malformed.
var leadIDPattern = regexp.MustCompile(`^\d{15,17}$`)

// Config is the subset of application config the Meta sink needs.
type Config interface {
	GetMetaGraphVersion() string
	GetMetaPixelID() string
	GetMetaAccessToken() string
	IsMetaEnabled() bool
}

// Client sends conversion events to the Meta Conversions API.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	graphVersion string
	pixelID      string
	accessToken  string
	enabled      bool
	log          *logger.Logger
}

// New creates a new Conversions API client. An unconfigured client fails
// closed: SendLead reports an unavailable error instead of panicking.
func New(cfg Config, log *logger.Logger) *Client {
	return &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		baseURL:      defaultGraphURL,
		graphVersion: cfg.GetMetaGraphVersion(),
		pixelID:      cfg.GetMetaPixelID(),
		accessToken:  cfg.GetMetaAccessToken(),
		enabled:      cfg.IsMetaEnabled(),
		log:          log,
	}
}

// ValidLeadID reports whether the value matches the strict Lead Ads id shape.
func ValidLeadID(id string) bool {
	return leadIDPattern.MatchString(id)
}

type eventPayload struct {
	Data []conversionEvent `json:"data"`
}

type conversionEvent struct {
	EventName    string         `json:"event_name"`
	EventTime    int64          `json:"event_time"`
	ActionSource string         `json:"action_source"`
	UserData     userData       `json:"user_data"`
	CustomData   map[string]any `json:"custom_data,omitempty"`
}

type userData struct {
	Phones []string `json:"ph,omitempty"`
	Emails []string `json:"em,omitempty"`
	LeadID string   `json:"lead_id,omitempty"`
}

// SendLead reports one call outcome as an offline conversion event.
func (c *Client) SendLead(ctx context.Context, ev sinks.ConversionEvent) error {
	if !c.enabled {
		return apperr.Unavailable("meta conversions api not configured")
	}

	ud := userData{}
	if phone.IsKnown(ev.Phone) {
		ud.Phones = []string{hashIdentifier(phone.NormalizeE164(ev.Phone))}
	}
	if ev.Email != "" {
		ud.Emails = []string{hashIdentifier(ev.Email)}
	}
	if ValidLeadID(ev.LeadID) {
		ud.LeadID = ev.LeadID
	} else if ev.LeadID != "" {
		c.log.Debug("meta lead id omitted, unexpected format", "leadId", ev.LeadID)
	}

	payload := eventPayload{
		Data: []conversionEvent{{
			EventName:    "Lead",
			EventTime:    time.Now().Unix(),
			ActionSource: "system_generated",
			UserData:     ud,
			CustomData: map[string]any{
				"event_source": "crm",
				"call_outcome": ev.Outcome.String(),
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("meta marshal: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s/%s/events?access_token=%s",
		c.baseURL, c.graphVersion, c.pixelID, c.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("meta request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("meta send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("meta send: status %d", resp.StatusCode)
	}
	return nil
}

// hashIdentifier applies the Conversions API normalization: lower-case,
// trimmed, sha256 hex.
func hashIdentifier(v string) string {
	normalized := strings.ToLower(strings.TrimSpace(v))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
