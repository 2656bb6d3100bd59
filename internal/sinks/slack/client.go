// Package slack implements the team-chat notification sink using a Slack
// incoming webhook.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"callops_backend/internal/outcome"
	"callops_backend/internal/sinks"
	"callops_backend/platform/apperr"
	"callops_backend/platform/logger"
)

// Config is the subset of application config the Slack sink needs.
type Config interface {
	GetSlackWebhookURL() string
	IsSlackEnabled() bool
}

// Client posts call-outcome notifications to a Slack incoming webhook.
type Client struct {
	httpClient *http.Client
	webhookURL string
	enabled    bool
	log        *logger.Logger
}

// New creates a new Slack sink. An unconfigured sink fails closed: Send
// reports an unavailable error instead of panicking.
func New(cfg Config, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		webhookURL: cfg.GetSlackWebhookURL(),
		enabled:    cfg.IsSlackEnabled(),
		log:        log,
	}
}

type webhookPayload struct {
	Attachments []attachment `json:"attachments"`
}

type attachment struct {
	Color  string  `json:"color"`
	Title  string  `json:"title"`
	Text   string  `json:"text,omitempty"`
	Fields []field `json:"fields"`
}

type field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Send posts one notification message. Returns an error on any non-2xx
// response; the caller records the result either way.
func (c *Client) Send(ctx context.Context, msg sinks.NotificationMessage) error {
	if !c.enabled {
		return apperr.Unavailable("slack webhook not configured")
	}

	payload := webhookPayload{
		Attachments: []attachment{{
			Color: colorFor(msg.Outcome),
			Title: fmt.Sprintf("Call %s — %s", msg.Outcome.Label(), msg.CustomerPhone),
			Text:  msg.Summary,
			Fields: []field{
				{Title: "Outcome", Value: msg.Outcome.Label(), Short: true},
				{Title: "Duration", Value: formatDuration(msg.DurationSeconds), Short: true},
				{Title: "Ended Reason", Value: defaultString(msg.EndedReason, "unknown"), Short: true},
			},
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("slack send: status %d", resp.StatusCode)
	}
	return nil
}

func colorFor(o outcome.Outcome) string {
	switch o {
	case outcome.Booked:
		return "#2eb886"
	case outcome.Interested:
		return "#36a64f"
	case outcome.NeedsReview:
		return "#daa038"
	case outcome.NoAnswer, outcome.Voicemail:
		return "#999999"
	default:
		return "#a30200"
	}
}

func formatDuration(seconds int) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
