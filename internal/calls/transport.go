package calls

import (
	"strings"

	"callops_backend/internal/outcome"
)

const (
	// unknownCallID is used when the provider omits the call identifier.
	unknownCallID = "unknown"
	// unknownPhone is the sentinel the provider sends for withheld numbers.
	unknownPhone = "Unknown"
)

// messageTypeEndOfCall is the only webhook message type that triggers
// processing; everything else is acknowledged and ignored.
const messageTypeEndOfCall = "end-of-call-report"

// WebhookRequest is the provider's webhook envelope, reduced to the fields
// the pipeline reads.
type WebhookRequest struct {
	Message WebhookMessage `json:"message"`
}

// WebhookMessage is the inner message of the webhook envelope.
type WebhookMessage struct {
	Type            string         `json:"type"`
	EndedReason     string         `json:"endedReason"`
	Transcript      string         `json:"transcript"`
	Summary         string         `json:"summary"`
	DurationSeconds float64        `json:"durationSeconds"`
	Call            WebhookCall    `json:"call"`
	Artifact        WebhookPart    `json:"artifact"`
	Analysis        WebhookSummary `json:"analysis"`
}

// WebhookCall identifies the call and customer.
type WebhookCall struct {
	ID       string         `json:"id"`
	Customer WebhookPerson  `json:"customer"`
	Metadata map[string]any `json:"metadata"`
}

// WebhookPerson carries the customer phone number.
type WebhookPerson struct {
	Number string `json:"number"`
}

// WebhookPart carries call artifacts.
type WebhookPart struct {
	Transcript   string `json:"transcript"`
	RecordingURL string `json:"recordingUrl"`
}

// WebhookSummary carries the provider's post-call analysis.
type WebhookSummary struct {
	Summary string `json:"summary"`
}

// CallContext is the immutable per-event input to the orchestrator,
// constructed once from the webhook envelope or an imported provider call.
type CallContext struct {
	CallID          string
	CustomerPhone   string
	DurationSeconds int
	EndedReason     string
	Transcript      string
	Summary         string
	CRMRecordID     string
	LeadID          string
	Email           string
	RecordingURL    string
}

// ToCallContext flattens the webhook envelope into a CallContext, applying
// the unknown-call and unknown-phone defaults.
func (r WebhookRequest) ToCallContext() CallContext {
	m := r.Message

	transcript := m.Transcript
	if transcript == "" {
		transcript = m.Artifact.Transcript
	}
	summary := m.Summary
	if summary == "" {
		summary = m.Analysis.Summary
	}

	cc := CallContext{
		CallID:          m.Call.ID,
		CustomerPhone:   m.Call.Customer.Number,
		DurationSeconds: int(m.DurationSeconds),
		EndedReason:     m.EndedReason,
		Transcript:      transcript,
		Summary:         summary,
		RecordingURL:    m.Artifact.RecordingURL,
		CRMRecordID:     metadataString(m.Call.Metadata, "attioRecordId"),
		LeadID:          metadataString(m.Call.Metadata, "metaLeadId"),
		Email:           metadataString(m.Call.Metadata, "email"),
	}
	if cc.CallID == "" {
		cc.CallID = unknownCallID
	}
	if strings.TrimSpace(cc.CustomerPhone) == "" {
		cc.CustomerPhone = unknownPhone
	}
	if cc.DurationSeconds < 0 {
		cc.DurationSeconds = 0
	}
	return cc
}

func metadataString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// WebhookAck is the structured webhook response. The endpoint always
// acknowledges with HTTP 200 to prevent upstream retry storms; processing
// errors surface in the body only.
type WebhookAck struct {
	Status  string          `json:"status"`
	Outcome outcome.Outcome `json:"outcome,omitempty"`
	Error   string          `json:"error,omitempty"`
}
