// Package sinks defines the shared contract between the fan-out orchestrator
// and the downstream sink adapters (notification, CRM, ad conversion).
//
// Each sink is an independent leaf: it translates an outcome plus call context
// into one outbound API call and reports success or failure. Sinks never know
// about each other, and a sink failure is always recoverable by the caller.
package sinks

import "callops_backend/internal/outcome"

// Sink identifiers, used in results and activity records.
const (
	Notification = "notification"
	CRM          = "crm"
	Conversion   = "conversion"
)

// Result is the per-sink outcome of one propagation attempt. Exactly one
// Result exists per sink per orchestrated event; a deliberate skip is reported
// as a failed Result, never silently omitted.
type Result struct {
	Sink    string         `json:"sink"`
	Success bool           `json:"success"`
	Summary string         `json:"summary,omitempty"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// NotificationMessage carries everything the team-chat notifier needs.
type NotificationMessage struct {
	Outcome         outcome.Outcome
	CustomerPhone   string
	DurationSeconds int
	Summary         string
	EndedReason     string
}

// CRMUpdate carries the fields written to an existing CRM record.
type CRMUpdate struct {
	Outcome      outcome.Outcome
	Summary      string
	RecordingURL string
}

// ConversionEvent carries the offline-conversion payload for the ad platform.
// LeadID is optional and only forwarded when it matches the platform's strict
// numeric format.
type ConversionEvent struct {
	Outcome outcome.Outcome
	Phone   string
	Email   string
	LeadID  string
}
