// Package activity provides the append-only activity log: one record per
// meaningful processing step (event received, each sink attempt, lead
// received, record created).
//
// Records are write-once. There are no update or delete operations;
// retention is the storage layer's concern.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status of a recorded step.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusPending = "pending"
)

// Direction of the recorded interaction relative to this system.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Record types.
const (
	TypeCallReceived      = "call_received"
	TypeSinkAttempt       = "sink_attempt"
	TypeCallRecordCreated = "call_record_created"
	TypeLeadReceived      = "lead_received"
	TypeRecordCreated     = "crm_record_created"
	TypeRecordingArchived = "recording_archived"
	TypeImportCompleted   = "import_completed"
)

// Record is one append-only activity log entry.
type Record struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"type"`
	Status    string         `json:"status"`
	Service   string         `json:"service"`
	Direction string         `json:"direction"`
	Summary   string         `json:"summary"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Store is the persistence contract for activity records.
// It is append-only: no update or delete methods are provided.
type Store interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context, limit int) ([]Record, error)
}
