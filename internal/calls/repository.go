package calls

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"callops_backend/internal/outcome"
)

// CallRecord is the persisted summary of one processed call event. Records
// are write-once: a re-import of the same call id creates a new row.
type CallRecord struct {
	ID               uuid.UUID       `json:"id"`
	CallID           string          `json:"callId"`
	CustomerPhone    string          `json:"customerPhone"`
	DurationSeconds  int             `json:"durationSeconds"`
	Outcome          outcome.Outcome `json:"outcome"`
	Summary          string          `json:"summary,omitempty"`
	EndedReason      string          `json:"endedReason,omitempty"`
	NotificationSent bool            `json:"notificationSent"`
	CRMUpdated       bool            `json:"crmUpdated"`
	CreatedAt        time.Time       `json:"createdAt"`
}

// Repository is the Postgres-backed call record store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new call record repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts one call record, filling in the generated id and timestamp.
func (r *Repository) Create(ctx context.Context, rec *CallRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO call_records (id, call_id, customer_phone, duration_seconds, outcome,
			summary, ended_reason, notification_sent, crm_updated, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, rec.ID, rec.CallID, rec.CustomerPhone, rec.DurationSeconds, rec.Outcome.String(),
		rec.Summary, rec.EndedReason, rec.NotificationSent, rec.CRMUpdated, rec.CreatedAt)
	return err
}

// List returns the most recent call records, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]CallRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, call_id, customer_phone, duration_seconds, outcome,
			summary, ended_reason, notification_sent, crm_updated, created_at
		FROM call_records
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []CallRecord
	for rows.Next() {
		var rec CallRecord
		var out string
		if err := rows.Scan(&rec.ID, &rec.CallID, &rec.CustomerPhone, &rec.DurationSeconds, &out,
			&rec.Summary, &rec.EndedReason, &rec.NotificationSent, &rec.CRMUpdated, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Outcome = outcome.Outcome(out)
		records = append(records, rec)
	}
	return records, rows.Err()
}
