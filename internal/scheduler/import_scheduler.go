package scheduler

import (
	"context"
	"time"

	"callops_backend/internal/email"
	"callops_backend/internal/reconcile"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

const defaultImportInterval = 6 * time.Hour

// CallImporter runs a historical call import.
type CallImporter interface {
	ImportCalls(ctx context.Context, hoursBack int) (*reconcile.CallImportResult, error)
}

// SummaryMailer mails the import report.
type SummaryMailer interface {
	SendImportSummary(ctx context.Context, toEmail string, summary email.ImportSummary) error
}

// ImportScheduler periodically runs a call reconciliation import and mails
// the result to the ops address.
type ImportScheduler struct {
	importer    CallImporter
	mailer      SummaryMailer
	opsEmail    string
	interval    time.Duration
	windowHours int
	log         *logger.Logger
}

func NewImportScheduler(cfg config.ImportConfig, importer CallImporter, mailer SummaryMailer, opsEmail string, log *logger.Logger) *ImportScheduler {
	interval := cfg.GetImportInterval()
	if interval <= 0 {
		interval = defaultImportInterval
	}
	windowHours := cfg.GetImportWindowHours()
	if windowHours <= 0 {
		windowHours = 24
	}

	return &ImportScheduler{
		importer:    importer,
		mailer:      mailer,
		opsEmail:    opsEmail,
		interval:    interval,
		windowHours: windowHours,
		log:         log,
	}
}

func (s *ImportScheduler) Run(ctx context.Context) {
	if s == nil || s.importer == nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *ImportScheduler) runOnce(ctx context.Context) {
	result, err := s.importer.ImportCalls(ctx, s.windowHours)
	if err != nil {
		s.log.Error("scheduled call import failed", "error", err)
		return
	}

	if s.mailer == nil || s.opsEmail == "" {
		return
	}
	summary := email.ImportSummary{
		WindowHours:  s.windowHours,
		Total:        result.Total,
		Processed:    result.Processed,
		AttioUpdated: result.AttioUpdated,
		Errors:       result.Errors,
	}
	if err := s.mailer.SendImportSummary(ctx, s.opsEmail, summary); err != nil {
		s.log.Warn("import summary email failed", "error", err)
	}
}
