// Package reconcile provides the batch reconciliation importer: historical
// calls are re-run through the outcome pipeline, and lead-form submissions
// are deduplicated against the CRM before creating new records.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"callops_backend/internal/activity"
	"callops_backend/internal/calls"
	"callops_backend/internal/leadsource"
	"callops_backend/internal/sinks"
	"callops_backend/internal/vapi"
	"callops_backend/platform/logger"
	"callops_backend/platform/phone"
)

// CallSource lists historical calls from the voice-AI provider.
type CallSource interface {
	ListCalls(ctx context.Context, since time.Time) ([]vapi.ProviderCall, error)
}

// LeadSource lists submitted leads from an ad-platform lead form.
type LeadSource interface {
	ListLeads(ctx context.Context, formID string) ([]leadsource.LeadRecord, error)
}

// Reprocessor runs one imported call through the fan-out pipeline.
type Reprocessor interface {
	Reprocess(ctx context.Context, cc calls.CallContext) (*calls.ProcessResult, error)
}

// CRMDirectory is the CRM lookup/create surface used for lead dedup.
type CRMDirectory interface {
	FindByPhone(ctx context.Context, phone string) string
	FindByEmail(ctx context.Context, email string) string
	CreatePerson(ctx context.Context, name, email, phone string) (string, error)
}

// CallImportResult aggregates one historical call import run.
type CallImportResult struct {
	Total        int      `json:"total"`
	Processed    int      `json:"processed"`
	AttioUpdated int      `json:"attioUpdated"`
	Errors       []string `json:"errors"`
}

// LeadImportResult aggregates one lead import run.
type LeadImportResult struct {
	Total   int      `json:"total"`
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// Service is the reconciliation importer.
type Service struct {
	callSource CallSource
	leadSource LeadSource
	pipeline   Reprocessor
	crm        CRMDirectory
	activities activity.Store
	log        *logger.Logger
}

// NewService creates a new reconciliation service.
func NewService(callSource CallSource, leadSource LeadSource, pipeline Reprocessor, crm CRMDirectory, activities activity.Store, log *logger.Logger) *Service {
	return &Service{
		callSource: callSource,
		leadSource: leadSource,
		pipeline:   pipeline,
		crm:        crm,
		activities: activities,
		log:        log,
	}
}

// ImportCalls fetches every call ended within the window and re-runs each
// through the pipeline without notifying. Per-item failures are collected,
// never aborting the batch. Items run sequentially to bound load on the
// rate-limited downstream APIs.
func (s *Service) ImportCalls(ctx context.Context, hoursBack int) (*CallImportResult, error) {
	if hoursBack <= 0 {
		hoursBack = 24
	}
	since := time.Now().Add(-time.Duration(hoursBack) * time.Hour)

	providerCalls, err := s.callSource.ListCalls(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}

	result := &CallImportResult{Total: len(providerCalls)}
	for _, pc := range providerCalls {
		processed, err := s.pipeline.Reprocess(ctx, callContextFrom(pc))
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("call %s: %v", pc.ID, err))
			continue
		}
		result.Processed++
		for _, r := range processed.Results {
			if r.Sink == sinks.CRM && r.Success {
				result.AttioUpdated++
			}
		}
	}

	s.appendImportSummary(ctx, "vapi", fmt.Sprintf("Imported %d of %d calls, %d CRM updates, %d errors",
		result.Processed, result.Total, result.AttioUpdated, len(result.Errors)), map[string]any{
		"total":        result.Total,
		"processed":    result.Processed,
		"attioUpdated": result.AttioUpdated,
		"errors":       len(result.Errors),
	})
	s.log.Info("call import finished",
		"total", result.Total, "processed", result.Processed,
		"attioUpdated", result.AttioUpdated, "errors", len(result.Errors))
	return result, nil
}

// ImportLeads fetches every lead from the given form and creates a CRM person
// for each lead with no existing record. Dedup checks phone first, then
// email. Per-item failures are collected, never aborting the batch.
func (s *Service) ImportLeads(ctx context.Context, formID string) (*LeadImportResult, error) {
	leads, err := s.leadSource.ListLeads(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	result := &LeadImportResult{Total: len(leads)}
	for _, lead := range leads {
		s.append(ctx, activity.Record{
			Type:      activity.TypeLeadReceived,
			Status:    activity.StatusSuccess,
			Service:   "meta",
			Direction: activity.DirectionIncoming,
			Summary:   fmt.Sprintf("Lead %s received from form %s", lead.ID, formID),
			Detail:    map[string]any{"leadId": lead.ID, "formId": formID},
		})

		if s.existingRecordID(ctx, lead) != "" {
			result.Skipped++
			continue
		}

		recordID, err := s.crm.CreatePerson(ctx, lead.Name, lead.Email, lead.Phone)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("lead %s: %v", lead.ID, err))
			continue
		}
		result.Created++

		s.append(ctx, activity.Record{
			Type:      activity.TypeRecordCreated,
			Status:    activity.StatusSuccess,
			Service:   "attio",
			Direction: activity.DirectionOutgoing,
			Summary:   fmt.Sprintf("CRM record %s created for lead %s", recordID, lead.ID),
			Detail:    map[string]any{"leadId": lead.ID, "recordId": recordID},
		})
	}

	s.appendImportSummary(ctx, "meta", fmt.Sprintf("Imported %d of %d leads, %d skipped, %d errors",
		result.Created, result.Total, result.Skipped, len(result.Errors)), map[string]any{
		"formId":  formID,
		"total":   result.Total,
		"created": result.Created,
		"skipped": result.Skipped,
		"errors":  len(result.Errors),
	})
	s.log.Info("lead import finished",
		"formId", formID, "total", result.Total, "created", result.Created,
		"skipped", result.Skipped, "errors", len(result.Errors))
	return result, nil
}

func (s *Service) existingRecordID(ctx context.Context, lead leadsource.LeadRecord) string {
	if phone.IsKnown(lead.Phone) {
		if id := s.crm.FindByPhone(ctx, lead.Phone); id != "" {
			return id
		}
	}
	if lead.Email != "" {
		if id := s.crm.FindByEmail(ctx, lead.Email); id != "" {
			return id
		}
	}
	return ""
}

func callContextFrom(pc vapi.ProviderCall) calls.CallContext {
	cc := calls.CallContext{
		CallID:          pc.ID,
		CustomerPhone:   pc.CustomerPhone,
		DurationSeconds: pc.DurationSeconds,
		EndedReason:     pc.EndedReason,
		Transcript:      pc.Transcript,
		Summary:         pc.Summary,
		RecordingURL:    pc.RecordingURL,
	}
	if cc.CallID == "" {
		cc.CallID = "unknown"
	}
	if cc.CustomerPhone == "" {
		cc.CustomerPhone = "Unknown"
	}
	return cc
}

func (s *Service) appendImportSummary(ctx context.Context, service, summary string, detail map[string]any) {
	s.append(ctx, activity.Record{
		Type:      activity.TypeImportCompleted,
		Status:    activity.StatusSuccess,
		Service:   service,
		Direction: activity.DirectionIncoming,
		Summary:   summary,
		Detail:    detail,
	})
}

func (s *Service) append(ctx context.Context, rec activity.Record) {
	if err := s.activities.Append(ctx, rec); err != nil {
		s.log.Error("activity append failed", "type", rec.Type, "error", err)
	}
}
