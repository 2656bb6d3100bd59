package calls

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"callops_backend/internal/activity"
	"callops_backend/internal/events"
	"callops_backend/internal/outcome"
	"callops_backend/internal/sinks"
	"callops_backend/platform/logger"
)

// Notifier is the team-chat notification sink.
type Notifier interface {
	Send(ctx context.Context, msg sinks.NotificationMessage) error
}

// CRMClient is the CRM sink: record updates plus identity lookup.
type CRMClient interface {
	UpdateRecord(ctx context.Context, recordID string, in sinks.CRMUpdate) error
	FindByPhone(ctx context.Context, phone string) string
}

// Converter is the ad-platform conversion sink.
type Converter interface {
	SendLead(ctx context.Context, ev sinks.ConversionEvent) error
}

// RecordStore persists call records.
type RecordStore interface {
	Create(ctx context.Context, rec *CallRecord) error
}

// ProcessResult is the aggregate of one orchestrated call event.
type ProcessResult struct {
	Outcome outcome.Outcome `json:"outcome"`
	Results []sinks.Result  `json:"results"`
}

// Service is the fan-out orchestrator. Given a call context it classifies the
// outcome, propagates it to every sink, writes one activity record per sink
// attempt, and persists a single call record summarizing the event.
type Service struct {
	notifier   Notifier
	crm        CRMClient
	converter  Converter
	records    RecordStore
	activities activity.Store
	bus        events.Bus
	log        *logger.Logger
}

// NewService creates a new orchestrator service.
func NewService(notifier Notifier, crm CRMClient, converter Converter, records RecordStore, activities activity.Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		notifier:   notifier,
		crm:        crm,
		converter:  converter,
		records:    records,
		activities: activities,
		bus:        bus,
		log:        log,
	}
}

// Process handles one live call-completion event, including the notification
// sink. It only returns an error when the final call record cannot be
// persisted; sink failures are contained and recorded.
func (s *Service) Process(ctx context.Context, cc CallContext) (*ProcessResult, error) {
	return s.run(ctx, cc, true)
}

// Reprocess handles one historically imported call. Import does not
// re-notify: the notification sink is not attempted at all.
func (s *Service) Reprocess(ctx context.Context, cc CallContext) (*ProcessResult, error) {
	return s.run(ctx, cc, false)
}

func (s *Service) run(ctx context.Context, cc CallContext, notify bool) (*ProcessResult, error) {
	out := outcome.Classify(cc.EndedReason, cc.Transcript, cc.Summary, cc.DurationSeconds)
	log := s.log.WithCallID(cc.CallID)
	log.Info("call classified", "outcome", out, "duration", cc.DurationSeconds)

	s.append(ctx, activity.Record{
		Type:      activity.TypeCallReceived,
		Status:    activity.StatusSuccess,
		Service:   "vapi",
		Direction: activity.DirectionIncoming,
		Summary:   fmt.Sprintf("Call %s classified as %s", cc.CallID, out.Label()),
		Detail: map[string]any{
			"callId":   cc.CallID,
			"outcome":  out.String(),
			"duration": cc.DurationSeconds,
		},
	})

	// Sink branches are independent: a failure in one never aborts another,
	// and each branch returns nil so the group never cancels siblings.
	var notifResult, crmResult, convResult sinks.Result

	g, gctx := errgroup.WithContext(ctx)
	if notify {
		g.Go(func() error {
			notifResult = s.runNotification(gctx, cc, out)
			return nil
		})
	}
	g.Go(func() error {
		crmResult = s.runCRM(gctx, cc, out)
		return nil
	})
	g.Go(func() error {
		convResult = s.runConversion(gctx, cc, out)
		return nil
	})
	_ = g.Wait()

	results := make([]sinks.Result, 0, 3)
	if notify {
		results = append(results, notifResult)
	}
	results = append(results, crmResult, convResult)

	rec := &CallRecord{
		CallID:           cc.CallID,
		CustomerPhone:    cc.CustomerPhone,
		DurationSeconds:  cc.DurationSeconds,
		Outcome:          out,
		Summary:          cc.Summary,
		EndedReason:      cc.EndedReason,
		NotificationSent: notify && notifResult.Success,
		CRMUpdated:       crmResult.Success,
	}
	if err := s.records.Create(ctx, rec); err != nil {
		log.Error("call record persistence failed", "error", err)
		return nil, fmt.Errorf("persist call record: %w", err)
	}

	s.append(ctx, activity.Record{
		Type:      activity.TypeCallRecordCreated,
		Status:    activity.StatusSuccess,
		Service:   "callops",
		Direction: activity.DirectionIncoming,
		Summary:   fmt.Sprintf("Call record created for %s", cc.CallID),
		Detail: map[string]any{
			"callId":           cc.CallID,
			"outcome":          out.String(),
			"notificationSent": rec.NotificationSent,
			"crmUpdated":       rec.CRMUpdated,
		},
	})

	if cc.RecordingURL != "" {
		s.bus.Publish(ctx, events.NewCallProcessed(cc.CallID, cc.RecordingURL))
	}

	return &ProcessResult{Outcome: out, Results: results}, nil
}

func (s *Service) runNotification(ctx context.Context, cc CallContext, out outcome.Outcome) sinks.Result {
	err := s.notifier.Send(ctx, sinks.NotificationMessage{
		Outcome:         out,
		CustomerPhone:   cc.CustomerPhone,
		DurationSeconds: cc.DurationSeconds,
		Summary:         cc.Summary,
		EndedReason:     cc.EndedReason,
	})
	result := sinks.Result{Sink: sinks.Notification, Success: err == nil}
	if err != nil {
		result.Summary = err.Error()
	}
	s.recordSinkAttempt(ctx, cc, out, "slack", result, err)
	return result
}

func (s *Service) runCRM(ctx context.Context, cc CallContext, out outcome.Outcome) sinks.Result {
	recordID := cc.CRMRecordID
	if recordID == "" {
		recordID = s.crm.FindByPhone(ctx, cc.CustomerPhone)
	}
	if recordID == "" {
		result := sinks.Result{Sink: sinks.CRM, Success: false, Summary: "no record id"}
		s.recordSinkAttempt(ctx, cc, out, "attio", result, nil)
		return result
	}

	err := s.crm.UpdateRecord(ctx, recordID, sinks.CRMUpdate{
		Outcome:      out,
		Summary:      cc.Summary,
		RecordingURL: cc.RecordingURL,
	})
	result := sinks.Result{
		Sink:    sinks.CRM,
		Success: err == nil,
		Detail:  map[string]any{"recordId": recordID},
	}
	if err != nil {
		result.Summary = err.Error()
	}
	s.recordSinkAttempt(ctx, cc, out, "attio", result, err)
	return result
}

func (s *Service) runConversion(ctx context.Context, cc CallContext, out outcome.Outcome) sinks.Result {
	err := s.converter.SendLead(ctx, sinks.ConversionEvent{
		Outcome: out,
		Phone:   cc.CustomerPhone,
		Email:   cc.Email,
		LeadID:  cc.LeadID,
	})
	result := sinks.Result{Sink: sinks.Conversion, Success: err == nil}
	if err != nil {
		result.Summary = err.Error()
	}
	s.recordSinkAttempt(ctx, cc, out, "meta", result, err)
	return result
}

func (s *Service) recordSinkAttempt(ctx context.Context, cc CallContext, out outcome.Outcome, service string, result sinks.Result, err error) {
	s.log.SinkAttempt(result.Sink, cc.CallID, out.String(), result.Success, err)

	status := activity.StatusSuccess
	if !result.Success {
		status = activity.StatusFailed
	}
	detail := map[string]any{
		"callId":  cc.CallID,
		"sink":    result.Sink,
		"outcome": out.String(),
	}
	for k, v := range result.Detail {
		detail[k] = v
	}
	summary := fmt.Sprintf("%s sink %s for call %s", result.Sink, status, cc.CallID)
	if result.Summary != "" {
		summary = fmt.Sprintf("%s: %s", summary, result.Summary)
	}
	s.append(ctx, activity.Record{
		Type:      activity.TypeSinkAttempt,
		Status:    status,
		Service:   service,
		Direction: activity.DirectionOutgoing,
		Summary:   summary,
		Detail:    detail,
	})
}

// append writes an activity record best-effort. Audit append failures are
// logged, never propagated: losing one audit row must not fail the event.
func (s *Service) append(ctx context.Context, rec activity.Record) {
	if err := s.activities.Append(ctx, rec); err != nil {
		s.log.Error("activity append failed", "type", rec.Type, "error", err)
	}
}
