package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"callops_backend/internal/activity"
	"callops_backend/internal/calls"
	"callops_backend/internal/leadsource"
	"callops_backend/internal/outcome"
	"callops_backend/internal/sinks"
	"callops_backend/internal/vapi"
	"callops_backend/platform/logger"
)

type fakeCallSource struct {
	calls []vapi.ProviderCall
	err   error
}

func (f *fakeCallSource) ListCalls(ctx context.Context, since time.Time) ([]vapi.ProviderCall, error) {
	return f.calls, f.err
}

type fakeLeadSource struct {
	leads []leadsource.LeadRecord
	err   error
}

func (f *fakeLeadSource) ListLeads(ctx context.Context, formID string) ([]leadsource.LeadRecord, error) {
	return f.leads, f.err
}

type fakePipeline struct {
	crmSuccess bool
	failCallID string
	processed  []string
}

func (f *fakePipeline) Reprocess(ctx context.Context, cc calls.CallContext) (*calls.ProcessResult, error) {
	if cc.CallID == f.failCallID {
		return nil, errors.New("pipeline failure")
	}
	f.processed = append(f.processed, cc.CallID)
	return &calls.ProcessResult{
		Outcome: outcome.Interested,
		Results: []sinks.Result{
			{Sink: sinks.CRM, Success: f.crmSuccess},
			{Sink: sinks.Conversion, Success: true},
		},
	}, nil
}

type fakeDirectory struct {
	byPhone map[string]string
	byEmail map[string]string
	created []string
	err     error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{byPhone: map[string]string{}, byEmail: map[string]string{}}
}

func (f *fakeDirectory) FindByPhone(ctx context.Context, phone string) string {
	return f.byPhone[phone]
}

func (f *fakeDirectory) FindByEmail(ctx context.Context, email string) string {
	return f.byEmail[email]
}

func (f *fakeDirectory) CreatePerson(ctx context.Context, name, email, phone string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	id := fmt.Sprintf("rec-%d", len(f.created)+1)
	f.created = append(f.created, id)
	if phone != "" {
		f.byPhone[phone] = id
	}
	if email != "" {
		f.byEmail[email] = id
	}
	return id, nil
}

func newService(cs *fakeCallSource, ls *fakeLeadSource, p *fakePipeline, d *fakeDirectory) (*Service, *activity.MemoryStore) {
	store := activity.NewMemoryStore()
	return NewService(cs, ls, p, d, store, logger.New("development")), store
}

func TestImportCallsAggregates(t *testing.T) {
	cs := &fakeCallSource{calls: []vapi.ProviderCall{
		{ID: "call-1", CustomerPhone: "+15551234567", DurationSeconds: 130},
		{ID: "call-2", CustomerPhone: "+15557654321", DurationSeconds: 20},
	}}
	pipeline := &fakePipeline{crmSuccess: true}
	svc, _ := newService(cs, &fakeLeadSource{}, pipeline, newFakeDirectory())

	result, err := svc.ImportCalls(context.Background(), 24)
	if err != nil {
		t.Fatalf("ImportCalls returned error: %v", err)
	}
	if result.Total != 2 || result.Processed != 2 || result.AttioUpdated != 2 {
		t.Fatalf("unexpected aggregate: %+v", result)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("expected no errors, got %v", result.Errors)
	}
}

func TestImportCallsContinuesPastItemFailure(t *testing.T) {
	cs := &fakeCallSource{calls: []vapi.ProviderCall{
		{ID: "call-1"}, {ID: "call-bad"}, {ID: "call-3"},
	}}
	pipeline := &fakePipeline{crmSuccess: true, failCallID: "call-bad"}
	svc, _ := newService(cs, &fakeLeadSource{}, pipeline, newFakeDirectory())

	result, err := svc.ImportCalls(context.Background(), 24)
	if err != nil {
		t.Fatalf("ImportCalls returned error: %v", err)
	}
	if result.Total != 3 || result.Processed != 2 {
		t.Fatalf("failed item must be excluded from processed: %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 collected error, got %v", result.Errors)
	}
	if len(pipeline.processed) != 2 {
		t.Fatalf("remaining items should still run, got %v", pipeline.processed)
	}
}

func TestImportCallsSourceFailureAborts(t *testing.T) {
	cs := &fakeCallSource{err: errors.New("provider down")}
	svc, _ := newService(cs, &fakeLeadSource{}, &fakePipeline{}, newFakeDirectory())

	if _, err := svc.ImportCalls(context.Background(), 24); err == nil {
		t.Fatal("source failure should abort the run")
	}
}

func TestImportLeadsDedupIdempotence(t *testing.T) {
	ls := &fakeLeadSource{leads: []leadsource.LeadRecord{
		{ID: "lead-1", Name: "Jane Doe", Phone: "+15551234567", Email: "jane@example.com"},
	}}
	dir := newFakeDirectory()
	svc, _ := newService(&fakeCallSource{}, ls, &fakePipeline{}, dir)

	first, err := svc.ImportLeads(context.Background(), "form-1")
	if err != nil {
		t.Fatalf("first import returned error: %v", err)
	}
	if first.Created != 1 || first.Skipped != 0 {
		t.Fatalf("first import should create: %+v", first)
	}

	second, err := svc.ImportLeads(context.Background(), "form-1")
	if err != nil {
		t.Fatalf("second import returned error: %v", err)
	}
	if second.Created != 0 || second.Skipped != 1 {
		t.Fatalf("second import should skip the duplicate: %+v", second)
	}
	if len(dir.created) != 1 {
		t.Fatalf("one phone must never yield two records, got %d", len(dir.created))
	}
}

func TestImportLeadsFallsBackToEmailDedup(t *testing.T) {
	dir := newFakeDirectory()
	dir.byEmail["jane@example.com"] = "rec-existing"

	ls := &fakeLeadSource{leads: []leadsource.LeadRecord{
		{ID: "lead-1", Email: "jane@example.com", Phone: "unknown"},
	}}
	svc, _ := newService(&fakeCallSource{}, ls, &fakePipeline{}, dir)

	result, err := svc.ImportLeads(context.Background(), "form-1")
	if err != nil {
		t.Fatalf("ImportLeads returned error: %v", err)
	}
	if result.Skipped != 1 || result.Created != 0 {
		t.Fatalf("email match should skip: %+v", result)
	}
}

func TestImportLeadsContinuesPastItemFailure(t *testing.T) {
	dir := newFakeDirectory()
	dir.err = errors.New("crm down")

	ls := &fakeLeadSource{leads: []leadsource.LeadRecord{
		{ID: "lead-1", Phone: "+15551111111"},
		{ID: "lead-2", Phone: "+15552222222"},
	}}
	svc, _ := newService(&fakeCallSource{}, ls, &fakePipeline{}, dir)

	result, err := svc.ImportLeads(context.Background(), "form-1")
	if err != nil {
		t.Fatalf("ImportLeads returned error: %v", err)
	}
	if result.Total != 2 || result.Created != 0 {
		t.Fatalf("unexpected aggregate: %+v", result)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("every item failure should be collected, got %v", result.Errors)
	}
}

func TestImportWritesAuditTrail(t *testing.T) {
	ls := &fakeLeadSource{leads: []leadsource.LeadRecord{
		{ID: "lead-1", Phone: "+15551234567"},
	}}
	svc, store := newService(&fakeCallSource{}, ls, &fakePipeline{}, newFakeDirectory())

	if _, err := svc.ImportLeads(context.Background(), "form-1"); err != nil {
		t.Fatalf("ImportLeads returned error: %v", err)
	}

	types := map[string]int{}
	for _, rec := range store.Records() {
		types[rec.Type]++
	}
	if types[activity.TypeLeadReceived] != 1 {
		t.Fatalf("expected lead_received record, got %v", types)
	}
	if types[activity.TypeRecordCreated] != 1 {
		t.Fatalf("expected crm_record_created record, got %v", types)
	}
	if types[activity.TypeImportCompleted] != 1 {
		t.Fatalf("expected import_completed record, got %v", types)
	}
}
