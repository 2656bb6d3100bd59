package calls

import (
	"context"
	"errors"
	"sync"
	"testing"

	"callops_backend/internal/activity"
	"callops_backend/internal/sinks"
	"callops_backend/platform/events"
	"callops_backend/platform/logger"
)

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeNotifier) Send(ctx context.Context, msg sinks.NotificationMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeCRM struct {
	mu        sync.Mutex
	lookupID  string
	updateErr error
	updates   []string
}

func (f *fakeCRM) UpdateRecord(ctx context.Context, recordID string, in sinks.CRMUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, recordID)
	return f.updateErr
}

func (f *fakeCRM) FindByPhone(ctx context.Context, phone string) string {
	return f.lookupID
}

type fakeConverter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeConverter) SendLead(ctx context.Context, ev sinks.ConversionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeRecordStore struct {
	mu      sync.Mutex
	records []CallRecord
	err     error
}

func (f *fakeRecordStore) Create(ctx context.Context, rec *CallRecord) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, *rec)
	return nil
}

type fixture struct {
	notifier   *fakeNotifier
	crm        *fakeCRM
	converter  *fakeConverter
	records    *fakeRecordStore
	activities *activity.MemoryStore
	service    *Service
}

func newFixture() *fixture {
	f := &fixture{
		notifier:   &fakeNotifier{},
		crm:        &fakeCRM{lookupID: "rec-1"},
		converter:  &fakeConverter{},
		records:    &fakeRecordStore{},
		activities: activity.NewMemoryStore(),
	}
	log := logger.New("development")
	f.service = NewService(f.notifier, f.crm, f.converter, f.records, f.activities, events.NewInMemoryBus(log), log)
	return f
}

func testContext() CallContext {
	return CallContext{
		CallID:          "call-1",
		CustomerPhone:   "+15551234567",
		DurationSeconds: 45,
		Transcript:      "I am interested, please send me pricing info",
	}
}

func sinkAttempts(store *activity.MemoryStore) []activity.Record {
	var out []activity.Record
	for _, rec := range store.Records() {
		if rec.Type == activity.TypeSinkAttempt {
			out = append(out, rec)
		}
	}
	return out
}

func TestProcessOneActivityPerSinkAndOneCallRecord(t *testing.T) {
	f := newFixture()

	result, err := f.service.Process(context.Background(), testContext())
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if result.Outcome != "interested" {
		t.Fatalf("unexpected outcome %q", result.Outcome)
	}
	if len(result.Results) != 3 {
		t.Fatalf("expected 3 sink results, got %d", len(result.Results))
	}

	attempts := sinkAttempts(f.activities)
	if len(attempts) != 3 {
		t.Fatalf("expected 3 sink attempt records, got %d", len(attempts))
	}
	if len(f.records.records) != 1 {
		t.Fatalf("expected exactly 1 call record, got %d", len(f.records.records))
	}

	rec := f.records.records[0]
	if !rec.NotificationSent || !rec.CRMUpdated {
		t.Fatalf("expected both booleans set, got %+v", rec)
	}
}

func TestProcessIsolatesNotificationFailure(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("slack down")

	result, err := f.service.Process(context.Background(), testContext())
	if err != nil {
		t.Fatalf("sink failure must not propagate, got %v", err)
	}

	if len(f.crm.updates) != 1 {
		t.Fatalf("CRM sink should still be attempted, got %d updates", len(f.crm.updates))
	}
	if f.converter.calls != 1 {
		t.Fatalf("conversion sink should still be attempted, got %d calls", f.converter.calls)
	}

	byName := map[string]sinks.Result{}
	for _, r := range result.Results {
		byName[r.Sink] = r
	}
	if byName[sinks.Notification].Success {
		t.Fatal("notification result should be failed")
	}
	if !byName[sinks.CRM].Success || !byName[sinks.Conversion].Success {
		t.Fatalf("other sinks should succeed independently: %+v", result.Results)
	}

	rec := f.records.records[0]
	if rec.NotificationSent {
		t.Fatal("call record should reflect the failed notification")
	}
	if !rec.CRMUpdated {
		t.Fatal("call record should reflect the successful CRM update")
	}
}

func TestProcessSkipsCRMWithoutRecordID(t *testing.T) {
	f := newFixture()
	f.crm.lookupID = ""

	result, err := f.service.Process(context.Background(), testContext())
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	if len(f.crm.updates) != 0 {
		t.Fatalf("CRM update should not be attempted without a record id, got %v", f.crm.updates)
	}

	var crmResult *sinks.Result
	for i := range result.Results {
		if result.Results[i].Sink == sinks.CRM {
			crmResult = &result.Results[i]
		}
	}
	if crmResult == nil {
		t.Fatal("skip must still produce a CRM result")
	}
	if crmResult.Success || crmResult.Summary != "no record id" {
		t.Fatalf("skip should be a failed result with reason, got %+v", crmResult)
	}

	// The skip is recorded in the audit trail like any other attempt.
	if got := len(sinkAttempts(f.activities)); got != 3 {
		t.Fatalf("expected 3 sink attempt records including the skip, got %d", got)
	}
}

func TestProcessUsesSuppliedRecordID(t *testing.T) {
	f := newFixture()
	f.crm.lookupID = "rec-from-lookup"

	cc := testContext()
	cc.CRMRecordID = "rec-supplied"

	if _, err := f.service.Process(context.Background(), cc); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(f.crm.updates) != 1 || f.crm.updates[0] != "rec-supplied" {
		t.Fatalf("supplied record id should win over lookup, got %v", f.crm.updates)
	}
}

func TestProcessFailsOnRecordPersistence(t *testing.T) {
	f := newFixture()
	f.records.err = errors.New("db down")

	if _, err := f.service.Process(context.Background(), testContext()); err == nil {
		t.Fatal("persistence failure must propagate")
	}
}

func TestReprocessSkipsNotificationEntirely(t *testing.T) {
	f := newFixture()

	result, err := f.service.Reprocess(context.Background(), testContext())
	if err != nil {
		t.Fatalf("Reprocess returned error: %v", err)
	}

	if f.notifier.calls != 0 {
		t.Fatalf("import must not notify, got %d sends", f.notifier.calls)
	}
	if len(result.Results) != 2 {
		t.Fatalf("expected 2 sink results on import, got %d", len(result.Results))
	}
	for _, r := range result.Results {
		if r.Sink == sinks.Notification {
			t.Fatal("notification must not appear in import results")
		}
	}
	if got := len(sinkAttempts(f.activities)); got != 2 {
		t.Fatalf("expected 2 sink attempt records on import, got %d", got)
	}

	rec := f.records.records[0]
	if rec.NotificationSent {
		t.Fatal("import call record must not claim a notification was sent")
	}
}

func TestProcessAllSinksFailStillPersists(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("slack down")
	f.crm.updateErr = errors.New("attio down")
	f.converter.err = errors.New("meta down")

	result, err := f.service.Process(context.Background(), testContext())
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	for _, r := range result.Results {
		if r.Success {
			t.Fatalf("expected every sink to fail, got %+v", r)
		}
	}
	if len(f.records.records) != 1 {
		t.Fatalf("call record must still be persisted, got %d", len(f.records.records))
	}
	rec := f.records.records[0]
	if rec.NotificationSent || rec.CRMUpdated {
		t.Fatalf("booleans should be false, got %+v", rec)
	}
}
