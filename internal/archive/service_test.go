package archive

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"callops_backend/internal/activity"
	"callops_backend/internal/events"
	platformevents "callops_backend/platform/events"
	"callops_backend/platform/logger"
)

type fakeStorage struct {
	bucket      string
	key         string
	contentType string
	body        string
	err         error
}

func (f *fakeStorage) EnsureBucketExists(ctx context.Context, bucket string) error { return nil }

func (f *fakeStorage) Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error {
	if f.err != nil {
		return f.err
	}
	data, _ := io.ReadAll(r)
	f.bucket, f.key, f.contentType, f.body = bucket, key, contentType, string(data)
	return nil
}

func TestArchiveRecordingStoresObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("audio-bytes"))
	}))
	defer server.Close()

	storage := &fakeStorage{}
	store := activity.NewMemoryStore()
	svc := NewService(storage, "call-recordings", store, logger.New("development"))

	err := svc.ArchiveRecording(context.Background(), "call-1", server.URL+"/recordings/call-1.wav")
	if err != nil {
		t.Fatalf("ArchiveRecording returned error: %v", err)
	}

	if storage.bucket != "call-recordings" {
		t.Fatalf("unexpected bucket %q", storage.bucket)
	}
	if !strings.HasSuffix(storage.key, "/call-1.wav") {
		t.Fatalf("key should end with call id and extension, got %q", storage.key)
	}
	if storage.contentType != "audio/wav" || storage.body != "audio-bytes" {
		t.Fatalf("object content not preserved: %q %q", storage.contentType, storage.body)
	}

	records := store.Records()
	if len(records) != 1 || records[0].Type != activity.TypeRecordingArchived {
		t.Fatalf("expected one recording_archived record, got %+v", records)
	}
}

func TestArchiveRecordingDownloadFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	svc := NewService(&fakeStorage{}, "call-recordings", activity.NewMemoryStore(), logger.New("development"))
	if err := svc.ArchiveRecording(context.Background(), "call-1", server.URL); err == nil {
		t.Fatal("expected error for 404 download")
	}
}

type fakeEnqueuer struct {
	callIDs []string
	err     error
}

func (f *fakeEnqueuer) EnqueueArchiveRecording(ctx context.Context, callID, recordingURL string) error {
	f.callIDs = append(f.callIDs, callID)
	return f.err
}

func TestSubscribeEnqueuesOnCallProcessed(t *testing.T) {
	log := logger.New("development")
	bus := platformevents.NewInMemoryBus(log)
	enqueuer := &fakeEnqueuer{}
	Subscribe(bus, enqueuer, log)

	err := bus.PublishSync(context.Background(), events.NewCallProcessed("call-1", "https://example.com/rec.wav"))
	if err != nil {
		t.Fatalf("PublishSync returned error: %v", err)
	}
	if len(enqueuer.callIDs) != 1 || enqueuer.callIDs[0] != "call-1" {
		t.Fatalf("expected one enqueue for call-1, got %v", enqueuer.callIDs)
	}
}

func TestSubscribeSwallowsEnqueueFailure(t *testing.T) {
	log := logger.New("development")
	bus := platformevents.NewInMemoryBus(log)
	Subscribe(bus, &fakeEnqueuer{err: errors.New("redis down")}, log)

	err := bus.PublishSync(context.Background(), events.NewCallProcessed("call-1", "https://example.com/rec.wav"))
	if err != nil {
		t.Fatalf("enqueue failure must not propagate, got %v", err)
	}
}
