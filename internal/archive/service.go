// Package archive copies call recordings from the provider's short-lived URLs
// into durable object storage. Archival runs asynchronously: the orchestrator
// publishes a CallProcessed event, a subscriber enqueues a background task,
// and the worker downloads and stores the recording.
package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"callops_backend/internal/activity"
	"callops_backend/internal/events"
	platformevents "callops_backend/platform/events"
	"callops_backend/platform/logger"
)

// Storage is the object store the recordings land in.
type Storage interface {
	EnsureBucketExists(ctx context.Context, bucket string) error
	Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
}

// Enqueuer schedules a background archival task.
type Enqueuer interface {
	EnqueueArchiveRecording(ctx context.Context, callID, recordingURL string) error
}

// Service downloads recordings and stores them.
type Service struct {
	httpClient *http.Client
	storage    Storage
	bucket     string
	activities activity.Store
	log        *logger.Logger
}

// NewService creates a new archive service.
func NewService(storage Storage, bucket string, activities activity.Store, log *logger.Logger) *Service {
	return &Service{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		storage:    storage,
		bucket:     bucket,
		activities: activities,
		log:        log,
	}
}

// ArchiveRecording downloads the recording and stores it under the call id.
func (s *Service) ArchiveRecording(ctx context.Context, callID, recordingURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL, nil)
	if err != nil {
		return fmt.Errorf("archive request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("archive download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("archive download: status %d", resp.StatusCode)
	}

	key := objectKey(callID, recordingURL)
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.storage.Upload(ctx, s.bucket, key, resp.Body, resp.ContentLength, contentType); err != nil {
		return err
	}

	s.log.WithCallID(callID).Info("recording archived", "bucket", s.bucket, "key", key)
	s.append(ctx, activity.Record{
		Type:      activity.TypeRecordingArchived,
		Status:    activity.StatusSuccess,
		Service:   "minio",
		Direction: activity.DirectionOutgoing,
		Summary:   fmt.Sprintf("Recording archived for call %s", callID),
		Detail:    map[string]any{"callId": callID, "bucket": s.bucket, "key": key},
	})
	return nil
}

// objectKey derives the storage key from the call id, keeping the source
// file extension when the URL carries one.
func objectKey(callID, recordingURL string) string {
	ext := ".wav"
	if u, err := url.Parse(recordingURL); err == nil {
		if e := path.Ext(u.Path); e != "" {
			ext = e
		}
	}
	return fmt.Sprintf("%s/%s%s", time.Now().UTC().Format("2006/01"), callID, ext)
}

func (s *Service) append(ctx context.Context, rec activity.Record) {
	if err := s.activities.Append(ctx, rec); err != nil {
		s.log.Error("activity append failed", "type", rec.Type, "error", err)
	}
}

// Subscribe registers the CallProcessed handler that enqueues archival tasks.
// Enqueue failures are logged, not propagated: archival is best-effort and
// must never fail call processing.
func Subscribe(bus events.Bus, enqueuer Enqueuer, log *logger.Logger) {
	bus.Subscribe(events.EventCallProcessed, platformevents.HandlerFunc(
		func(ctx context.Context, event platformevents.Event) error {
			processed, ok := event.(events.CallProcessed)
			if !ok {
				return nil
			}
			if err := enqueuer.EnqueueArchiveRecording(ctx, processed.CallID, processed.RecordingURL); err != nil {
				log.Warn("archive enqueue failed", "callId", processed.CallID, "error", err)
			}
			return nil
		}))
}
