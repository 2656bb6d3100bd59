package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"callops_backend/internal/archive"
	"callops_backend/platform/config"
	"callops_backend/platform/logger"
)

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	archive *archive.Service
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, archiveSvc *archive.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		archive: archiveSvc,
		log:     log,
	}

	mux.HandleFunc(TaskArchiveRecording, w.handleArchiveRecording)

	return w, nil
}

func (w *Worker) handleArchiveRecording(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseArchiveRecordingPayload(task)
	if err != nil {
		return err
	}
	if payload.RecordingURL == "" {
		return nil
	}
	return w.archive.ArchiveRecording(ctx, payload.CallID, payload.RecordingURL)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
