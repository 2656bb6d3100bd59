package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"callops_backend/internal/activity"
	"callops_backend/internal/adapters/storage"
	"callops_backend/internal/archive"
	"callops_backend/internal/calls"
	"callops_backend/internal/email"
	"callops_backend/internal/leadsource"
	"callops_backend/internal/reconcile"
	"callops_backend/internal/scheduler"
	"callops_backend/internal/sinks/attio"
	"callops_backend/internal/sinks/meta"
	"callops_backend/internal/sinks/slack"
	"callops_backend/internal/vapi"
	"callops_backend/platform/config"
	"callops_backend/platform/db"
	"callops_backend/platform/events"
	"callops_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	activities := activity.NewRepository(pool)

	slackClient := slack.New(cfg, log)
	attioClient := attio.New(cfg, log)
	metaClient := meta.New(cfg, log)
	vapiClient := vapi.New(cfg, log)
	leadSource := leadsource.New(cfg, log)

	callRepo := calls.NewRepository(pool)
	pipeline := calls.NewService(slackClient, attioClient, metaClient, callRepo, activities, eventBus, log)
	reconcileSvc := reconcile.NewService(vapiClient, leadSource, pipeline, attioClient, activities, log)

	// Archival worker: pulls tasks from Redis, downloads recordings, stores
	// them in MinIO.
	if cfg.GetRedisURL() != "" && cfg.IsMinIOEnabled() {
		storageClient, err := storage.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize storage client", "error", err)
			panic("failed to initialize storage client: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure recordings bucket", 5, 2*time.Second, func() error {
			return storageClient.EnsureBucketExists(ctx, cfg.GetRecordingsBucket())
		}); err != nil {
			log.Error("failed to ensure recordings bucket", "error", err)
			panic("failed to ensure recordings bucket: " + err.Error())
		}

		archiveSvc := archive.NewService(storageClient, cfg.GetRecordingsBucket(), activities, log)
		worker, err := scheduler.NewWorker(cfg, archiveSvc, log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
		go worker.Run(ctx)

		schedClient, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize scheduler client", "error", err)
			panic("failed to initialize scheduler client: " + err.Error())
		}
		defer schedClient.Close()
		archive.Subscribe(eventBus, schedClient, log)
	} else {
		log.Warn("recording archival disabled; REDIS_URL or MinIO not configured")
	}

	mailer := email.NewSMTPSender(cfg)
	importScheduler := scheduler.NewImportScheduler(cfg, reconcileSvc, mailer, cfg.GetOpsEmail(), log)

	log.Info("scheduler running",
		"importInterval", cfg.GetImportInterval().String(),
		"importWindowHours", cfg.GetImportWindowHours())
	importScheduler.Run(ctx)

	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
