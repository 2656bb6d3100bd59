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
	"callops_backend/internal/archive"
	"callops_backend/internal/calls"
	apphttp "callops_backend/internal/http"
	"callops_backend/internal/http/router"
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
	"callops_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// ========================================================================
	// Domain Layer
	// ========================================================================

	activities := activity.NewRepository(pool)
	val := validator.New()

	slackClient := slack.New(cfg, log)
	attioClient := attio.New(cfg, log)
	metaClient := meta.New(cfg, log)
	vapiClient := vapi.New(cfg, log)
	leadSource := leadsource.New(cfg, log)

	callsModule := calls.NewModule(pool, cfg, slackClient, attioClient, metaClient, activities, eventBus, log)
	reconcileModule := reconcile.NewModule(vapiClient, leadSource, callsModule.Service(), attioClient, activities, val, log)

	// Recording archival runs in the scheduler process; the API only enqueues.
	var schedClient *scheduler.Client
	if cfg.GetRedisURL() != "" {
		schedClient, err = scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize scheduler client", "error", err)
			panic("failed to initialize scheduler client: " + err.Error())
		}
		defer schedClient.Close()
	} else {
		log.Warn("REDIS_URL not configured; recording archival disabled")
	}
	archive.Subscribe(eventBus, schedClient, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			callsModule,
			reconcileModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
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
