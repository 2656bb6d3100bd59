// Command call-backfill runs a one-off historical call import: every call
// ended within the window is re-run through the outcome pipeline without
// notifying.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"callops_backend/internal/activity"
	"callops_backend/internal/calls"
	"callops_backend/internal/leadsource"
	"callops_backend/internal/reconcile"
	"callops_backend/internal/sinks/attio"
	"callops_backend/internal/sinks/meta"
	"callops_backend/internal/sinks/slack"
	"callops_backend/internal/vapi"
	"callops_backend/platform/config"
	"callops_backend/platform/db"
	"callops_backend/platform/events"
	"callops_backend/platform/logger"
)

func main() {
	hours := flag.Int("hours", 24, "import window in hours")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting call backfill", "hours", *hours)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	activities := activity.NewRepository(pool)
	attioClient := attio.New(cfg, log)

	pipeline := calls.NewService(
		slack.New(cfg, log),
		attioClient,
		meta.New(cfg, log),
		calls.NewRepository(pool),
		activities,
		events.NewInMemoryBus(log),
		log,
	)
	svc := reconcile.NewService(vapi.New(cfg, log), leadsource.New(cfg, log), pipeline, attioClient, activities, log)

	result, err := svc.ImportCalls(ctx, *hours)
	if err != nil {
		log.Error("call backfill failed", "error", err)
		os.Exit(1)
	}

	log.Info("call backfill complete",
		"total", result.Total,
		"processed", result.Processed,
		"attioUpdated", result.AttioUpdated,
		"errors", len(result.Errors))
	for _, e := range result.Errors {
		log.Warn("backfill item failed", "error", e)
	}
}
