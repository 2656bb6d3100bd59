// Command lead-import runs a one-off lead-form import with CRM dedup: each
// lead with no existing CRM record (matched by phone, then email) gets a new
// person record.
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
	formID := flag.String("form", "", "lead form id to import")
	flag.Parse()

	if *formID == "" {
		panic("-form is required")
	}

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting lead import", "formId", *formID)

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

	result, err := svc.ImportLeads(ctx, *formID)
	if err != nil {
		log.Error("lead import failed", "error", err)
		os.Exit(1)
	}

	log.Info("lead import complete",
		"total", result.Total,
		"created", result.Created,
		"skipped", result.Skipped,
		"errors", len(result.Errors))
	for _, e := range result.Errors {
		log.Warn("import item failed", "error", e)
	}
}
