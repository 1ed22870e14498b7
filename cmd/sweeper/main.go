package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/civicmap/internal/adapters/nats"
	"github.com/samirrijal/civicmap/internal/adapters/postgres"
	"github.com/samirrijal/civicmap/internal/core/usecases"
	"github.com/samirrijal/civicmap/internal/pkg/config"
	"github.com/samirrijal/civicmap/internal/pkg/logging"
	"github.com/samirrijal/civicmap/internal/pkg/telemetry"
	"github.com/samirrijal/civicmap/internal/workflows"
)

func main() {
	cfg, err := config.Load("civicmap-sweeper")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Alerts are the sweep's only output, so the broker is required here.
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	reports := postgres.NewReportRepo(db, postgres.BreakerOptions{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OpenTimeout:      cfg.Breaker.OpenTimeout(),
	})

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.HotspotSweepWorkflow)
	w.RegisterActivity(&workflows.SweepActivities{
		Hotspots: usecases.NewHotspotService(reports, pub),
	})

	// Start the cron schedule. An already running schedule with the same ID
	// is reused.
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           workflows.SweepWorkflowID,
		TaskQueue:    cfg.Temporal.TaskQueue,
		CronSchedule: cfg.Sweep.Cron,
	}, workflows.HotspotSweepWorkflow, workflows.SweepInput{
		MinReports: cfg.Sweep.MinReports,
		RadiusKm:   cfg.Sweep.RadiusKm,
		Lookback:   cfg.Sweep.Lookback(),
	})
	if err != nil {
		log.Fatalf("start sweep workflow: %v", err)
	}
	slog.Info("hotspot sweep scheduled",
		"workflow_id", run.GetID(), "run_id", run.GetRunID(), "cron", cfg.Sweep.Cron)

	slog.Info("sweeper worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
