package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/civicmap/internal/adapters/http"
	natsadapter "github.com/samirrijal/civicmap/internal/adapters/nats"
	"github.com/samirrijal/civicmap/internal/adapters/postgres"
	"github.com/samirrijal/civicmap/internal/adapters/valkey"
	"github.com/samirrijal/civicmap/internal/core/usecases"
	"github.com/samirrijal/civicmap/internal/pkg/config"
	"github.com/samirrijal/civicmap/internal/pkg/logging"
	"github.com/samirrijal/civicmap/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("civicmap-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Report store
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	reports := postgres.NewReportRepo(db, postgres.BreakerOptions{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		OpenTimeout:      cfg.Breaker.OpenTimeout(),
	})

	// Shared rate-limit counters; falls back to in-memory when unavailable
	limiterStore, err := valkey.New(cfg.Valkey.Addr, "civicmap:limiter:")
	if err != nil {
		slog.Warn("valkey unavailable, using in-memory rate limiting", "error", err)
	} else {
		defer limiterStore.Close()
	}

	deps := &http.Dependencies{
		Maps:           usecases.NewMapService(reports),
		Hotspots:       usecases.NewHotspotService(reports, nil),
		Zones:          usecases.NewZoneService(reports),
		Routes:         usecases.NewRouteService(reports),
		DB:             db,
		Limiter:        limiterStore,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
	}

	// Hotspot alert feed for WebSocket clients
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, websocket feed disabled", "error", err)
	} else {
		defer natsConn.Close()
		deps.NATS = natsConn
		deps.Feed = natsadapter.NewSubscriber(natsConn)
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "CivicMap Analytics API",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: http.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
