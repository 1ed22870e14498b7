package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/civicmap/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID, then request span and logger
	app.Use(requestid.New())
	app.Use(RequestContextMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP, shared through Valkey
	// when it is available.
	limiterCfg := limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited",
				"too many requests, please try again later")
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
	}
	if deps.Limiter != nil {
		limiterCfg.Storage = deps.Limiter
	}
	app.Use(limiter.New(limiterCfg))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(CacheControlMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/health", HealthHandler())
	app.Get("/ready", ReadyHandler(deps))

	// Map analytics, each bounded by the request timeout
	d := deps.requestTimeout()
	maps := app.Group("/maps")
	maps.Get("/reports", timeout.NewWithContext(ReportsInBoundsHandler(deps), d))
	maps.Get("/heatmap", timeout.NewWithContext(HeatmapHandler(deps), d))
	maps.Get("/nearby", timeout.NewWithContext(NearbyReportsHandler(deps), d))
	maps.Get("/hotspots", timeout.NewWithContext(HotspotsHandler(deps), d))
	maps.Post("/zones/analytics", timeout.NewWithContext(ZoneAnalyticsHandler(deps), d))
	maps.Post("/route/optimize", timeout.NewWithContext(OptimizeRouteHandler(deps), d))

	// GraphQL
	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), d))

	registerDocs(app, deps.openAPIPath())

	// WebSocket hotspot feed
	if deps.Feed != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.Feed)))
	}

	app.Use(func(c *fiber.Ctx) error {
		return errNotFound(c, "route not found")
	})
}
