package metrics

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicmap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "civicmap",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "civicmap",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Analytics metrics
	ReportsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicmap",
		Subsystem: "analytics",
		Name:      "reports_scanned_total",
		Help:      "Total reports read from the repository by analytics operations",
	}, []string{"operation"})

	ResultsReturned = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "civicmap",
		Subsystem: "analytics",
		Name:      "results_returned",
		Help:      "Number of rows, cells, hotspots or zones returned per operation",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"operation"})

	HotspotsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "civicmap",
		Subsystem: "analytics",
		Name:      "hotspots_detected_total",
		Help:      "Hotspots found by scheduled sweeps, by category",
	}, []string{"category"})

	HotspotAlertsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "civicmap",
		Subsystem: "analytics",
		Name:      "hotspot_alerts_published_total",
		Help:      "Total hotspot alerts published to the broker",
	})

	RouteDistanceKm = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "civicmap",
		Subsystem: "analytics",
		Name:      "route_distance_km",
		Help:      "Total travel distance of optimized field routes",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 250},
	})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "civicmap",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "civicmap",
		Subsystem: "db",
		Name:      "breaker_state",
		Help:      "Repository circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "civicmap",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "civicmap",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "civicmap",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// ObserveAnalytics records how many reports an operation scanned and how
// many results it produced.
func ObserveAnalytics(operation string, scanned, returned int) {
	ReportsScanned.WithLabelValues(operation).Add(float64(scanned))
	ResultsReturned.WithLabelValues(operation).Observe(float64(returned))
	slog.Debug("analytics operation", "operation", operation, "scanned", scanned, "returned", returned)
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		// Route pattern keeps label cardinality bounded.
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// UpdateDBPoolMetrics updates database pool gauges from pgx pool stats.
func UpdateDBPoolMetrics(stat interface{}) {
	// Structural match keeps pgxpool out of this package.
	type poolStat interface {
		AcquiredConns() int32
		IdleConns() int32
		TotalConns() int32
	}

	if s, ok := stat.(poolStat); ok {
		DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
		DBPoolConnsIdle.Set(float64(s.IdleConns()))
		DBPoolConnsOpen.Set(float64(s.TotalConns()))
	}
}
