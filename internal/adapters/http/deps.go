package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/civicmap/internal/adapters/postgres"
	"github.com/samirrijal/civicmap/internal/adapters/valkey"
	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/core/usecases"
)

// HotspotFeed streams hotspot alerts to live map clients.
type HotspotFeed interface {
	SubscribeHotspotAlerts(category domain.Category, handler func(alert *domain.HotspotAlert)) (func(), error)
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Maps     *usecases.MapService
	Hotspots *usecases.HotspotService
	Zones    *usecases.ZoneService
	Routes   *usecases.RouteService
	Feed     HotspotFeed
	NATS     *nats.Conn
	DB       *postgres.DB
	Limiter  *valkey.Storage

	// RequestTimeout bounds every /maps request. Zero means 15s.
	RequestTimeout time.Duration

	// OpenAPIPath locates the document served under /docs. Empty means
	// api/openapi.yaml relative to the working directory.
	OpenAPIPath string
}

func (d *Dependencies) requestTimeout() time.Duration {
	if d.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return d.RequestTimeout
}
