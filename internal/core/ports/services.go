package ports

import (
	"context"

	"github.com/samirrijal/civicmap/internal/core/domain"
)

// AlertPublisher publishes hotspot alerts to a message broker.
type AlertPublisher interface {
	PublishHotspotAlert(ctx context.Context, alert *domain.HotspotAlert) error
}
