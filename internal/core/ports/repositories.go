package ports

import (
	"context"

	"github.com/samirrijal/civicmap/internal/core/domain"
)

// ReportQuery describes one filtered read against the report store.
type ReportQuery struct {
	Bounds    *domain.BoundingBox // nil means no spatial restriction
	Filter    domain.ReportFilter
	ExcludeID string
	Limit     int // <= 0 means unbounded
}

// ReportRepository is the read-only view of persisted reports. Results are
// ordered newest first.
type ReportRepository interface {
	Find(ctx context.Context, q ReportQuery) ([]domain.Report, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.Report, error)
}
