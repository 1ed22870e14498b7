package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/core/ports"
	"github.com/samirrijal/civicmap/internal/pkg/geospatial"
	"github.com/samirrijal/civicmap/internal/pkg/metrics"
	"github.com/samirrijal/civicmap/internal/pkg/telemetry"
)

const (
	DefaultHotspotMinReports = 5
	MinHotspotMinReports     = 2
	DefaultHotspotRadiusKm   = 1.0
)

// HotspotQuery configures hotspot detection. RadiusKm is echoed on each
// hotspot and does not influence the grid.
type HotspotQuery struct {
	Category   *domain.Category
	DateFrom   *time.Time
	DateTo     *time.Time
	MinReports int
	RadiusKm   float64
}

type hotspotKey struct {
	cell     geospatial.Cell
	category domain.Category
}

// HotspotService detects dense clusters of same-category reports.
type HotspotService struct {
	reports   ports.ReportRepository
	publisher ports.AlertPublisher
	now       func() time.Time
}

// NewHotspotService creates a new HotspotService. publisher may be nil when
// alerts are not broadcast.
func NewHotspotService(reports ports.ReportRepository, publisher ports.AlertPublisher) *HotspotService {
	return &HotspotService{reports: reports, publisher: publisher, now: time.Now}
}

// Detect groups matching reports per (0.01° cell, category) and returns every
// group with at least MinReports members, largest first.
func (s *HotspotService) Detect(ctx context.Context, q HotspotQuery) (hotspots []domain.Hotspot, err error) {
	ctx, span := telemetry.StartSpan(ctx, "HotspotService.Detect")
	defer func() { telemetry.EndSpan(span, err) }()

	minReports := q.MinReports
	if minReports <= 0 {
		minReports = DefaultHotspotMinReports
	}
	if minReports < MinHotspotMinReports {
		minReports = MinHotspotMinReports
	}
	radius := q.RadiusKm
	if radius <= 0 {
		radius = DefaultHotspotRadiusKm
	}

	filter := domain.ReportFilter{DateFrom: q.DateFrom, DateTo: q.DateTo}
	if q.Category != nil {
		filter.Categories = []domain.Category{*q.Category}
	}
	reports, err := s.reports.Find(ctx, ports.ReportQuery{Filter: filter})
	if err != nil {
		return nil, fmt.Errorf("find hotspot reports: %w", err)
	}

	groups := groupReports(reports, func(r domain.Report) hotspotKey {
		return hotspotKey{
			cell:     geospatial.CellOf(r.Location.Lat, r.Location.Lng, HotspotCellDeg),
			category: r.Category,
		}
	})

	hotspots = []domain.Hotspot{}
	for _, key := range groups.keys {
		members := groups.members[key]
		if len(members) < minReports {
			continue
		}
		hotspots = append(hotspots, domain.Hotspot{
			Center:      centroid(members),
			Radius:      radius,
			ReportCount: len(members),
			Category:    key.category,
			Density:     len(members),
		})
	}

	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].ReportCount > hotspots[j].ReportCount
	})

	telemetry.RecordCounts(span, "hotspots", len(reports), len(hotspots))
	metrics.ObserveAnalytics("hotspots", len(reports), len(hotspots))
	return hotspots, nil
}

// centroid is the mean of the member coordinates, which avoids reporting
// every hotspot at a grid-quantized position.
func centroid(members []domain.Report) domain.GeoPoint {
	var lat, lng float64
	for _, r := range members {
		lat += r.Location.Lat
		lng += r.Location.Lng
	}
	n := float64(len(members))
	return domain.GeoPoint{Lat: lat / n, Lng: lng / n}
}

// Sweep runs Detect and publishes one alert per hotspot. Publishing is
// best-effort: a failed publish is logged and the sweep continues.
func (s *HotspotService) Sweep(ctx context.Context, q HotspotQuery) ([]domain.HotspotAlert, error) {
	hotspots, err := s.Detect(ctx, q)
	if err != nil {
		return nil, err
	}

	detectedAt := s.now().UTC()
	alerts := make([]domain.HotspotAlert, 0, len(hotspots))
	for _, h := range hotspots {
		alert := domain.HotspotAlert{
			ID:         uuid.NewString(),
			DetectedAt: detectedAt,
			Hotspot:    h,
		}
		alerts = append(alerts, alert)
		metrics.HotspotsDetected.WithLabelValues(string(h.Category)).Inc()

		if s.publisher == nil {
			continue
		}
		if err := s.publisher.PublishHotspotAlert(ctx, &alert); err != nil {
			slog.WarnContext(ctx, "publish hotspot alert failed",
				"category", h.Category, "reports", h.ReportCount, "error", err)
			continue
		}
		metrics.HotspotAlertsPublished.Inc()
	}
	return alerts, nil
}
