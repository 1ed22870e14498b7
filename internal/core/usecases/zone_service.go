package usecases

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/core/ports"
	"github.com/samirrijal/civicmap/internal/pkg/metrics"
	"github.com/samirrijal/civicmap/internal/pkg/telemetry"
)

const topCategoryCount = 5

// ZoneService computes per-zone report statistics.
type ZoneService struct {
	reports ports.ReportRepository
}

// NewZoneService creates a new ZoneService.
func NewZoneService(reports ports.ReportRepository) *ZoneService {
	return &ZoneService{reports: reports}
}

// Analyze returns one ZoneReport per zone, in input order. Zones with no
// reports still get a zero-filled record.
func (s *ZoneService) Analyze(ctx context.Context, zones []domain.Zone) (out []domain.ZoneReport, err error) {
	ctx, span := telemetry.StartSpan(ctx, "ZoneService.Analyze",
		attribute.Int("zones", len(zones)))
	defer func() { telemetry.EndSpan(span, err) }()

	out = make([]domain.ZoneReport, 0, len(zones))
	scanned := 0
	for _, z := range zones {
		var reports []domain.Report
		if !z.Bounds.Degenerate() {
			bounds := z.Bounds
			reports, err = s.reports.Find(ctx, ports.ReportQuery{Bounds: &bounds})
			if err != nil {
				return nil, fmt.Errorf("find reports for zone %s: %w", z.ID, err)
			}
		}
		scanned += len(reports)
		out = append(out, summarizeZone(z, reports))
	}

	telemetry.RecordCounts(span, "zones", scanned, len(out))
	metrics.ObserveAnalytics("zones", scanned, len(out))
	return out, nil
}

func summarizeZone(z domain.Zone, reports []domain.Report) domain.ZoneReport {
	zr := domain.ZoneReport{
		ZoneID:        z.ID,
		ZoneName:      z.Name,
		TotalReports:  len(reports),
		TopCategories: []domain.CategoryCount{},
	}

	counts := make(map[domain.Category]int)
	var resolutionHours float64
	var resolvedWithTime int
	for _, r := range reports {
		counts[r.Category]++

		if r.Status == domain.StatusResolved {
			zr.ResolvedReports++
		}
		// Unresolved reports are excluded from the mean, not counted as zero.
		if r.ResolvedAt != nil {
			resolutionHours += r.ResolvedAt.Sub(r.CreatedAt).Hours()
			resolvedWithTime++
		}

		switch r.Priority {
		case domain.PriorityCritical:
			zr.PriorityDistribution.Critical++
		case domain.PriorityUrgent:
			zr.PriorityDistribution.Urgent++
		default:
			zr.PriorityDistribution.Normal++
		}
	}

	if resolvedWithTime > 0 {
		avg := round2(resolutionHours / float64(resolvedWithTime))
		zr.AvgResolutionHours = &avg
	}

	for cat, n := range counts {
		zr.TopCategories = append(zr.TopCategories, domain.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(zr.TopCategories, func(i, j int) bool {
		a, b := zr.TopCategories[i], zr.TopCategories[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Category < b.Category
	})
	if len(zr.TopCategories) > topCategoryCount {
		zr.TopCategories = zr.TopCategories[:topCategoryCount]
	}
	return zr
}
