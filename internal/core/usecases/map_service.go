package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/core/ports"
	"github.com/samirrijal/civicmap/internal/pkg/metrics"
	"github.com/samirrijal/civicmap/internal/pkg/telemetry"
)

const (
	// MaxBoundsReports caps the unclustered bounding-box response.
	MaxBoundsReports = 1000
	// DefaultNearbyLimit and MaxNearbyLimit bound the nearby response.
	DefaultNearbyLimit = 50
	MaxNearbyLimit     = 200
)

// BoundsQuery selects reports inside a bounding box.
type BoundsQuery struct {
	Bounds      domain.BoundingBox
	Filter      domain.ReportFilter
	Clustered   bool
	CellSizeDeg float64
}

// BoundsResult carries either individual reports or clusters, never both.
type BoundsResult struct {
	Clustered bool
	Reports   []domain.Report
	Clusters  []domain.ClusterPoint
}

// HeatmapQuery selects the reports that feed a heatmap.
type HeatmapQuery struct {
	Bounds     domain.BoundingBox
	Categories []domain.Category
	DateFrom   *time.Time
	DateTo     *time.Time
	GridDeg    float64
}

// NearbyQuery selects reports within a radius of a point.
type NearbyQuery struct {
	Center          domain.GeoPoint
	RadiusKm        float64
	Categories      []domain.Category
	ExcludeReportID string
	Limit           int
}

// MapService serves the map views: bounded queries, heatmaps and nearby lookups.
type MapService struct {
	reports ports.ReportRepository
}

// NewMapService creates a new MapService.
func NewMapService(reports ports.ReportRepository) *MapService {
	return &MapService{reports: reports}
}

// Query returns the reports inside q.Bounds, either as up to MaxBoundsReports
// rows (newest first) or as one cluster per non-empty grid cell.
func (s *MapService) Query(ctx context.Context, q BoundsQuery) (res *BoundsResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "MapService.Query",
		attribute.Bool("clustered", q.Clustered))
	defer func() { telemetry.EndSpan(span, err) }()

	res = &BoundsResult{
		Clustered: q.Clustered,
		Reports:   []domain.Report{},
		Clusters:  []domain.ClusterPoint{},
	}
	if q.Bounds.Degenerate() {
		return res, nil
	}

	// Clusters aggregate every match, so the clustered and flat views only
	// cover the same reports while at most MaxBoundsReports match.
	limit := MaxBoundsReports
	if q.Clustered {
		limit = 0
	}
	bounds := q.Bounds
	reports, err := s.reports.Find(ctx, ports.ReportQuery{Bounds: &bounds, Filter: q.Filter, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("find reports in bounds: %w", err)
	}

	if !q.Clustered {
		if len(reports) > MaxBoundsReports {
			reports = reports[:MaxBoundsReports]
		}
		res.Reports = append(res.Reports, reports...)
		telemetry.RecordCounts(span, "bounds", len(reports), len(res.Reports))
		metrics.ObserveAnalytics("bounds", len(reports), len(res.Reports))
		return res, nil
	}

	cell := q.CellSizeDeg
	if cell <= 0 {
		cell = DefaultClusterCellDeg
	}
	res.Clusters = clusterReports(reports, cell)

	span.SetAttributes(attribute.Float64(telemetry.AttrCellSizeDeg, cell))
	telemetry.RecordCounts(span, "clusters", len(reports), len(res.Clusters))
	metrics.ObserveAnalytics("clusters", len(reports), len(res.Clusters))
	slog.DebugContext(ctx, "clustered reports", "reports", len(reports), "clusters", len(res.Clusters))
	return res, nil
}

func clusterReports(reports []domain.Report, cellSizeDeg float64) []domain.ClusterPoint {
	groups := groupReports(reports, byCell(cellSizeDeg))

	clusters := make([]domain.ClusterPoint, 0, len(groups.keys))
	for _, key := range groups.keys {
		members := groups.members[key]
		cp := domain.ClusterPoint{
			Location:         cellCenter(key, cellSizeDeg),
			Count:            len(members),
			MemberIDs:        make([]string, 0, len(members)),
			Categories:       []domain.Category{},
			Statuses:         []domain.Status{},
			AvgPriorityScore: meanPriorityWeight(members),
		}
		seenCat := make(map[domain.Category]bool)
		seenStatus := make(map[domain.Status]bool)
		for _, r := range members {
			cp.MemberIDs = append(cp.MemberIDs, r.ID)
			if !seenCat[r.Category] {
				seenCat[r.Category] = true
				cp.Categories = append(cp.Categories, r.Category)
			}
			if !seenStatus[r.Status] {
				seenStatus[r.Status] = true
				cp.Statuses = append(cp.Statuses, r.Status)
			}
		}
		clusters = append(clusters, cp)
	}
	return clusters
}

// Heatmap returns one weighted point per non-empty grid cell in q.Bounds.
// Intensity is count × mean priority weight and is left unnormalized.
func (s *MapService) Heatmap(ctx context.Context, q HeatmapQuery) (points []domain.HeatmapPoint, err error) {
	ctx, span := telemetry.StartSpan(ctx, "MapService.Heatmap")
	defer func() { telemetry.EndSpan(span, err) }()

	points = []domain.HeatmapPoint{}
	if q.Bounds.Degenerate() {
		return points, nil
	}

	cell := q.GridDeg
	if cell <= 0 {
		cell = DefaultHeatmapCellDeg
	}

	bounds := q.Bounds
	reports, err := s.reports.Find(ctx, ports.ReportQuery{
		Bounds: &bounds,
		Filter: domain.ReportFilter{Categories: q.Categories, DateFrom: q.DateFrom, DateTo: q.DateTo},
	})
	if err != nil {
		return nil, fmt.Errorf("find heatmap reports: %w", err)
	}

	groups := groupReports(reports, byCell(cell))
	for _, key := range groups.keys {
		members := groups.members[key]
		points = append(points, domain.HeatmapPoint{
			Location:  cellCenter(key, cell),
			Intensity: float64(len(members)) * meanPriorityWeight(members),
		})
	}

	telemetry.RecordCounts(span, "heatmap", len(reports), len(points))
	metrics.ObserveAnalytics("heatmap", len(reports), len(points))
	return points, nil
}

// Nearby returns reports within q.RadiusKm of q.Center, closest first.
// Reports at equal distance keep the repository's order.
func (s *MapService) Nearby(ctx context.Context, q NearbyQuery) (out []domain.Report, err error) {
	ctx, span := telemetry.StartSpan(ctx, "MapService.Nearby",
		attribute.Float64("radius_km", q.RadiusKm))
	defer func() { telemetry.EndSpan(span, err) }()

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}
	if limit > MaxNearbyLimit {
		limit = MaxNearbyLimit
	}

	// The envelopes only narrow candidates; Haversine decides membership.
	envelopes := domain.EnvelopesAround(q.Center, q.RadiusKm)
	var candidates []domain.Report
	seen := make(map[string]bool)
	for i := range envelopes {
		found, err := s.reports.Find(ctx, ports.ReportQuery{
			Bounds:    &envelopes[i],
			Filter:    domain.ReportFilter{Categories: q.Categories},
			ExcludeID: q.ExcludeReportID,
		})
		if err != nil {
			return nil, fmt.Errorf("find nearby candidates: %w", err)
		}
		for _, r := range found {
			if !seen[r.ID] {
				seen[r.ID] = true
				candidates = append(candidates, r)
			}
		}
	}
	if len(envelopes) > 1 {
		// Restore the repository's newest-first order across both sides.
		sort.SliceStable(candidates, func(i, j int) bool {
			if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
				return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
			}
			return candidates[i].ID < candidates[j].ID
		})
	}

	out = make([]domain.Report, 0, len(candidates))
	for _, r := range candidates {
		if q.ExcludeReportID != "" && r.ID == q.ExcludeReportID {
			continue
		}
		d := q.Center.DistanceKm(r.Location)
		if d > q.RadiusKm {
			continue
		}
		r.DistanceKm = &d
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].DistanceKm < *out[j].DistanceKm
	})
	if len(out) > limit {
		out = out[:limit]
	}

	telemetry.RecordCounts(span, "nearby", len(candidates), len(out))
	metrics.ObserveAnalytics("nearby", len(candidates), len(out))
	return out, nil
}
