package usecases

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/core/ports"
	"github.com/samirrijal/civicmap/internal/pkg/metrics"
	"github.com/samirrijal/civicmap/internal/pkg/telemetry"
)

// FieldSpeedKmh is the assumed average travel speed of field staff.
const FieldSpeedKmh = 30.0

// RouteService orders a staff member's assigned reports into a visit plan.
type RouteService struct {
	reports ports.ReportRepository
}

// NewRouteService creates a new RouteService.
func NewRouteService(reports ports.ReportRepository) *RouteService {
	return &RouteService{reports: reports}
}

// Optimize builds a greedy nearest-neighbour route from start. Each step picks
// the unvisited report with the smallest distance × priority route weight,
// while the reported total is the unweighted distance travelled. IDs that no
// longer resolve are dropped. Cost is O(n²), fine for assignment-sized sets.
func (s *RouteService) Optimize(ctx context.Context, start domain.GeoPoint, reportIDs []string) (plan *domain.RoutePlan, err error) {
	ctx, span := telemetry.StartSpan(ctx, "RouteService.Optimize",
		attribute.Int("requested", len(reportIDs)))
	defer func() { telemetry.EndSpan(span, err) }()

	plan = &domain.RoutePlan{VisitOrder: []string{}}

	ids := dedupe(reportIDs)
	if len(ids) == 0 {
		return plan, nil
	}

	found, err := s.reports.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve assigned reports: %w", err)
	}

	// Candidates follow request order so ties resolve the same way every call.
	byID := make(map[string]domain.Report, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}
	unvisited := make([]domain.Report, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			unvisited = append(unvisited, r)
		}
	}

	current := start
	var total float64
	for len(unvisited) > 0 {
		best := 0
		bestScore := math.Inf(1)
		for i, r := range unvisited {
			score := current.DistanceKm(r.Location) * r.Priority.RouteWeight()
			if score < bestScore {
				best, bestScore = i, score
			}
		}

		next := unvisited[best]
		total += current.DistanceKm(next.Location)
		plan.VisitOrder = append(plan.VisitOrder, next.ID)
		current = next.Location
		unvisited = append(unvisited[:best], unvisited[best+1:]...)
	}

	plan.TotalDistanceKm = round2(total)
	plan.EstimatedMinutes = int(math.Round(plan.TotalDistanceKm / FieldSpeedKmh * 60))

	metrics.RouteDistanceKm.Observe(plan.TotalDistanceKm)
	telemetry.RecordCounts(span, "route", len(found), len(plan.VisitOrder))
	metrics.ObserveAnalytics("route", len(found), len(plan.VisitOrder))
	return plan, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
