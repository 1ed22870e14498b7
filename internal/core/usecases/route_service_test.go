package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/core/usecases"
	"github.com/samirrijal/civicmap/internal/pkg/geospatial"
)

// kmNorth returns the latitude lying km north of the equator at lng 0.
func kmNorth(km float64) float64 {
	return geospatial.ToDeg(km / 6371.0)
}

func TestRouteService_CriticalFavouredDespiteDistance(t *testing.T) {
	start := domain.GeoPoint{Lat: 0, Lng: 0}
	reports := []domain.Report{
		report("normal", kmNorth(1.0), 0, domain.CategoryPothole, domain.PriorityNormal),
		report("critical", -kmNorth(1.8), 0, domain.CategoryWaterLeak, domain.PriorityCritical),
	}
	svc := usecases.NewRouteService(memoryRepo(reports...))

	plan, err := svc.Optimize(context.Background(), start, []string{"normal", "critical"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Weighted scores: critical 1.8 × 0.5 = 0.9, normal 1.0 × 1.0 = 1.0.
	if len(plan.VisitOrder) != 2 || plan.VisitOrder[0] != "critical" {
		t.Fatalf("expected critical first, got %v", plan.VisitOrder)
	}
	// Real travel: 1.8 km south, then 2.8 km north.
	if math.Abs(plan.TotalDistanceKm-4.6) > 0.01 {
		t.Errorf("expected unweighted total 4.6 km, got %v", plan.TotalDistanceKm)
	}
	if plan.EstimatedMinutes != 9 {
		t.Errorf("expected 9 minutes at 30 km/h, got %d", plan.EstimatedMinutes)
	}
}

func TestRouteService_NearestWinsAtEqualPriority(t *testing.T) {
	start := domain.GeoPoint{Lat: 0, Lng: 0}
	reports := []domain.Report{
		report("critical10", kmNorth(10), 0, domain.CategoryOther, domain.PriorityCritical),
		report("normal1", -kmNorth(1), 0, domain.CategoryOther, domain.PriorityNormal),
	}
	svc := usecases.NewRouteService(memoryRepo(reports...))

	plan, err := svc.Optimize(context.Background(), start, []string{"critical10", "normal1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 10 × 0.5 = 5.0 loses to 1 × 1.0 = 1.0.
	if plan.VisitOrder[0] != "normal1" {
		t.Errorf("expected normal1 first, got %v", plan.VisitOrder)
	}
}

func TestRouteService_Completeness(t *testing.T) {
	var reports []domain.Report
	var ids []string
	prios := domain.Priorities
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("r%02d", i)
		reports = append(reports, report(id, 43.2+float64(i%5)*0.01, -2.9-float64(i/5)*0.01,
			domain.CategoryOther, prios[i%len(prios)]))
		ids = append(ids, id)
	}
	svc := usecases.NewRouteService(memoryRepo(reports...))

	requested := append([]string{"r03", "stale-1"}, ids...)
	requested = append(requested, "r03", "stale-2")

	plan, err := svc.Optimize(context.Background(), domain.GeoPoint{Lat: 43.2, Lng: -2.9}, requested)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.VisitOrder) != len(ids) {
		t.Fatalf("expected %d visits, got %d", len(ids), len(plan.VisitOrder))
	}
	seen := make(map[string]bool)
	for _, id := range plan.VisitOrder {
		if seen[id] {
			t.Errorf("duplicate visit %s", id)
		}
		seen[id] = true
	}
	for _, id := range ids {
		if !seen[id] {
			t.Errorf("missing visit %s", id)
		}
	}
	if plan.TotalDistanceKm <= 0 {
		t.Errorf("expected positive distance, got %v", plan.TotalDistanceKm)
	}
}

func TestRouteService_AllStale(t *testing.T) {
	svc := usecases.NewRouteService(memoryRepo())

	plan, err := svc.Optimize(context.Background(), domain.GeoPoint{}, []string{"gone"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.VisitOrder == nil || len(plan.VisitOrder) != 0 {
		t.Errorf("expected empty visit order, got %v", plan.VisitOrder)
	}
	if plan.TotalDistanceKm != 0 || plan.EstimatedMinutes != 0 {
		t.Errorf("expected zero totals, got %+v", plan)
	}
}

func TestRouteService_RepositoryError(t *testing.T) {
	repo := &mockReportRepo{
		getByIDsFn: func(ctx context.Context, ids []string) ([]domain.Report, error) {
			return nil, errors.New("db down")
		},
	}
	svc := usecases.NewRouteService(repo)

	if _, err := svc.Optimize(context.Background(), domain.GeoPoint{}, []string{"a"}); err == nil {
		t.Error("expected error")
	}
}
