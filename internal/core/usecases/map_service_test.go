package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/core/ports"
	"github.com/samirrijal/civicmap/internal/core/usecases"
)

var nyBox = domain.BoundingBox{North: 41, South: 40, East: -73, West: -75}

func scenarioReports() []domain.Report {
	return []domain.Report{
		report("r1", 40.5, -74.0, domain.CategoryPothole, domain.PriorityNormal),
		report("r2", 40.5, -74.0, domain.CategoryWaterLeak, domain.PriorityUrgent),
		report("r3", 40.6, -74.2, domain.CategoryPothole, domain.PriorityCritical),
	}
}

func TestMapService_Query_ClustersByCell(t *testing.T) {
	svc := usecases.NewMapService(memoryRepo(scenarioReports()...))

	res, err := svc.Query(context.Background(), usecases.BoundsQuery{
		Bounds:      nyBox,
		Clustered:   true,
		CellSizeDeg: 0.1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(res.Clusters))
	}

	counts := []int{res.Clusters[0].Count, res.Clusters[1].Count}
	sort.Ints(counts)
	if counts[0] != 1 || counts[1] != 2 {
		t.Errorf("expected cluster sizes [1 2], got %v", counts)
	}

	for _, c := range res.Clusters {
		if c.Count != 2 {
			continue
		}
		if len(c.Categories) != 2 {
			t.Errorf("expected 2 distinct categories, got %v", c.Categories)
		}
		if len(c.Statuses) != 1 {
			t.Errorf("expected 1 distinct status, got %v", c.Statuses)
		}
		if c.AvgPriorityScore != 1.5 {
			t.Errorf("expected avg priority 1.5, got %v", c.AvgPriorityScore)
		}
		if math.Abs(c.Location.Lat-40.5) > 1e-9 || math.Abs(c.Location.Lng+74.0) > 1e-9 {
			t.Errorf("expected cell centre (40.5,-74.0), got %+v", c.Location)
		}
	}
}

func TestMapService_Query_CoarseCellMergesNeighbours(t *testing.T) {
	// With 0.5° cells all three scenario points round into the same cell.
	svc := usecases.NewMapService(memoryRepo(scenarioReports()...))

	res, err := svc.Query(context.Background(), usecases.BoundsQuery{
		Bounds:      nyBox,
		Clustered:   true,
		CellSizeDeg: 0.5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Clusters) != 1 || res.Clusters[0].Count != 3 {
		t.Fatalf("expected a single cluster of 3, got %+v", res.Clusters)
	}
}

func TestMapService_Query_PartitionInvariant(t *testing.T) {
	var reports []domain.Report
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	cats := domain.Categories
	prios := domain.Priorities
	for i := 0; i < 300; i++ {
		r := report(fmt.Sprintf("r%03d", i),
			40+float64(i%37)*0.031, -75+float64(i%53)*0.043,
			cats[i%len(cats)], prios[i%len(prios)])
		r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		reports = append(reports, r)
	}
	svc := usecases.NewMapService(memoryRepo(reports...))

	filters := []domain.ReportFilter{
		{},
		{Categories: []domain.Category{domain.CategoryPothole, domain.CategoryNoise}},
		{Priorities: []domain.Priority{domain.PriorityCritical}},
	}
	for i, f := range filters {
		flat, err := svc.Query(context.Background(), usecases.BoundsQuery{Bounds: nyBox, Filter: f})
		if err != nil {
			t.Fatalf("filter %d: %v", i, err)
		}
		clustered, err := svc.Query(context.Background(), usecases.BoundsQuery{
			Bounds: nyBox, Filter: f, Clustered: true, CellSizeDeg: 0.05,
		})
		if err != nil {
			t.Fatalf("filter %d: %v", i, err)
		}

		want := make(map[string]bool)
		for _, r := range flat.Reports {
			want[r.ID] = true
		}
		seen := make(map[string]bool)
		for _, c := range clustered.Clusters {
			if c.Count != len(c.MemberIDs) {
				t.Errorf("filter %d: cluster count %d != members %d", i, c.Count, len(c.MemberIDs))
			}
			for _, id := range c.MemberIDs {
				if seen[id] {
					t.Errorf("filter %d: report %s in more than one cluster", i, id)
				}
				seen[id] = true
				if !want[id] {
					t.Errorf("filter %d: clustered report %s missing from flat result", i, id)
				}
			}
		}
		if len(seen) != len(want) {
			t.Errorf("filter %d: clustered %d reports, flat %d", i, len(seen), len(want))
		}
	}
}

func TestMapService_Query_PartitionAboveCap(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	reports := make([]domain.Report, usecases.MaxBoundsReports+25)
	for i := range reports {
		reports[i] = report(fmt.Sprintf("r%04d", i), 40.5, -74, domain.CategoryOther, domain.PriorityNormal)
		reports[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
	}
	svc := usecases.NewMapService(memoryRepo(reports...))

	flat, err := svc.Query(context.Background(), usecases.BoundsQuery{Bounds: nyBox})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clustered, err := svc.Query(context.Background(), usecases.BoundsQuery{Bounds: nyBox, Clustered: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(flat.Reports) != usecases.MaxBoundsReports {
		t.Fatalf("expected flat result capped at %d, got %d", usecases.MaxBoundsReports, len(flat.Reports))
	}
	total := 0
	for _, c := range clustered.Clusters {
		total += c.Count
	}
	if total != len(reports) {
		t.Errorf("expected clusters to cover all %d reports, got %d", len(reports), total)
	}
	// Flat keeps the newest reports; the oldest fall outside the cap.
	for _, r := range flat.Reports {
		if r.ID < "r0025" {
			t.Errorf("flat result kept old report %s", r.ID)
		}
	}
}

func TestMapService_Query_CapsUnclustered(t *testing.T) {
	var limitSeen int
	repo := &mockReportRepo{
		findFn: func(ctx context.Context, q ports.ReportQuery) ([]domain.Report, error) {
			limitSeen = q.Limit
			out := make([]domain.Report, 1200)
			for i := range out {
				out[i] = report(fmt.Sprintf("r%d", i), 40.5, -74, domain.CategoryOther, domain.PriorityNormal)
			}
			return out, nil
		},
	}
	svc := usecases.NewMapService(repo)

	res, err := svc.Query(context.Background(), usecases.BoundsQuery{Bounds: nyBox})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limitSeen != usecases.MaxBoundsReports {
		t.Errorf("expected repository limit %d, got %d", usecases.MaxBoundsReports, limitSeen)
	}
	if len(res.Reports) != usecases.MaxBoundsReports {
		t.Errorf("expected %d reports, got %d", usecases.MaxBoundsReports, len(res.Reports))
	}

	_, _ = svc.Query(context.Background(), usecases.BoundsQuery{Bounds: nyBox, Clustered: true})
	if limitSeen != 0 {
		t.Errorf("clustered query must be uncapped, got limit %d", limitSeen)
	}
}

func TestMapService_Query_DegenerateBox(t *testing.T) {
	called := false
	repo := &mockReportRepo{
		findFn: func(ctx context.Context, q ports.ReportQuery) ([]domain.Report, error) {
			called = true
			return nil, nil
		},
	}
	svc := usecases.NewMapService(repo)

	boxes := []domain.BoundingBox{
		{North: 40, South: 41, East: -73, West: -75},
		{North: 41, South: 40, East: -75, West: -73},
	}
	for _, b := range boxes {
		for _, clustered := range []bool{false, true} {
			res, err := svc.Query(context.Background(), usecases.BoundsQuery{Bounds: b, Clustered: clustered})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Reports) != 0 || len(res.Clusters) != 0 {
				t.Errorf("expected empty result for %+v", b)
			}
			if res.Reports == nil || res.Clusters == nil {
				t.Error("expected empty slices, not nil")
			}
		}
	}
	if called {
		t.Error("repository must not be queried for a degenerate box")
	}
}

func TestMapService_Query_RepositoryError(t *testing.T) {
	boom := errors.New("connection refused")
	repo := &mockReportRepo{
		findFn: func(ctx context.Context, q ports.ReportQuery) ([]domain.Report, error) {
			return nil, boom
		},
	}
	svc := usecases.NewMapService(repo)

	_, err := svc.Query(context.Background(), usecases.BoundsQuery{Bounds: nyBox})
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped repository error, got %v", err)
	}
}

func TestMapService_Heatmap_Intensity(t *testing.T) {
	reports := []domain.Report{
		report("a", 40.5001, -74.0001, domain.CategoryPothole, domain.PriorityNormal),
		report("b", 40.5002, -74.0002, domain.CategoryPothole, domain.PriorityCritical),
		report("c", 40.5003, -74.0003, domain.CategoryNoise, domain.PriorityUrgent),
		report("d", 40.7, -74.3, domain.CategoryNoise, domain.PriorityNormal),
	}
	svc := usecases.NewMapService(memoryRepo(reports...))

	points, err := svc.Heatmap(context.Background(), usecases.HeatmapQuery{Bounds: nyBox})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(points))
	}

	got := map[float64]bool{}
	for _, p := range points {
		got[math.Round(p.Intensity*1000)/1000] = true
	}
	// 3 members with weights 1, 3, 2 -> 3 × 2.0; lone NORMAL -> 1.
	if !got[6] || !got[1] {
		t.Errorf("expected intensities {6, 1}, got %+v", points)
	}
}

func TestMapService_Heatmap_CategoryFilter(t *testing.T) {
	var filter domain.ReportFilter
	repo := &mockReportRepo{
		findFn: func(ctx context.Context, q ports.ReportQuery) ([]domain.Report, error) {
			filter = q.Filter
			return nil, nil
		},
	}
	svc := usecases.NewMapService(repo)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	points, err := svc.Heatmap(context.Background(), usecases.HeatmapQuery{
		Bounds:     nyBox,
		Categories: []domain.Category{domain.CategoryGraffiti},
		DateFrom:   &from,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if points == nil || len(points) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", points)
	}
	if len(filter.Categories) != 1 || filter.Categories[0] != domain.CategoryGraffiti {
		t.Errorf("expected category filter to reach repository, got %+v", filter)
	}
	if filter.DateFrom == nil || !filter.DateFrom.Equal(from) {
		t.Errorf("expected dateFrom to reach repository, got %+v", filter.DateFrom)
	}
}

func TestMapService_Nearby_SortedAndFiltered(t *testing.T) {
	center := domain.GeoPoint{Lat: 43.2630, Lng: -2.9350}
	reports := []domain.Report{
		report("far", 43.2900, -2.9350, domain.CategoryPothole, domain.PriorityNormal),  // ~3 km
		report("near", 43.2640, -2.9350, domain.CategoryPothole, domain.PriorityNormal), // ~0.11 km
		report("self", 43.2630, -2.9350, domain.CategoryPothole, domain.PriorityNormal),
		report("mid", 43.2700, -2.9350, domain.CategoryNoise, domain.PriorityNormal), // ~0.78 km
		report("out", 43.4000, -2.9350, domain.CategoryPothole, domain.PriorityNormal),
	}
	svc := usecases.NewMapService(memoryRepo(reports...))

	got, err := svc.Nearby(context.Background(), usecases.NearbyQuery{
		Center:          center,
		RadiusKm:        5,
		ExcludeReportID: "self",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"near", "mid", "far"}
	if len(got) != len(want) {
		t.Fatalf("expected %d reports, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
		if got[i].DistanceKm == nil {
			t.Fatalf("position %d: missing distance", i)
		}
	}
	if d := *got[0].DistanceKm; math.Abs(d-0.111) > 0.01 {
		t.Errorf("expected ~0.111 km, got %.4f", d)
	}

	onlyNoise, err := svc.Nearby(context.Background(), usecases.NearbyQuery{
		Center:     center,
		RadiusKm:   5,
		Categories: []domain.Category{domain.CategoryNoise},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(onlyNoise) != 1 || onlyNoise[0].ID != "mid" {
		t.Errorf("expected only mid, got %+v", onlyNoise)
	}
}

func TestMapService_Nearby_StableTiesAndLimit(t *testing.T) {
	center := domain.GeoPoint{Lat: 10, Lng: 10}
	repo := &mockReportRepo{
		findFn: func(ctx context.Context, q ports.ReportQuery) ([]domain.Report, error) {
			var out []domain.Report
			for i := 0; i < 5; i++ {
				out = append(out, report(fmt.Sprintf("t%d", i), 10.001, 10, domain.CategoryOther, domain.PriorityNormal))
			}
			return out, nil
		},
	}
	svc := usecases.NewMapService(repo)

	got, err := svc.Nearby(context.Background(), usecases.NearbyQuery{Center: center, RadiusKm: 1, Limit: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 reports, got %d", len(got))
	}
	for i, r := range got {
		if want := fmt.Sprintf("t%d", i); r.ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, r.ID)
		}
	}
}

func TestMapService_Nearby_ClampLimit(t *testing.T) {
	center := domain.GeoPoint{Lat: 10, Lng: 10}
	repo := &mockReportRepo{
		findFn: func(ctx context.Context, q ports.ReportQuery) ([]domain.Report, error) {
			out := make([]domain.Report, 300)
			for i := range out {
				out[i] = report(fmt.Sprintf("r%d", i), 10, 10, domain.CategoryOther, domain.PriorityNormal)
			}
			return out, nil
		},
	}
	svc := usecases.NewMapService(repo)

	got, _ := svc.Nearby(context.Background(), usecases.NearbyQuery{Center: center, RadiusKm: 1, Limit: 999})
	if len(got) != usecases.MaxNearbyLimit {
		t.Errorf("expected limit clamped to %d, got %d", usecases.MaxNearbyLimit, len(got))
	}
	got, _ = svc.Nearby(context.Background(), usecases.NearbyQuery{Center: center, RadiusKm: 1})
	if len(got) != usecases.DefaultNearbyLimit {
		t.Errorf("expected default limit %d, got %d", usecases.DefaultNearbyLimit, len(got))
	}
}

func TestMapService_Nearby_AcrossAntimeridian(t *testing.T) {
	reports := []domain.Report{
		report("west", 0, -179.99, domain.CategoryPothole, domain.PriorityNormal),
		report("east", 0, 179.995, domain.CategoryPothole, domain.PriorityNormal),
		report("far", 0, 179.5, domain.CategoryPothole, domain.PriorityNormal),
	}
	repo := memoryRepo(reports...)
	var queries []ports.ReportQuery
	find := repo.findFn
	repo.findFn = func(ctx context.Context, q ports.ReportQuery) ([]domain.Report, error) {
		queries = append(queries, q)
		return find(ctx, q)
	}
	svc := usecases.NewMapService(repo)

	got, err := svc.Nearby(context.Background(), usecases.NearbyQuery{
		Center:   domain.GeoPoint{Lat: 0, Lng: 179.99},
		RadiusKm: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected the envelope split into 2 queries, got %d", len(queries))
	}
	for _, q := range queries {
		if q.Bounds.West < -180 || q.Bounds.East > 180 {
			t.Errorf("envelope out of range: %+v", *q.Bounds)
		}
	}

	if len(got) != 2 || got[0].ID != "east" || got[1].ID != "west" {
		t.Fatalf("expected east then west, got %+v", got)
	}
	if d := *got[1].DistanceKm; math.Abs(d-2.224) > 0.01 {
		t.Errorf("expected ~2.224 km across the antimeridian, got %.4f", d)
	}
}
