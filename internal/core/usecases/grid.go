package usecases

import (
	"math"

	"github.com/samirrijal/civicmap/internal/core/domain"
	"github.com/samirrijal/civicmap/internal/pkg/geospatial"
)

const (
	// DefaultClusterCellDeg is roughly 1.1 km at the equator.
	DefaultClusterCellDeg = 0.01
	// DefaultHeatmapCellDeg is roughly 550 m at the equator.
	DefaultHeatmapCellDeg = 0.005
	// HotspotCellDeg is fixed regardless of the requested hotspot radius.
	HotspotCellDeg = 0.01
)

// cellGroups buckets reports by key, remembering the order in which keys
// were first seen so output follows repository order.
type cellGroups[K comparable] struct {
	keys    []K
	members map[K][]domain.Report
}

func groupReports[K comparable](reports []domain.Report, key func(domain.Report) K) *cellGroups[K] {
	g := &cellGroups[K]{members: make(map[K][]domain.Report)}
	for _, r := range reports {
		k := key(r)
		if _, ok := g.members[k]; !ok {
			g.keys = append(g.keys, k)
		}
		g.members[k] = append(g.members[k], r)
	}
	return g
}

func byCell(cellSizeDeg float64) func(domain.Report) geospatial.Cell {
	return func(r domain.Report) geospatial.Cell {
		return geospatial.CellOf(r.Location.Lat, r.Location.Lng, cellSizeDeg)
	}
}

func cellCenter(c geospatial.Cell, cellSizeDeg float64) domain.GeoPoint {
	lat, lng := c.Center(cellSizeDeg)
	return domain.GeoPoint{Lat: lat, Lng: lng}
}

func meanPriorityWeight(members []domain.Report) float64 {
	if len(members) == 0 {
		return 0
	}
	var sum float64
	for _, r := range members {
		sum += r.Priority.Weight()
	}
	return sum / float64(len(members))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
