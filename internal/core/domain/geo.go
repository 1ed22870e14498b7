package domain

import (
	"math"

	"github.com/samirrijal/civicmap/internal/pkg/geospatial"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceKm returns the great-circle distance to q in kilometers.
func (p GeoPoint) DistanceKm(q GeoPoint) float64 {
	return geospatial.HaversineKm(p.Lat, p.Lng, q.Lat, q.Lng)
}

// Snap returns the centre of the grid cell of size cellSizeDeg containing p.
func (p GeoPoint) Snap(cellSizeDeg float64) GeoPoint {
	lat, lng := geospatial.SnapToGrid(p.Lat, p.Lng, cellSizeDeg)
	return GeoPoint{Lat: lat, Lng: lng}
}

// BoundingBox is an axis-aligned lat/lng rectangle. Boxes crossing the
// antimeridian are not supported; callers split them into two boxes.
type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Degenerate reports whether the box covers no area a query can match.
func (b BoundingBox) Degenerate() bool {
	return b.North < b.South || b.East < b.West
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p GeoPoint) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// EnvelopesAround returns the boxes enclosing a circle of radiusKm around
// center. A circle crossing the antimeridian yields two boxes, one on each
// side; a circle reaching a pole spans every longitude.
func EnvelopesAround(center GeoPoint, radiusKm float64) []BoundingBox {
	minLat, minLng, maxLat, maxLng := geospatial.BoundingBox(center.Lat, center.Lng, radiusKm)
	b := BoundingBox{North: math.Min(maxLat, 90), South: math.Max(minLat, -90), East: maxLng, West: minLng}

	switch {
	case maxLat >= 90 || minLat <= -90 || maxLng-minLng >= 360:
		b.West, b.East = -180, 180
	case b.West < -180:
		wrapped := b
		wrapped.West, wrapped.East = b.West+360, 180
		b.West = -180
		return []BoundingBox{b, wrapped}
	case b.East > 180:
		wrapped := b
		wrapped.West, wrapped.East = -180, b.East-360
		b.East = 180
		return []BoundingBox{b, wrapped}
	}
	return []BoundingBox{b}
}
