package geospatial

import "math"

// Cell identifies a grid cell by its integer row/column at a given cell size.
type Cell struct {
	Row, Col int64
}

// CellOf returns the cell whose centre is nearest to (lat, lon).
func CellOf(lat, lon, cellSizeDeg float64) Cell {
	return Cell{
		Row: int64(math.Round(lat / cellSizeDeg)),
		Col: int64(math.Round(lon / cellSizeDeg)),
	}
}

// Center returns the coordinate of the cell centre.
func (c Cell) Center(cellSizeDeg float64) (lat, lon float64) {
	return float64(c.Row) * cellSizeDeg, float64(c.Col) * cellSizeDeg
}

// SnapToGrid rounds each axis to the nearest multiple of cellSizeDeg.
// The same cell size always yields the same cell boundaries, and snapping
// an already-snapped point returns it unchanged.
func SnapToGrid(lat, lon, cellSizeDeg float64) (float64, float64) {
	return CellOf(lat, lon, cellSizeDeg).Center(cellSizeDeg)
}
