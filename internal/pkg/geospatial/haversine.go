package geospatial

import "math"

const (
	earthRadiusKm = 6371.0
	kmPerDegree   = 111.32
)

// HaversineKm calculates the great-circle distance in kilometers between two points.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := ToRad(lat2 - lat1)
	dLon := ToRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(ToRad(lat1))*math.Cos(ToRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// BoundingBox returns a bounding box around a point with the given radius in kilometers.
func BoundingBox(lat, lon, radiusKm float64) (minLat, minLon, maxLat, maxLon float64) {
	latDelta := radiusKm / kmPerDegree
	lonDelta := radiusKm / (kmPerDegree * math.Cos(ToRad(lat)))

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// ToRad converts degrees to radians.
func ToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// ToDeg converts radians to degrees.
func ToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
