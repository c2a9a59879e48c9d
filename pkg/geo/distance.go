package geo

import (
	"math"
	"time"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in kilometres between two
// coordinates. The result is rounded to two decimal places.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return math.Round(earthRadiusKm*c*100) / 100
}

// ImpliedSpeedKmh returns the travel speed required to cover the distance
// between two coordinates in the given elapsed time. A non-positive elapsed
// time yields +Inf for any non-zero distance, and 0 when the points coincide.
func ImpliedSpeedKmh(lat1, lon1, lat2, lon2 float64, elapsed time.Duration) float64 {
	distance := Haversine(lat1, lon1, lat2, lon2)
	if distance == 0 {
		return 0
	}
	hours := elapsed.Hours()
	if hours <= 0 {
		return math.Inf(1)
	}
	return distance / hours
}
