// Package geo holds the small amount of spherical geometry the tracking
// features need.
package geo

import (
	"math"

	"github.com/mauzenfan/mauzenfan/internal/model"
)

const earthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// InZone reports whether a point lies inside a circular safe zone.
func InZone(lat, lon float64, zone model.SafeZone) bool {
	return Distance(lat, lon, zone.Latitude, zone.Longitude) <= zone.Radius
}

// AverageDeviation is the mean distance from each trip point to the nearest
// point on path. It returns 0 when either side is empty.
func AverageDeviation(trip, path []model.Coordinate) float64 {
	if len(trip) == 0 || len(path) == 0 {
		return 0
	}
	var total float64
	for _, p := range trip {
		nearest := math.MaxFloat64
		for _, q := range path {
			if d := Distance(p.Latitude, p.Longitude, q.Latitude, q.Longitude); d < nearest {
				nearest = d
			}
		}
		total += nearest
	}
	return total / float64(len(trip))
}
