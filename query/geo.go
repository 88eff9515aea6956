package query

import (
	"math"

	"facility-finder/models"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// RouteBufferKm widens the route search circle beyond half the route length.
const RouteBufferKm = 50.0

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(a, b models.LatLng) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// RouteCircle returns the center and radius covering a trip between two points:
// the midpoint of both coordinates and half the distance plus RouteBufferKm.
func RouteCircle(from, to models.LatLng) (models.LatLng, float64) {
	center := models.LatLng{
		Lat: (from.Lat + to.Lat) / 2,
		Lng: (from.Lng + to.Lng) / 2,
	}
	return center, HaversineKm(from, to)/2 + RouteBufferKm
}
