package usecase

import (
	"math"

	"wargabantuin/internal/domain"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b domain.Coordinates) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// NearestLocation picks the candidate closest to origin. Candidates without
// coordinates are skipped; on equal distance the first one seen wins. The
// boolean is false when no candidate has coordinates.
func NearestLocation(origin domain.Coordinates, candidates []domain.LocationRecord) (domain.LocationRecord, float64, bool) {
	var best domain.LocationRecord
	bestKm := math.Inf(1)
	matched := false
	for _, c := range candidates {
		if !c.HasCoordinates() {
			continue
		}
		d := HaversineKm(origin, domain.Coordinates{Lat: *c.Lat, Lon: *c.Lon})
		if d < bestKm {
			best, bestKm, matched = c, d, true
		}
	}
	return best, bestKm, matched
}
