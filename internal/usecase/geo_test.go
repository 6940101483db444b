package usecase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"wargabantuin/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func record(name string, lat, lon float64) domain.LocationRecord {
	return domain.LocationRecord{Desa: name, Lat: ptr(lat), Lon: ptr(lon)}
}

func TestHaversine_ZeroForIdenticalPoints(t *testing.T) {
	p := domain.Coordinates{Lat: 3.6, Lon: 98.48}
	require.Zero(t, HaversineKm(p, p))
}

func TestHaversine_Symmetric(t *testing.T) {
	pairs := [][2]domain.Coordinates{
		{{Lat: 3.6, Lon: 98.48}, {Lat: -6.2, Lon: 106.8}},
		{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 179.9}},
		{{Lat: -8.65, Lon: 115.2}, {Lat: 5.55, Lon: 95.32}},
	}
	for _, p := range pairs {
		require.InDelta(t, HaversineKm(p[0], p[1]), HaversineKm(p[1], p[0]), 1e-9)
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	// One degree of longitude on the equator.
	got := HaversineKm(domain.Coordinates{Lat: 0, Lon: 0}, domain.Coordinates{Lat: 0, Lon: 1})
	require.InDelta(t, 2*math.Pi*earthRadiusKm/360, got, 1e-6)
}

func TestNearestLocation_PicksMinimum(t *testing.T) {
	origin := domain.Coordinates{Lat: 3.6, Lon: 98.48}
	candidates := []domain.LocationRecord{
		record("Medan", 3.59, 98.67),
		record("Binjai", 3.61, 98.49),
		record("Jakarta", -6.2, 106.8),
	}

	got, km, ok := NearestLocation(origin, candidates)
	require.True(t, ok)
	require.Equal(t, "Binjai", got.Desa)
	require.Less(t, km, 2.0)
}

func TestNearestLocation_FirstSeenWinsTies(t *testing.T) {
	origin := domain.Coordinates{Lat: 0, Lon: 0}
	candidates := []domain.LocationRecord{
		record("East", 0, 1),
		record("West", 0, -1),
	}

	got, _, ok := NearestLocation(origin, candidates)
	require.True(t, ok)
	require.Equal(t, "East", got.Desa)
}

func TestNearestLocation_SkipsRecordsWithoutCoordinates(t *testing.T) {
	origin := domain.Coordinates{Lat: 0, Lon: 0}
	candidates := []domain.LocationRecord{
		{Desa: "NoCoords"},
		{Desa: "HalfCoords", Lat: ptr(0)},
		record("Far", 10, 10),
	}

	got, _, ok := NearestLocation(origin, candidates)
	require.True(t, ok)
	require.Equal(t, "Far", got.Desa)

	_, _, ok = NearestLocation(origin, candidates[:2])
	require.False(t, ok)

	_, _, ok = NearestLocation(origin, nil)
	require.False(t, ok)
}
