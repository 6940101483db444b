package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"wargabantuin/internal/domain"
)

var errMiss = errors.New("miss")

type countingGeocoder struct {
	places map[string]domain.Place
	calls  int
}

func (g *countingGeocoder) Geocode(_ context.Context, query string) (domain.Place, error) {
	g.calls++
	p, ok := g.places[query]
	if !ok {
		return domain.Place{}, errMiss
	}
	return p, nil
}

type memStore struct {
	items  map[string]domain.Place
	getErr error
	puts   int
}

func (m *memStore) GetPlace(_ context.Context, q string) (domain.Place, bool, error) {
	if m.getErr != nil {
		return domain.Place{}, false, m.getErr
	}
	p, ok := m.items[q]
	return p, ok, nil
}

func (m *memStore) PutPlace(_ context.Context, q string, p domain.Place) error {
	if m.items == nil {
		m.items = map[string]domain.Place{}
	}
	m.items[q] = p
	m.puts++
	return nil
}

type tierLog []string

func (l *tierLog) GeocodeLookup(tier string) { *l = append(*l, tier) }

var binjai = domain.Place{Coordinates: domain.Coordinates{Lat: 3.6, Lon: 98.48}, DisplayName: "Binjai"}

func TestNewCached_NilUpstream(t *testing.T) {
	_, err := NewCached(nil, 0)
	require.Error(t, err)
}

func TestCached_MemoryHitSkipsUpstream(t *testing.T) {
	up := &countingGeocoder{places: map[string]domain.Place{"Binjai": binjai}}
	var tiers tierLog
	c, err := NewCached(up, 8, WithRecorder(&tiers))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		got, err := c.Geocode(context.Background(), "Binjai")
		require.NoError(t, err)
		require.Equal(t, binjai, got)
	}
	// normalized key shares the entry
	_, err = c.Geocode(context.Background(), "  binjai ")
	require.NoError(t, err)

	require.Equal(t, 1, up.calls)
	require.Equal(t, tierLog{"miss", "memory", "memory", "memory"}, tiers)
}

func TestCached_StoreTierFillsMemory(t *testing.T) {
	up := &countingGeocoder{}
	store := &memStore{items: map[string]domain.Place{"binjai": binjai}}
	var tiers tierLog
	c, err := NewCached(up, 8, WithStore(store), WithRecorder(&tiers))
	require.NoError(t, err)

	got, err := c.Geocode(context.Background(), "Binjai")
	require.NoError(t, err)
	require.Equal(t, binjai, got)
	_, _ = c.Geocode(context.Background(), "Binjai")

	require.Zero(t, up.calls)
	require.Equal(t, tierLog{"store", "memory"}, tiers)
}

func TestCached_UpstreamResultIsWrittenToStore(t *testing.T) {
	up := &countingGeocoder{places: map[string]domain.Place{"Binjai": binjai}}
	store := &memStore{}
	c, err := NewCached(up, 8, WithStore(store))
	require.NoError(t, err)

	_, err = c.Geocode(context.Background(), "Binjai")
	require.NoError(t, err)
	require.Equal(t, 1, store.puts)
	require.Equal(t, binjai, store.items["binjai"])
}

func TestCached_MissesAreNotCached(t *testing.T) {
	up := &countingGeocoder{}
	c, err := NewCached(up, 8)
	require.NoError(t, err)

	_, err = c.Geocode(context.Background(), "Atlantis")
	require.ErrorIs(t, err, errMiss)
	_, err = c.Geocode(context.Background(), "Atlantis")
	require.ErrorIs(t, err, errMiss)
	require.Equal(t, 2, up.calls)
}

func TestCached_BrokenStoreFallsThrough(t *testing.T) {
	up := &countingGeocoder{places: map[string]domain.Place{"Binjai": binjai}}
	c, err := NewCached(up, 8, WithStore(&memStore{getErr: errors.New("dynamodb down")}))
	require.NoError(t, err)

	got, err := c.Geocode(context.Background(), "Binjai")
	require.NoError(t, err)
	require.Equal(t, binjai, got)
}
