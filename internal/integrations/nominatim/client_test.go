package nominatim

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	base := []Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithLimiter(rate.NewLimiter(rate.Inf, 1)),
	}
	return NewClient(append(base, opts...)...)
}

func TestGeocode_HappyPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "Binjai", q.Get("q"))
		require.Equal(t, "json", q.Get("format"))
		require.Equal(t, "1", q.Get("limit"))
		require.Equal(t, "id", q.Get("countrycodes"))
		require.Equal(t, "ops@example.org", q.Get("email"))
		require.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat":"3.6001","lon":"98.4854","display_name":"Binjai, Sumatera Utara, Indonesia"}]`))
	}, WithEmail("ops@example.org"))

	got, err := c.Geocode(context.Background(), "  Binjai ")
	require.NoError(t, err)
	require.Equal(t, 3.6001, got.Lat)
	require.Equal(t, 98.4854, got.Lon)
	require.Equal(t, "Binjai, Sumatera Utara, Indonesia", got.DisplayName)
}

func TestGeocode_EmptyResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.Geocode(context.Background(), "Atlantis")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGeocode_BlankQueryNeverCallsServer(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
	})

	_, err := c.Geocode(context.Background(), "   ")
	require.ErrorIs(t, err, ErrNotFound)
	require.False(t, called)
}

func TestGeocode_Non2xx(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Geocode(context.Background(), "Binjai")
	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusTooManyRequests, statusErr.HTTPStatusCode())
}

func TestGeocode_BadCoordinate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat":"north","lon":"98.1"}]`))
	})

	_, err := c.Geocode(context.Background(), "Binjai")
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse lat")
}

func TestGeocode_LimiterHonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, WithLimiter(rate.NewLimiter(rate.Limit(0.0001), 0)))

	_, err := c.Geocode(context.Background(), "Binjai")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limiter")
}

func TestWithCountryCode_Empty_DisablesFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["countrycodes"]
		require.False(t, ok)
		_, _ = w.Write([]byte(`[]`))
	}, WithCountryCode(""))

	_, err := c.Geocode(context.Background(), "Paris")
	require.ErrorIs(t, err, ErrNotFound)
}
