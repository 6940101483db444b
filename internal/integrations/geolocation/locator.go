// Package geolocation provides device-position capabilities. A terminal or a
// serverless function has no GPS, so positions come from configuration or from
// the caller's request.
package geolocation

import (
	"context"
	"errors"
	"time"

	"wargabantuin/internal/domain"
)

var (
	ErrPermissionDenied = errors.New("geolocation: permission denied")
	ErrUnsupported      = errors.New("geolocation: capability not supported")
)

// Options mirrors the browser PositionOptions the advisory client uses.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
}

// Locator resolves the current device position.
type Locator interface {
	CurrentPosition(ctx context.Context, opts Options) (domain.Coordinates, error)
}

// Static always reports the same position.
type Static domain.Coordinates

func (s Static) CurrentPosition(ctx context.Context, _ Options) (domain.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return domain.Coordinates{}, err
	}
	return domain.Coordinates(s), nil
}

// Unavailable behaves like a device whose user refused location access.
type Unavailable struct{}

func (Unavailable) CurrentPosition(context.Context, Options) (domain.Coordinates, error) {
	return domain.Coordinates{}, ErrPermissionDenied
}

// Func adapts a plain function to Locator.
type Func func(ctx context.Context, opts Options) (domain.Coordinates, error)

func (f Func) CurrentPosition(ctx context.Context, opts Options) (domain.Coordinates, error) {
	return f(ctx, opts)
}

// FromEnv returns a Static locator when both coordinates are set, and
// Unavailable otherwise.
func FromEnv(lat, lon *float64) Locator {
	if lat == nil || lon == nil {
		return Unavailable{}
	}
	return Static{Lat: *lat, Lon: *lon}
}

type positionKey struct{}

// WithPosition attaches a caller-reported position to ctx for Contextual.
func WithPosition(ctx context.Context, c domain.Coordinates) context.Context {
	return context.WithValue(ctx, positionKey{}, c)
}

// Contextual reports the position attached with WithPosition and behaves like
// Unavailable when there is none. It serves stateless callers that send their
// coordinates with each request.
type Contextual struct{}

func (Contextual) CurrentPosition(ctx context.Context, _ Options) (domain.Coordinates, error) {
	if c, ok := ctx.Value(positionKey{}).(domain.Coordinates); ok {
		return c, nil
	}
	return domain.Coordinates{}, ErrPermissionDenied
}
