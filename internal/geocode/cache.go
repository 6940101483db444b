// Package geocode layers caching over a geocoder. Lookups go to an in-process
// LRU first, then to an optional durable store, and only then upstream.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"

	"wargabantuin/internal/domain"
	"wargabantuin/internal/repository"
)

const defaultCacheSize = 256

// Geocoder resolves free text to a place. Implementations signal a miss with
// their own sentinel, for example nominatim.ErrNotFound.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (domain.Place, error)
}

// Store is a durable cache tier; *repository.Client satisfies it.
type Store interface {
	GetPlace(ctx context.Context, query string) (domain.Place, bool, error)
	PutPlace(ctx context.Context, query string, place domain.Place) error
}

// Recorder receives cache outcomes: "memory", "store" or "miss".
type Recorder interface {
	GeocodeLookup(tier string)
}

// Cached is a Geocoder that remembers positive results. Misses are not cached
// so a location added upstream becomes visible on the next lookup.
type Cached struct {
	upstream Geocoder
	memory   *lru.Cache[string, domain.Place]
	store    Store
	recorder Recorder
	logger   *slog.Logger
}

type Option func(*Cached)

func WithStore(s Store) Option {
	return func(c *Cached) {
		c.store = s
	}
}

func WithRecorder(r Recorder) Option {
	return func(c *Cached) {
		c.recorder = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cached) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCached wraps upstream with an LRU of the given size (256 when size <= 0).
func NewCached(upstream Geocoder, size int, opts ...Option) (*Cached, error) {
	if upstream == nil {
		return nil, errors.New("geocode: upstream geocoder must not be nil")
	}
	if size <= 0 {
		size = defaultCacheSize
	}
	memory, err := lru.New[string, domain.Place](size)
	if err != nil {
		return nil, fmt.Errorf("geocode: create lru: %w", err)
	}
	c := &Cached{
		upstream: upstream,
		memory:   memory,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Cached) Geocode(ctx context.Context, query string) (domain.Place, error) {
	key := repository.NormalizeQuery(query)
	if place, ok := c.memory.Get(key); ok {
		c.record("memory")
		return place, nil
	}

	if c.store != nil {
		place, ok, err := c.store.GetPlace(ctx, key)
		switch {
		case err != nil:
			// A broken durable tier only costs latency.
			c.logger.Warn("geocode store read failed", "query", key, "err", err)
		case ok:
			c.memory.Add(key, place)
			c.record("store")
			return place, nil
		}
	}

	c.record("miss")
	place, err := c.upstream.Geocode(ctx, query)
	if err != nil {
		return domain.Place{}, err
	}
	c.memory.Add(key, place)
	if c.store != nil {
		if err := c.store.PutPlace(ctx, key, place); err != nil {
			c.logger.Warn("geocode store write failed", "query", key, "err", err)
		}
	}
	return place, nil
}

func (c *Cached) record(tier string) {
	if c.recorder != nil {
		c.recorder.GeocodeLookup(tier)
	}
}
