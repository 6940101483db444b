package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"wargabantuin/internal/domain"
	"wargabantuin/internal/integrations/geolocation"
)

const defaultGeolocationTimeout = 5 * time.Second

// Kind selects what a dispatched query does.
type Kind string

const (
	KindDirectQuery    Kind = "direct-query"
	KindSelfLocate     Kind = "self-locate"
	KindLocationSearch Kind = "location-search"
)

type Backend interface {
	Answer(ctx context.Context, keyword string) (string, error)
	Nearest(ctx context.Context, at domain.Coordinates) (domain.NearestResult, error)
	Search(ctx context.Context, keyword string) ([]domain.LocationRecord, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, query string) (domain.Place, error)
}

// Recorder observes finished dispatches; outcome is "ok" or an ErrorCode.
type Recorder interface {
	DispatchFinished(kind Kind, outcome string, elapsed time.Duration)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// Result is the display text of a finished dispatch. Focus is set when the
// dispatch established a new focus location. Recovered carries the code of a
// failure that was turned into a user-readable answer instead of an error.
type Result struct {
	Text      string
	Focus     *domain.LocationQuery
	Recovered ErrorCode
}

// Orchestrator runs one logical query against the external collaborators and
// normalizes the outcome into display text. It holds no per-request state;
// supersession is signalled through ctx and checked after every suspension.
type Orchestrator struct {
	backend    Backend
	geocoder   Geocoder
	locator    geolocation.Locator
	geoTimeout time.Duration
	recorder   Recorder
	logger     *slog.Logger
}

type Option func(*Orchestrator)

func WithGeolocationTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.geoTimeout = d
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func NewOrchestrator(b Backend, g Geocoder, l geolocation.Locator, opts ...Option) (*Orchestrator, error) {
	if b == nil {
		return nil, errors.New("usecase: backend must not be nil")
	}
	if g == nil {
		return nil, errors.New("usecase: geocoder must not be nil")
	}
	if l == nil {
		return nil, errors.New("usecase: locator must not be nil")
	}
	o := &Orchestrator{
		backend:    b,
		geocoder:   g,
		locator:    l,
		geoTimeout: defaultGeolocationTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Dispatch runs a query of the given kind. payload is the raw user text for
// direct-query and location-search and is ignored for self-locate.
//
// Locally recoverable failures (LOCATION_UNAVAILABLE, GEOCODE_NOT_FOUND,
// NO_CANDIDATE_LOCATIONS) come back as a Result with canned text and a nil
// error. The returned error is always a *Error with code BACKEND_UNREACHABLE,
// SUPERSEDED or INPUT_REJECTED.
func (o *Orchestrator) Dispatch(ctx context.Context, kind Kind, payload string) (Result, error) {
	start := time.Now()
	res, err := o.dispatch(ctx, kind, strings.TrimSpace(payload))

	outcome := "ok"
	switch {
	case err != nil:
		outcome = string(CodeOf(err))
	case res.Recovered != "":
		outcome = string(res.Recovered)
	}
	if o.recorder != nil {
		o.recorder.DispatchFinished(kind, outcome, time.Since(start))
	}
	if err != nil && CodeOf(err) == ErrorBackendUnreachable {
		o.logger.Warn("dispatch failed", "kind", kind, "err", err)
	}
	return res, err
}

func (o *Orchestrator) dispatch(ctx context.Context, kind Kind, payload string) (Result, error) {
	switch kind {
	case KindDirectQuery:
		return o.directQuery(ctx, payload)
	case KindSelfLocate:
		return o.selfLocate(ctx)
	case KindLocationSearch:
		return o.locationSearch(ctx, payload)
	default:
		return Result{}, newError(ErrorInputRejected, "unknown_kind", nil)
	}
}

func (o *Orchestrator) directQuery(ctx context.Context, question string) (Result, error) {
	if question == "" {
		return Result{}, newError(ErrorInputRejected, "empty_question", nil)
	}
	answer, err := o.backend.Answer(ctx, question)
	if err != nil {
		return Result{}, upstreamError(ctx, "chatbot_error", err)
	}
	if err := resumed(ctx); err != nil {
		return Result{}, err
	}
	return Result{Text: answer}, nil
}

func (o *Orchestrator) selfLocate(ctx context.Context) (Result, error) {
	pos, err := o.position(ctx)
	if err := resumed(ctx); err != nil {
		return Result{}, err
	}
	if err != nil {
		o.logger.Debug("geolocation unavailable", "err", err)
		return Result{Text: TextLocationUnavailable, Recovered: ErrorLocationUnavailable}, nil
	}
	focus := &domain.LocationQuery{Coordinates: &pos, Source: domain.SourceGeolocation}

	nearest, err := o.backend.Nearest(ctx, pos)
	if err != nil {
		return Result{}, upstreamError(ctx, "nearest_location_error", err)
	}
	if err := resumed(ctx); err != nil {
		return Result{}, err
	}
	return Result{Text: nearestReport(nearest), Focus: focus}, nil
}

func (o *Orchestrator) locationSearch(ctx context.Context, query string) (Result, error) {
	if query == "" {
		return Result{}, newError(ErrorInputRejected, "empty_query", nil)
	}

	place, err := o.geocoder.Geocode(ctx, query)
	if err := resumed(ctx); err != nil {
		return Result{}, err
	}
	if err != nil {
		// Any geocoder failure reads as "not found" to the user.
		o.logger.Debug("geocode miss", "query", query, "err", err)
		return Result{Text: textGeocodeNotFound(query), Recovered: ErrorGeocodeNotFound}, nil
	}
	focus := &domain.LocationQuery{Raw: query, Coordinates: &place.Coordinates, Source: domain.SourceGeocode}

	candidates, err := o.backend.Search(ctx, query)
	if err != nil {
		return Result{}, upstreamError(ctx, "search_error", err)
	}
	if err := resumed(ctx); err != nil {
		return Result{}, err
	}

	nearest, km, ok := NearestLocation(place.Coordinates, candidates)
	if !ok {
		return Result{Text: TextNoCandidateLocations, Focus: focus, Recovered: ErrorNoCandidateLocations}, nil
	}
	o.logger.Debug("nearest candidate", "query", query, "desa", nearest.Desa, "km", km)
	return Result{Text: searchReport(query, nearest), Focus: focus}, nil
}

// position asks the locator for the device position and gives up after the
// geolocation timeout even if the locator ignores its context.
func (o *Orchestrator) position(ctx context.Context) (domain.Coordinates, error) {
	geoCtx, cancel := context.WithTimeout(ctx, o.geoTimeout)
	defer cancel()

	type fix struct {
		pos domain.Coordinates
		err error
	}
	done := make(chan fix, 1)
	go func() {
		pos, err := o.locator.CurrentPosition(geoCtx, geolocation.Options{HighAccuracy: true, Timeout: o.geoTimeout})
		done <- fix{pos: pos, err: err}
	}()

	select {
	case f := <-done:
		return f.pos, f.err
	case <-geoCtx.Done():
		return domain.Coordinates{}, geoCtx.Err()
	}
}

// resumed reports SUPERSEDED when ctx ended while the caller was suspended.
func resumed(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return newError(ErrorSuperseded, "context_done", err)
	}
	return nil
}

func upstreamError(ctx context.Context, reason string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return newError(ErrorSuperseded, reason, err)
	}
	return newError(ErrorBackendUnreachable, reason, err)
}

// UpstreamStatus returns the HTTP status behind err, if any.
func UpstreamStatus(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
