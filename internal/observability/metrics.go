// Package observability holds the Prometheus collectors shared by the chat
// session, the request orchestrator and the geocode cache.
package observability

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"wargabantuin/internal/usecase"
)

const namespace = "wargabantuin"

// Metrics implements usecase.Recorder, session.Recorder and geocode.Recorder.
type Metrics struct {
	dispatchDuration *prometheus.HistogramVec
	dispatchTotal    *prometheus.CounterVec
	staleDiscards    *prometheus.CounterVec
	geocodeLookups   *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg, reusing collectors that
// are already registered under the same name.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time spent resolving one chat request.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "total",
			Help:      "Chat requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		staleDiscards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "stale_discards_total",
			Help:      "Results dropped because a newer request or a clear superseded them.",
		}, []string{"kind"}),
		geocodeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "geocode",
			Name:      "lookups_total",
			Help:      "Geocode lookups by the cache tier that answered.",
		}, []string{"tier"}),
	}

	m.dispatchDuration = register(reg, m.dispatchDuration)
	m.dispatchTotal = register(reg, m.dispatchTotal)
	m.staleDiscards = register(reg, m.staleDiscards)
	m.geocodeLookups = register(reg, m.geocodeLookups)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) DispatchFinished(kind usecase.Kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.dispatchDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	m.dispatchTotal.WithLabelValues(string(kind), outcome).Inc()
}

func (m *Metrics) StaleDiscarded(kind usecase.Kind) {
	if m == nil {
		return
	}
	m.staleDiscards.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) GeocodeLookup(tier string) {
	if m == nil {
		return
	}
	m.geocodeLookups.WithLabelValues(tier).Inc()
}
