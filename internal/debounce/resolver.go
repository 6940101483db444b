// Package debounce waits for text input to settle before resolving it
// asynchronously, and guarantees that only the most recent input ever
// produces an outcome.
package debounce

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	DefaultQuietPeriod = 800 * time.Millisecond
	DefaultMinLength   = 3
)

type Status int

const (
	Resolved Status = iota + 1
	NotFound
	TooShort
)

func (s Status) String() string {
	switch s {
	case Resolved:
		return "resolved"
	case NotFound:
		return "not_found"
	case TooShort:
		return "too_short"
	default:
		return "unknown"
	}
}

// Outcome is reported once per settled input. Seq is the value returned by the
// OnInput call that produced it; consumers that keep their own state compare it
// against the last Seq they issued to reject late deliveries atomically.
type Outcome[T any] struct {
	Seq    uint64
	Input  string
	Status Status
	Result T
	// Err is the resolver error behind a NotFound, if any.
	Err error
}

// ResolveFunc performs the slow lookup for a settled input.
type ResolveFunc[T any] func(ctx context.Context, input string) (T, error)

type stopper interface {
	Stop() bool
}

// Resolver debounces OnInput calls and resolves the last value.
type Resolver[T any] struct {
	resolve   ResolveFunc[T]
	report    func(Outcome[T])
	quiet     time.Duration
	minLength int
	afterFunc func(time.Duration, func()) stopper

	mu     sync.Mutex
	seq    uint64
	timer  stopper
	cancel context.CancelFunc
}

type Option[T any] func(*Resolver[T])

func WithQuietPeriod[T any](d time.Duration) Option[T] {
	return func(r *Resolver[T]) {
		if d > 0 {
			r.quiet = d
		}
	}
}

func WithMinLength[T any](n int) Option[T] {
	return func(r *Resolver[T]) {
		if n >= 0 {
			r.minLength = n
		}
	}
}

// New builds a Resolver. report is called from timer goroutines, never while
// the Resolver holds its lock, so it may call back into OnInput or Stop.
func New[T any](resolve ResolveFunc[T], report func(Outcome[T]), opts ...Option[T]) (*Resolver[T], error) {
	if resolve == nil {
		return nil, errors.New("debounce: resolve func must not be nil")
	}
	if report == nil {
		return nil, errors.New("debounce: report func must not be nil")
	}
	r := &Resolver[T]{
		resolve:   resolve,
		report:    report,
		quiet:     DefaultQuietPeriod,
		minLength: DefaultMinLength,
		afterFunc: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// OnInput restarts the quiet period for value and supersedes every earlier
// input, including one whose lookup is already in flight.
func (r *Resolver[T]) OnInput(value string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	r.seq++
	seq := r.seq
	r.timer = r.afterFunc(r.quiet, func() { r.fire(seq, value) })
	return seq
}

// Stop cancels the pending timer and any in-flight lookup. Nothing is
// reported for inputs received before Stop.
func (r *Resolver[T]) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
	r.seq++
}

func (r *Resolver[T]) stopLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *Resolver[T]) fire(seq uint64, value string) {
	input := strings.TrimSpace(value)

	r.mu.Lock()
	if seq != r.seq {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	if utf8.RuneCountInString(input) < r.minLength {
		r.mu.Unlock()
		r.deliver(Outcome[T]{Seq: seq, Input: input, Status: TooShort})
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.mu.Unlock()

	result, err := r.resolve(ctx, input)
	canceled := ctx.Err() != nil
	cancel()

	switch {
	case canceled:
		// Superseded or stopped while resolving.
	case err == nil:
		r.deliver(Outcome[T]{Seq: seq, Input: input, Status: Resolved, Result: result})
	default:
		r.deliver(Outcome[T]{Seq: seq, Input: input, Status: NotFound, Err: err})
	}
}

func (r *Resolver[T]) deliver(o Outcome[T]) {
	r.mu.Lock()
	current := o.Seq == r.seq
	if current {
		r.cancel = nil
	}
	r.mu.Unlock()
	if current {
		r.report(o)
	}
}
