// Package session owns the chat log of one user and serializes every
// mutation of it: submissions, typed-out replies, failures and clears.
package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wargabantuin/internal/debounce"
	"wargabantuin/internal/domain"
	"wargabantuin/internal/usecase"
)

// DefaultTypingInterval is the delay between two revealed characters.
const DefaultTypingInterval = 30 * time.Millisecond

type Dispatcher interface {
	Dispatch(ctx context.Context, kind usecase.Kind, payload string) (usecase.Result, error)
}

// Geocoder backs the debounced search-box preview.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (domain.Place, error)
}

type Recorder interface {
	StaleDiscarded(kind usecase.Kind)
}

type ChangeKind int

const (
	MessageAppended ChangeKind = iota + 1
	MessageUpdated
	MessageFinalized
	MessageReplaced
	LogCleared
	FocusChanged
)

// Change describes one mutation of the session. Scroll is only set on
// MessageFinalized.
type Change struct {
	Kind    ChangeKind
	Index   int
	Message domain.Message
	Focus   *domain.LocationQuery
	Scroll  ScrollAction
}

// Listener is called with the session lock held, in mutation order. It must
// not call back into the Session.
type Listener func(Change)

var newToken = func() string {
	return uuid.NewString()
}

// request is the in-flight submission. index is the placeholder bot message
// appended for it.
type request struct {
	token  string
	kind   usecase.Kind
	index  int
	cancel context.CancelFunc
}

type Session struct {
	dispatcher Dispatcher
	scroll     *ScrollTracker
	recorder   Recorder
	logger     *slog.Logger
	listener   Listener
	interval   time.Duration
	geocoder   Geocoder
	quiet      time.Duration

	mu        sync.Mutex
	messages  []domain.Message
	pending   *request
	anim      animator
	focus     *domain.LocationQuery
	search    *debounce.Resolver[domain.Place]
	searchSeq uint64
	busy      bool
	idle      chan struct{}
}

type Option func(*Session)

func WithTypingInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithScrollTracker(t *ScrollTracker) Option {
	return func(s *Session) {
		if t != nil {
			s.scroll = t
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithListener(l Listener) Option {
	return func(s *Session) {
		s.listener = l
	}
}

// WithSearchPreview enables TypeSearch. quiet <= 0 keeps the default debounce
// period.
func WithSearchPreview(g Geocoder, quiet time.Duration) Option {
	return func(s *Session) {
		s.geocoder = g
		s.quiet = quiet
	}
}

func New(d Dispatcher, opts ...Option) (*Session, error) {
	if d == nil {
		return nil, errors.New("session: dispatcher must not be nil")
	}
	s := &Session{
		dispatcher: d,
		scroll:     NewScrollTracker(DefaultScrollSlack),
		logger:     slog.Default(),
		interval:   DefaultTypingInterval,
		idle:       make(chan struct{}),
	}
	close(s.idle)
	for _, opt := range opts {
		opt(s)
	}

	if s.geocoder != nil {
		search, err := debounce.New[domain.Place](s.geocoder.Geocode, s.onSearchOutcome,
			debounce.WithQuietPeriod[domain.Place](s.quiet))
		if err != nil {
			return nil, err
		}
		s.search = search
	}
	return s, nil
}

// Submit appends rawInput and dispatches it. It returns an INPUT_REJECTED
// error and changes nothing when the input is blank or the session is busy.
// "clear chat" and "hapus chat" clear the session instead.
func (s *Session) Submit(ctx context.Context, rawInput string) error {
	text := strings.TrimSpace(rawInput)
	if text == "" {
		return usecase.NewInputRejected("empty_input")
	}

	lower := strings.ToLower(text)
	if lower == "clear chat" || lower == "hapus chat" {
		s.Clear()
		return nil
	}

	kind := usecase.KindDirectQuery
	if strings.Contains(lower, "lokasi saya") || strings.Contains(lower, "temukan saya") {
		kind = usecase.KindSelfLocate
	}
	return s.start(ctx, kind, text, text)
}

// FindMe reports on the location nearest to the device position.
func (s *Session) FindMe(ctx context.Context) error {
	return s.start(ctx, usecase.KindSelfLocate, usecase.TextFindMeRequest, "")
}

// SearchLocation reports on the location nearest to the geocoded text.
func (s *Session) SearchLocation(ctx context.Context, text string) error {
	query := strings.TrimSpace(text)
	if query == "" {
		return usecase.NewInputRejected("empty_input")
	}
	return s.start(ctx, usecase.KindLocationSearch, usecase.SearchRequestText(query), query)
}

// TypeSearch feeds the search box value to the debounced preview, which moves
// the focus location once the input settles. It is a no-op without a preview
// geocoder.
func (s *Session) TypeSearch(value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.search == nil {
		return
	}
	s.searchSeq = s.search.OnInput(value)
}

// Clear empties the log and invalidates the pending request, the running
// animation and the search preview. Results that arrive later are discarded.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		s.pending.cancel()
		s.pending = nil
	}
	s.anim.cancel()
	if s.search != nil {
		s.search.Stop()
	}
	s.searchSeq = 0
	s.messages = nil
	s.focus = nil
	s.scroll.Reset()
	s.emitLocked(Change{Kind: LogCleared})
	s.settleLocked()
}

// Close stops background work without touching the log.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.cancel()
	}
	s.anim.cancel()
	if s.search != nil {
		s.search.Stop()
	}
	s.settleLocked()
}

// Wait blocks until no request is pending and no reply is being typed.
func (s *Session) Wait(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Loading reports whether a request is pending.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

// Typing reports whether a reply is being revealed. Input should be disabled
// while it is true.
func (s *Session) Typing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anim.active()
}

func (s *Session) TypingState() (domain.TypingState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.anim.state == nil {
		return domain.TypingState{}, false
	}
	return *s.anim.state, true
}

func (s *Session) UserScrolledUp() bool {
	return s.scroll.UserScrolledUp()
}

// Scroll exposes the tracker so the view can report geometry and jumps.
func (s *Session) Scroll() *ScrollTracker {
	return s.scroll
}

// Focus returns the authoritative focus location, or nil.
func (s *Session) Focus() *domain.LocationQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneFocus(s.focus)
}

func (s *Session) start(ctx context.Context, kind usecase.Kind, userText, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending != nil {
		return usecase.NewInputRejected("request_pending")
	}
	if s.anim.active() {
		return usecase.NewInputRejected("typing")
	}

	s.appendLocked(domain.Message{Role: domain.RoleUser, Text: userText, Final: true})
	index := s.appendLocked(domain.Message{Role: domain.RoleBot})

	reqCtx, cancel := context.WithCancel(ctx)
	req := &request{token: newToken(), kind: kind, index: index, cancel: cancel}
	s.pending = req
	s.scroll.hideNewMessage()
	s.markBusyLocked()

	go func() {
		res, err := s.dispatcher.Dispatch(reqCtx, req.kind, payload)
		s.complete(req, res, err)
	}()
	return nil
}

func (s *Session) complete(req *request, res usecase.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.cancel()

	if s.pending == nil || s.pending.token != req.token {
		s.logger.Debug("discarding stale result", "kind", req.kind, "token", req.token)
		if s.recorder != nil {
			s.recorder.StaleDiscarded(req.kind)
		}
		return
	}
	s.pending = nil

	if err != nil {
		s.logger.Debug("request failed", "kind", req.kind, "code", usecase.CodeOf(err), "err", err)
		s.replaceLocked(req.index, usecase.FailureText(req.kind))
		s.settleLocked()
		return
	}
	if res.Focus != nil {
		s.focus = cloneFocus(res.Focus)
		s.emitLocked(Change{Kind: FocusChanged, Focus: cloneFocus(s.focus)})
	}
	s.startTypingLocked(res.Text)
}

func (s *Session) onSearchOutcome(o debounce.Outcome[domain.Place]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.Seq != s.searchSeq {
		return
	}
	if o.Status != debounce.Resolved {
		s.logger.Debug("search preview unresolved", "input", o.Input, "status", o.Status, "err", o.Err)
		return
	}
	coords := o.Result.Coordinates
	s.focus = &domain.LocationQuery{Raw: o.Input, Coordinates: &coords, Source: domain.SourceGeocode}
	s.emitLocked(Change{Kind: FocusChanged, Focus: cloneFocus(s.focus)})
}

func (s *Session) appendLocked(m domain.Message) int {
	s.messages = append(s.messages, m)
	index := len(s.messages) - 1
	s.emitLocked(Change{Kind: MessageAppended, Index: index, Message: m})
	return index
}

// updateLastLocked replaces the text of a trailing unfinished bot message, or
// appends a new bot message.
func (s *Session) updateLastLocked(text string) {
	n := len(s.messages)
	if n == 0 || s.messages[n-1].Role != domain.RoleBot || s.messages[n-1].Final {
		s.appendLocked(domain.Message{Role: domain.RoleBot, Text: text})
		return
	}
	s.messages[n-1].Text = text
	s.emitLocked(Change{Kind: MessageUpdated, Index: n - 1, Message: s.messages[n-1]})
}

func (s *Session) finalizeLocked(action ScrollAction) {
	n := len(s.messages)
	if n == 0 || s.messages[n-1].Role != domain.RoleBot {
		return
	}
	s.messages[n-1].Final = true
	s.emitLocked(Change{Kind: MessageFinalized, Index: n - 1, Message: s.messages[n-1], Scroll: action})
}

func (s *Session) replaceLocked(index int, text string) {
	if index < 0 || index >= len(s.messages) {
		s.appendLocked(domain.Message{Role: domain.RoleBot, Text: text, Final: true})
		return
	}
	s.messages[index] = domain.Message{Role: domain.RoleBot, Text: text, Final: true}
	s.emitLocked(Change{Kind: MessageReplaced, Index: index, Message: s.messages[index]})
}

func (s *Session) emitLocked(c Change) {
	if s.listener != nil {
		s.listener(c)
	}
}

func (s *Session) markBusyLocked() {
	if !s.busy {
		s.busy = true
		s.idle = make(chan struct{})
	}
}

func (s *Session) settleLocked() {
	if s.busy && s.pending == nil && !s.anim.active() {
		s.busy = false
		close(s.idle)
	}
}

func cloneFocus(q *domain.LocationQuery) *domain.LocationQuery {
	if q == nil {
		return nil
	}
	out := *q
	if q.Coordinates != nil {
		c := *q.Coordinates
		out.Coordinates = &c
	}
	return &out
}
