// Package report drives the citizen report (laporan) form: debounced
// coordinate lookup for the typed location, validation and submission.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"wargabantuin/internal/debounce"
	"wargabantuin/internal/domain"
)

const (
	StatusSearching   = "Mencari koordinat lokasi..."
	StatusNotFound    = "Lokasi tidak ditemukan, mohon periksa ejaan."
	StatusNeedConsent = "Mohon centang persetujuan sebelum mengirim laporan."
	StatusMissing     = "Lokasi dan Deskripsi wajib diisi."
	StatusSending     = "Mengirim laporan..."
	StatusCentered    = "Lokasi yang Anda masukkan tidak dapat ditemukan, laporan akan ditandai di pusat peta Indonesia."
	StatusSent        = "Laporan berhasil dikirim!"
	StatusSentExtra   = "Berhasil dilaporkan dan laporan tampil di halaman Peta dengan penanda warna hijau"
	StatusFailed      = "Gagal mengirim laporan. Silakan coba lagi nanti."
)

// isoMillis matches the UTC timestamps the map client writes.
const isoMillis = "2006-01-02T15:04:05.000Z"

// MapCenter is where reports land when their location cannot be geocoded.
var MapCenter = domain.Coordinates{Lat: -2, Lon: 118}

var (
	ErrConsentRequired = errors.New("report: consent required")
	ErrMissingFields   = errors.New("report: lokasi and deskripsi are required")
	ErrSubmitting      = errors.New("report: submission already in progress")
)

type Backend interface {
	SubmitReport(ctx context.Context, r domain.Report) error
	Reports(ctx context.Context) ([]domain.Report, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, query string) (domain.Place, error)
}

// Draft is the editable form state. Coordinates is nil until the typed
// location resolves.
type Draft struct {
	Lokasi      string
	Kategori    string
	Deskripsi   string
	Waktu       string
	Kontak      string
	Coordinates *domain.Coordinates
	Setuju      bool
}

// Submission is the outcome of a successful Submit. Reports is the refreshed
// report list, or nil when the refresh failed.
type Submission struct {
	Report  domain.Report
	Reports []domain.Report
}

type Form struct {
	backend  Backend
	geocoder Geocoder
	resolver *debounce.Resolver[domain.Place]
	now      func() time.Time
	logger   *slog.Logger
	quiet    time.Duration

	mu         sync.Mutex
	draft      Draft
	seq        uint64
	status     string
	extra      string
	submitting bool
}

type Option func(*Form)

func WithQuietPeriod(d time.Duration) Option {
	return func(f *Form) {
		f.quiet = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Form) {
		if now != nil {
			f.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Form) {
		if l != nil {
			f.logger = l
		}
	}
}

func NewForm(b Backend, g Geocoder, opts ...Option) (*Form, error) {
	if b == nil {
		return nil, errors.New("report: backend must not be nil")
	}
	if g == nil {
		return nil, errors.New("report: geocoder must not be nil")
	}
	f := &Form{
		backend:  b,
		geocoder: g,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}

	resolver, err := debounce.New[domain.Place](f.lookup, f.onOutcome,
		debounce.WithQuietPeriod[domain.Place](f.quiet))
	if err != nil {
		return nil, err
	}
	f.resolver = resolver
	return f, nil
}

// SetLokasi updates the location text and schedules a coordinate lookup.
func (f *Form) SetLokasi(value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft.Lokasi = value
	f.seq = f.resolver.OnInput(value)
}

// Edit changes the fields other than Lokasi and Coordinates.
func (f *Form) Edit(fn func(d *Draft)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lokasi, coords := f.draft.Lokasi, f.draft.Coordinates
	fn(&f.draft)
	f.draft.Lokasi, f.draft.Coordinates = lokasi, coords
}

func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.draft
	if d.Coordinates != nil {
		c := *d.Coordinates
		d.Coordinates = &c
	}
	return d
}

// Status returns the status line and the extra success line.
func (f *Form) Status() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.extra
}

// Reset empties the form and drops any pending lookup.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolver.Stop()
	f.seq = 0
	f.draft = Draft{}
	f.status, f.extra = "", ""
}

func (f *Form) Close() {
	f.resolver.Stop()
}

func (f *Form) lookup(ctx context.Context, lokasi string) (domain.Place, error) {
	f.mu.Lock()
	f.status = StatusSearching
	f.mu.Unlock()
	return f.geocoder.Geocode(ctx, lokasi)
}

func (f *Form) onOutcome(o debounce.Outcome[domain.Place]) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.Seq != f.seq {
		return
	}

	switch o.Status {
	case debounce.Resolved:
		c := o.Result.Coordinates
		f.draft.Coordinates = &c
		f.status = fmt.Sprintf("Koordinat ditemukan: %.6f, %.6f", c.Lat, c.Lon)
	case debounce.NotFound:
		f.draft.Coordinates = nil
		f.status = StatusNotFound
	default:
		f.draft.Coordinates = nil
		f.status = ""
	}
}

// Submit validates the draft, fills in missing coordinates and time, and
// posts the report. Validation failures only change the status line.
func (f *Form) Submit(ctx context.Context) (Submission, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return Submission{}, ErrSubmitting
	}
	d := f.draft
	if !d.Setuju {
		f.status = StatusNeedConsent
		f.mu.Unlock()
		return Submission{}, ErrConsentRequired
	}
	if strings.TrimSpace(d.Lokasi) == "" || strings.TrimSpace(d.Deskripsi) == "" {
		f.status = StatusMissing
		f.mu.Unlock()
		return Submission{}, ErrMissingFields
	}
	f.submitting = true
	f.status, f.extra = StatusSending, ""
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	coords := MapCenter
	if d.Coordinates != nil {
		coords = *d.Coordinates
	} else if place, err := f.geocoder.Geocode(ctx, d.Lokasi); err == nil {
		coords = place.Coordinates
	} else {
		f.logger.Debug("report location not found, using map center", "lokasi", d.Lokasi, "err", err)
		f.setStatus(StatusCentered, "")
	}

	waktu := d.Waktu
	if strings.TrimSpace(waktu) == "" {
		waktu = f.now().UTC().Format(isoMillis)
	}
	r := domain.Report{
		Lokasi:    d.Lokasi,
		Kategori:  d.Kategori,
		Deskripsi: d.Deskripsi,
		Waktu:     waktu,
		Kontak:    d.Kontak,
		Lat:       coords.Lat,
		Lon:       coords.Lon,
	}

	if err := f.backend.SubmitReport(ctx, r); err != nil {
		f.setStatus(StatusFailed, "")
		return Submission{}, fmt.Errorf("report: submit: %w", err)
	}
	f.setStatus(StatusSent, StatusSentExtra)

	reports, err := f.backend.Reports(ctx)
	if err != nil {
		f.logger.Warn("refreshing reports failed", "err", err)
		reports = nil
	}
	return Submission{Report: r, Reports: reports}, nil
}

func (f *Form) setStatus(status, extra string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.extra = status, extra
}
