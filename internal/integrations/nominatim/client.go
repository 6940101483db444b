package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"wargabantuin/internal/domain"
)

const (
	defaultBaseURL     = "https://nominatim.openstreetmap.org"
	defaultCountryCode = "id"
	defaultUserAgent   = "wargabantuin/1.0"
)

// ErrNotFound is returned when the geocoder has no match for the query.
var ErrNotFound = errors.New("nominatim: no match")

// searchHit is the subset of a Nominatim search result we consume. Nominatim
// encodes coordinates as strings.
type searchHit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// HTTPStatusError captures non-2xx responses from the geocoder.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("nominatim: unexpected status %d from %s", e.StatusCode, e.URL)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client geocodes free text through a Nominatim instance. Requests are rate
// limited to one per second as required by the public instance's usage policy.
type Client struct {
	baseURL     string
	countryCode string
	userAgent   string
	email       string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if v := strings.TrimRight(strings.TrimSpace(baseURL), "/"); v != "" {
			c.baseURL = v
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithCountryCode scopes results to an ISO 3166-1 alpha-2 country to reduce
// false matches.
func WithCountryCode(code string) Option {
	return func(c *Client) {
		c.countryCode = strings.ToLower(strings.TrimSpace(code))
	}
}

// WithEmail sets the contact address Nominatim asks heavy users to provide.
func WithEmail(email string) Option {
	return func(c *Client) {
		c.email = strings.TrimSpace(email)
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua = strings.TrimSpace(ua); ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLimiter replaces the default 1 req/s limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:     defaultBaseURL,
		countryCode: defaultCountryCode,
		userAgent:   defaultUserAgent,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode returns the best match for query, or ErrNotFound.
func (c *Client) Geocode(ctx context.Context, query string) (domain.Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.Place{}, ErrNotFound
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.Place{}, fmt.Errorf("nominatim: rate limiter: %w", err)
		}
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("limit", "1")
	if c.countryCode != "" {
		q.Set("countrycodes", c.countryCode)
	}
	if c.email != "" {
		q.Set("email", c.email)
	}
	endpoint := c.baseURL + "/search?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Place{}, fmt.Errorf("nominatim: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Place{}, fmt.Errorf("nominatim: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return domain.Place{}, &HTTPStatusError{StatusCode: res.StatusCode, URL: endpoint}
	}

	var hits []searchHit
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&hits); err != nil {
		return domain.Place{}, fmt.Errorf("nominatim: decode response: %w", err)
	}
	if len(hits) == 0 {
		return domain.Place{}, ErrNotFound
	}
	return hits[0].place()
}

func (h searchHit) place() (domain.Place, error) {
	lat, err := strconv.ParseFloat(h.Lat, 64)
	if err != nil {
		return domain.Place{}, fmt.Errorf("nominatim: parse lat %q: %w", h.Lat, err)
	}
	lon, err := strconv.ParseFloat(h.Lon, 64)
	if err != nil {
		return domain.Place{}, fmt.Errorf("nominatim: parse lon %q: %w", h.Lon, err)
	}
	return domain.Place{
		Coordinates: domain.Coordinates{Lat: lat, Lon: lon},
		DisplayName: h.DisplayName,
	}, nil
}
