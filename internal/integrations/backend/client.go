package backend

import (
	"bytes"
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

	"wargabantuin/internal/domain"
)

// answerRequest is the request shape for the chatbot endpoint.
type answerRequest struct {
	Keyword string `json:"keyword"`
}

// answerResponse is the response shape of the chatbot endpoint.
type answerResponse struct {
	Jawaban string `json:"jawaban"`
}

type searchResponse struct {
	Lokasi []domain.LocationRecord `json:"lokasi"`
}

type reportsResponse struct {
	Laporan []domain.Report `json:"laporan"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("backend: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client talks to the advisory backend: chatbot answers, nearest-location
// scoring, free-text location search and citizen reports.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client rooted at baseURL, e.g. "https://bisakah.pythonanywhere.com".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend: base URL must not be empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("backend: parse base URL: %w", err)
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// resolvedHTTPClient returns the configured HTTP client, or a default with a
// 10s timeout if none was set.
func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Answer sends the raw user text to the chatbot and returns its answer.
func (c *Client) Answer(ctx context.Context, keyword string) (string, error) {
	body, err := json.Marshal(answerRequest{Keyword: keyword})
	if err != nil {
		return "", fmt.Errorf("backend: marshal chatbot request: %w", err)
	}

	var payload answerResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint("/api/chatbot", nil), body, &payload); err != nil {
		return "", fmt.Errorf("backend: chatbot request failed: %w", err)
	}
	return payload.Jawaban, nil
}

// Nearest returns the dataset location closest to the given point together
// with its suitability assessment.
func (c *Client) Nearest(ctx context.Context, at domain.Coordinates) (domain.NearestResult, error) {
	q := url.Values{}
	q.Set("lat", formatCoordinate(at.Lat))
	q.Set("lon", formatCoordinate(at.Lon))

	var payload domain.NearestResult
	if err := c.do(ctx, http.MethodGet, c.endpoint("/api/nearest-location", q), nil, &payload); err != nil {
		return domain.NearestResult{}, fmt.Errorf("backend: nearest-location request failed: %w", err)
	}
	return payload, nil
}

// Search returns the candidate locations matching a free-text keyword.
func (c *Client) Search(ctx context.Context, keyword string) ([]domain.LocationRecord, error) {
	q := url.Values{}
	q.Set("keyword", keyword)

	var payload searchResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("/api/search", q), nil, &payload); err != nil {
		return nil, fmt.Errorf("backend: search request failed: %w", err)
	}
	return payload.Lokasi, nil
}

// SubmitReport posts a citizen report.
func (c *Client) SubmitReport(ctx context.Context, r domain.Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("backend: marshal report: %w", err)
	}
	if err := c.do(ctx, http.MethodPost, c.endpoint("/api/laporan", nil), body, nil); err != nil {
		return fmt.Errorf("backend: submit report failed: %w", err)
	}
	return nil
}

// Reports lists every published citizen report.
func (c *Client) Reports(ctx context.Context) ([]domain.Report, error) {
	var payload reportsResponse
	if err := c.do(ctx, http.MethodGet, c.endpoint("/api/all_laporan", nil), nil, &payload); err != nil {
		return nil, fmt.Errorf("backend: list reports failed: %w", err)
	}
	return payload.Laporan, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	raw, err := c.doJSONRequest(req, url)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
