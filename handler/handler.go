// Package handler exposes one orchestrator dispatch per API Gateway request.
// It is stateless: there is no chat log, typing or debounce on this path.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"wargabantuin/internal/domain"
	"wargabantuin/internal/integrations/geolocation"
	"wargabantuin/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type Dispatcher interface {
	Dispatch(ctx context.Context, kind usecase.Kind, payload string) (usecase.Result, error)
}

// askRequest selects the dispatch kind by the fields present: lat/lon for
// self-locate, location for location-search, question otherwise.
type askRequest struct {
	Question string   `json:"question"`
	Location string   `json:"location"`
	Lat      *float64 `json:"lat"`
	Lon      *float64 `json:"lon"`
}

type focusResponse struct {
	Raw    string  `json:"raw,omitempty"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Source string  `json:"source"`
}

type askResponse struct {
	Kind   string         `json:"kind"`
	Answer string         `json:"answer"`
	Notice string         `json:"notice,omitempty"`
	Focus  *focusResponse `json:"focus,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type Handler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewHandler(d Dispatcher) (*Handler, error) {
	if d == nil {
		return nil, errors.New("handler: dispatcher must not be nil")
	}
	return &Handler{dispatcher: d, logger: slog.Default()}, nil
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := h.logger.With("correlation_id", correlationID)

	var req askRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return jsonResponse(http.StatusBadRequest, correlationID, errorResponse{
			Error: string(usecase.ErrorInputRejected), Message: "invalid JSON body",
		}), nil
	}

	kind, payload, err := classify(req)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, correlationID, errorResponse{
			Error: string(usecase.ErrorInputRejected), Message: err.Error(),
		}), nil
	}
	if kind == usecase.KindSelfLocate {
		ctx = geolocation.WithPosition(ctx, domain.Coordinates{Lat: *req.Lat, Lon: *req.Lon})
	}

	res, err := h.dispatcher.Dispatch(ctx, kind, payload)
	if err != nil {
		status := statusFor(err)
		logger.Warn("dispatch failed", "kind", kind, "status", status, "err", err)
		return jsonResponse(status, correlationID, errorResponse{
			Error: string(usecase.CodeOf(err)), Message: usecase.FailureText(kind),
		}), nil
	}

	out := askResponse{Kind: string(kind), Answer: res.Text, Notice: string(res.Recovered)}
	if res.Focus != nil && res.Focus.Coordinates != nil {
		out.Focus = &focusResponse{
			Raw:    res.Focus.Raw,
			Lat:    res.Focus.Coordinates.Lat,
			Lon:    res.Focus.Coordinates.Lon,
			Source: string(res.Focus.Source),
		}
	}
	logger.Info("dispatch finished", "kind", kind, "notice", out.Notice)
	return jsonResponse(http.StatusOK, correlationID, out), nil
}

func classify(req askRequest) (usecase.Kind, string, error) {
	switch {
	case req.Lat != nil || req.Lon != nil:
		if req.Lat == nil || req.Lon == nil {
			return "", "", errors.New("lat and lon must be sent together")
		}
		return usecase.KindSelfLocate, "", nil
	case strings.TrimSpace(req.Location) != "":
		return usecase.KindLocationSearch, strings.TrimSpace(req.Location), nil
	case strings.TrimSpace(req.Question) != "":
		return usecase.KindDirectQuery, strings.TrimSpace(req.Question), nil
	default:
		return "", "", errors.New("question, location or lat/lon is required")
	}
}

func statusFor(err error) int {
	switch usecase.CodeOf(err) {
	case usecase.ErrorInputRejected:
		return http.StatusBadRequest
	case usecase.ErrorSuperseded:
		return http.StatusGatewayTimeout
	}
	if status, ok := usecase.UpstreamStatus(err); ok && status == http.StatusTooManyRequests {
		return http.StatusTooManyRequests
	}
	return http.StatusBadGateway
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func jsonResponse(status int, correlationID string, body any) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		raw = []byte(`{"error":"INTERNAL"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(raw),
	}
}
