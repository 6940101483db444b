package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"wargabantuin/internal/domain"
	"wargabantuin/internal/integrations/backend"
	"wargabantuin/internal/integrations/geolocation"
	"wargabantuin/internal/usecase"
)

type stubDispatcher struct {
	out     usecase.Result
	err     error
	kind    usecase.Kind
	payload string
	pos     *domain.Coordinates
}

func (s *stubDispatcher) Dispatch(ctx context.Context, kind usecase.Kind, payload string) (usecase.Result, error) {
	s.kind = kind
	s.payload = payload
	if c, err := (geolocation.Contextual{}).CurrentPosition(ctx, geolocation.Options{}); err == nil {
		s.pos = &c
	}
	return s.out, s.err
}

func makeEvent(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/ask",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependency(t *testing.T) {
	_, err := NewHandler(nil)
	require.Error(t, err)
}

func TestHandle_DirectQuery(t *testing.T) {
	d := &stubDispatcher{out: usecase.Result{Text: "Bayam, Kangkung"}}
	h, err := NewHandler(d)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"question":"  Daftar sayuran "}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.KindDirectQuery, d.kind)
	require.Equal(t, "Daftar sayuran", d.payload)

	out := parseBody[askResponse](t, resp.Body)
	require.Equal(t, "Bayam, Kangkung", out.Answer)
	require.Equal(t, "direct-query", out.Kind)
	require.Nil(t, out.Focus)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}

func TestHandle_SelfLocatePassesPosition(t *testing.T) {
	at := domain.Coordinates{Lat: -6.2, Lon: 106.8}
	d := &stubDispatcher{out: usecase.Result{
		Text:  "laporan",
		Focus: &domain.LocationQuery{Coordinates: &at, Source: domain.SourceGeolocation},
	}}
	h, err := NewHandler(d)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"lat":-6.2,"lon":106.8}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.KindSelfLocate, d.kind)
	require.Equal(t, &at, d.pos)

	out := parseBody[askResponse](t, resp.Body)
	require.Equal(t, &focusResponse{Lat: -6.2, Lon: 106.8, Source: "geolocation"}, out.Focus)
}

func TestHandle_LocationSearchNotice(t *testing.T) {
	d := &stubDispatcher{out: usecase.Result{Text: "❌ tidak ditemukan", Recovered: usecase.ErrorGeocodeNotFound}}
	h, err := NewHandler(d)
	require.NoError(t, err)

	resp, err := h.Handle(context.Background(), makeEvent(`{"location":"Atlantis","question":"ignored"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.KindLocationSearch, d.kind)
	require.Equal(t, "Atlantis", d.payload)
	require.Equal(t, "GEOCODE_NOT_FOUND", parseBody[askResponse](t, resp.Body).Notice)
}

func TestHandle_InvalidBody(t *testing.T) {
	for name, body := range map[string]string{
		"not json":  `not-json`,
		"empty":     `{}`,
		"blank":     `{"question":"   "}`,
		"half pair": `{"lat":1}`,
	} {
		t.Run(name, func(t *testing.T) {
			d := &stubDispatcher{}
			h, err := NewHandler(d)
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeEvent(body))
			require.NoError(t, err)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.Equal(t, string(usecase.ErrorInputRejected), parseBody[errorResponse](t, resp.Body).Error)
			require.Empty(t, d.kind, "nothing is dispatched")
		})
	}
}

func TestHandle_MapsDispatchErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "rejected", err: &usecase.Error{Code: usecase.ErrorInputRejected, Reason: "empty_question"}, status: http.StatusBadRequest, code: "INPUT_REJECTED"},
		{name: "superseded", err: &usecase.Error{Code: usecase.ErrorSuperseded, Reason: "context_done"}, status: http.StatusGatewayTimeout, code: "SUPERSEDED"},
		{name: "backend down", err: &usecase.Error{Code: usecase.ErrorBackendUnreachable, Reason: "chatbot_error", Err: &backend.HTTPStatusError{StatusCode: http.StatusInternalServerError}}, status: http.StatusBadGateway, code: "BACKEND_UNREACHABLE"},
		{name: "backend throttled", err: &usecase.Error{Code: usecase.ErrorBackendUnreachable, Reason: "chatbot_error", Err: &backend.HTTPStatusError{StatusCode: http.StatusTooManyRequests}}, status: http.StatusTooManyRequests, code: "BACKEND_UNREACHABLE"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusBadGateway, code: "BACKEND_UNREACHABLE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := NewHandler(&stubDispatcher{err: tc.err})
			require.NoError(t, err)

			resp, err := h.Handle(context.Background(), makeEvent(`{"question":"halo"}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, tc.code, out.Error)
			require.Equal(t, usecase.TextChatFailure, out.Message)
		})
	}
}

func TestHandle_UsesProvidedCorrelationID_CaseInsensitive(t *testing.T) {
	h, err := NewHandler(&stubDispatcher{out: usecase.Result{Text: "ok"}})
	require.NoError(t, err)

	event := makeEvent(`{"question":"halo"}`)
	event.Headers["x-correlation-id"] = "corr-123"
	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-123", resp.Headers["X-Correlation-Id"])
}
