package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"wargabantuin/handler"
	"wargabantuin/internal/app"
	"wargabantuin/internal/config"
	"wargabantuin/internal/integrations/geolocation"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	// Callers send their own coordinates, so self-locate reads them from the
	// request context.
	stack, err := app.Build(ctx, cfg, geolocation.Contextual{}, prometheus.DefaultRegisterer, slog.Default())
	if err != nil {
		slog.Error("failed to build advisory stack", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(stack.Orchestrator)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
