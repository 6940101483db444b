// Package app wires configuration into the clients, caches and orchestrator
// shared by the Lambda endpoint and the terminal client.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/prometheus/client_golang/prometheus"

	"wargabantuin/internal/config"
	"wargabantuin/internal/geocode"
	"wargabantuin/internal/integrations/backend"
	"wargabantuin/internal/integrations/geolocation"
	"wargabantuin/internal/integrations/nominatim"
	"wargabantuin/internal/integrations/paramstore"
	"wargabantuin/internal/observability"
	"wargabantuin/internal/repository"
	"wargabantuin/internal/usecase"
)

type Stack struct {
	Config       config.Config
	Backend      *backend.Client
	Geocoder     *geocode.Cached
	Orchestrator *usecase.Orchestrator
	Metrics      *observability.Metrics
}

// loadAWS is replaced in tests so Build never reaches for credentials.
var loadAWS = func(ctx context.Context) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx)
}

// Build applies Parameter Store overrides, validates cfg and constructs the
// stack. AWS configuration is only loaded when PARAM_PREFIX or GEOCODE_TABLE
// asks for it.
func Build(ctx context.Context, cfg config.Config, locator geolocation.Locator, reg prometheus.Registerer, logger *slog.Logger) (*Stack, error) {
	if locator == nil {
		return nil, errors.New("app: locator must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var (
		awsCfg    aws.Config
		awsLoaded bool
	)
	sharedAWS := func() (aws.Config, error) {
		if awsLoaded {
			return awsCfg, nil
		}
		c, err := loadAWS(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("app: load AWS config: %w", err)
		}
		awsCfg, awsLoaded = c, true
		return awsCfg, nil
	}

	if cfg.ParamPrefix != "" {
		ac, err := sharedAWS()
		if err != nil {
			return nil, err
		}
		params, err := paramstore.New(awsssm.NewFromConfig(ac))
		if err != nil {
			return nil, err
		}
		if err := cfg.ApplyOverrides(ctx, params); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	metrics := observability.MustNewMetrics(reg)

	bc, err := backend.NewClient(cfg.BackendURL)
	if err != nil {
		return nil, err
	}

	nomOpts := []nominatim.Option{nominatim.WithEmail(cfg.GeocoderEmail)}
	if cfg.GeocoderURL != "" {
		nomOpts = append(nomOpts, nominatim.WithBaseURL(cfg.GeocoderURL))
	}
	cacheOpts := []geocode.Option{geocode.WithRecorder(metrics), geocode.WithLogger(logger)}
	if cfg.GeocodeTable != "" {
		ac, err := sharedAWS()
		if err != nil {
			return nil, err
		}
		store, err := repository.New(awsdynamodb.NewFromConfig(ac), cfg.GeocodeTable)
		if err != nil {
			return nil, err
		}
		cacheOpts = append(cacheOpts, geocode.WithStore(store))
	}
	geo, err := geocode.NewCached(nominatim.NewClient(nomOpts...), cfg.GeocodeCacheSize, cacheOpts...)
	if err != nil {
		return nil, err
	}

	orch, err := usecase.NewOrchestrator(bc, geo, locator,
		usecase.WithGeolocationTimeout(cfg.GeolocationTimeout),
		usecase.WithRecorder(metrics),
		usecase.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &Stack{
		Config:       cfg,
		Backend:      bc,
		Geocoder:     geo,
		Orchestrator: orch,
		Metrics:      metrics,
	}, nil
}
