package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"wargabantuin/internal/config"
	"wargabantuin/internal/integrations/geolocation"
)

func stubAWS(t *testing.T, err error) *int {
	t.Helper()
	calls := 0
	orig := loadAWS
	loadAWS = func(context.Context) (aws.Config, error) {
		calls++
		return aws.Config{Region: "ap-southeast-3"}, err
	}
	t.Cleanup(func() { loadAWS = orig })
	return &calls
}

func baseConfig() config.Config {
	return config.Config{
		BackendURL:         "https://bisakah.pythonanywhere.com",
		GeolocationTimeout: 2 * time.Second,
		GeocodeCacheSize:   16,
	}
}

func TestBuild_WithoutAWS(t *testing.T) {
	calls := stubAWS(t, nil)

	stack, err := Build(context.Background(), baseConfig(), geolocation.Unavailable{}, prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	require.NotNil(t, stack.Orchestrator)
	require.NotNil(t, stack.Geocoder)
	require.NotNil(t, stack.Metrics)
	require.Zero(t, *calls)
}

func TestBuild_ValidatesConfig(t *testing.T) {
	stubAWS(t, nil)
	cfg := baseConfig()
	cfg.BackendURL = ""

	_, err := Build(context.Background(), cfg, geolocation.Unavailable{}, prometheus.NewRegistry(), nil)
	require.ErrorContains(t, err, "BACKEND_URL")
}

func TestBuild_RequiresLocator(t *testing.T) {
	_, err := Build(context.Background(), baseConfig(), nil, prometheus.NewRegistry(), nil)
	require.Error(t, err)
}

func TestBuild_GeocodeTableLoadsAWSOnce(t *testing.T) {
	calls := stubAWS(t, nil)
	cfg := baseConfig()
	cfg.GeocodeTable = "wargabantuin-geocode"

	_, err := Build(context.Background(), cfg, geolocation.Unavailable{}, prometheus.NewRegistry(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, *calls)
}

func TestBuild_AWSFailure(t *testing.T) {
	stubAWS(t, errors.New("no credentials"))
	cfg := baseConfig()
	cfg.ParamPrefix = "/wargabantuin/prod"

	_, err := Build(context.Background(), cfg, geolocation.Unavailable{}, prometheus.NewRegistry(), nil)
	require.ErrorContains(t, err, "no credentials")
}
