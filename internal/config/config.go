// Package config reads process configuration from the environment, optional
// .env files and, when PARAM_PREFIX is set, Parameter Store overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BackendURL         string
	GeocoderURL        string
	GeocoderEmail      string
	TypingInterval     time.Duration
	Debounce           time.Duration
	GeolocationTimeout time.Duration
	ScrollSlack        float64
	MyLat              *float64
	MyLon              *float64
	GeocodeTable       string
	GeocodeCacheSize   int
	MetricsAddr        string
	ParamPrefix        string
}

// Params looks up remote overrides; *paramstore.Client satisfies it.
type Params interface {
	Lookup(ctx context.Context, name string) (string, bool, error)
}

// Load merges the given .env files into the process environment (existing
// variables win, missing files are skipped) and reads the configuration.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv), nil
}

// FromEnv builds a Config from getenv without validating it.
func FromEnv(getenv func(string) string) Config {
	return Config{
		BackendURL:         strings.TrimSpace(getenv("BACKEND_URL")),
		GeocoderURL:        strings.TrimSpace(getenv("GEOCODER_URL")),
		GeocoderEmail:      strings.TrimSpace(getenv("GEOCODER_EMAIL")),
		TypingInterval:     envMillis(getenv, "TYPING_INTERVAL_MS", 30),
		Debounce:           envMillis(getenv, "DEBOUNCE_MS", 800),
		GeolocationTimeout: envMillis(getenv, "GEOLOCATION_TIMEOUT_MS", 5000),
		ScrollSlack:        envFloat(getenv, "SCROLL_SLACK_PX", 100),
		MyLat:              envFloatPtr(getenv, "MY_LAT"),
		MyLon:              envFloatPtr(getenv, "MY_LON"),
		GeocodeTable:       strings.TrimSpace(getenv("GEOCODE_TABLE")),
		GeocodeCacheSize:   envInt(getenv, "GEOCODE_CACHE_SIZE", 256),
		MetricsAddr:        strings.TrimSpace(getenv("METRICS_ADDR")),
		ParamPrefix:        strings.TrimRight(strings.TrimSpace(getenv("PARAM_PREFIX")), "/"),
	}
}

// ApplyOverrides replaces BackendURL and GeocoderEmail with the values stored
// under ParamPrefix. Parameters that do not exist leave the field unchanged.
func (c *Config) ApplyOverrides(ctx context.Context, p Params) error {
	if c.ParamPrefix == "" || p == nil {
		return nil
	}
	overrides := []struct {
		name  string
		field *string
	}{
		{name: "backend_url", field: &c.BackendURL},
		{name: "geocoder_email", field: &c.GeocoderEmail},
	}
	for _, o := range overrides {
		v, ok, err := p.Lookup(ctx, c.ParamPrefix+"/"+o.name)
		if err != nil {
			return fmt.Errorf("config: override %s: %w", o.name, err)
		}
		if ok && strings.TrimSpace(v) != "" {
			*o.field = strings.TrimSpace(v)
		}
	}
	return nil
}

func (c Config) Validate() error {
	if c.BackendURL == "" {
		return errors.New("config: BACKEND_URL is required")
	}
	if (c.MyLat == nil) != (c.MyLon == nil) {
		return errors.New("config: MY_LAT and MY_LON must be set together")
	}
	return nil
}

func envInt(getenv func(string) string, key string, def int) int {
	v := getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envMillis(getenv func(string) string, key string, def int) time.Duration {
	n := envInt(getenv, key, def)
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Millisecond
}

func envFloat(getenv func(string) string, key string, def float64) float64 {
	if p := envFloatPtr(getenv, key); p != nil {
		return *p
	}
	return def
}

func envFloatPtr(getenv func(string) string, key string) *float64 {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}
