// Package config loads service settings from PANTRY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port     string `env:"PANTRY_PORT" envDefault:"8080"`
	DBPath   string `env:"PANTRY_DB_PATH" envDefault:"pantry.db"`
	LogLevel string `env:"PANTRY_LOG_LEVEL" envDefault:"info"`
	// LogFormat is "text" for colored console output or "json".
	LogFormat string `env:"PANTRY_LOG_FORMAT" envDefault:"text"`

	JWTSecret string        `env:"PANTRY_JWT_SECRET"`
	TokenTTL  time.Duration `env:"PANTRY_TOKEN_TTL" envDefault:"168h"`
	// SecureCookies marks credential and household cookies Secure.
	SecureCookies bool `env:"PANTRY_SECURE_COOKIES" envDefault:"false"`

	RecommenderURL     string        `env:"PANTRY_RECOMMENDER_URL" envDefault:"http://localhost:8000/recommend"`
	RecommenderTimeout time.Duration `env:"PANTRY_RECOMMENDER_TIMEOUT" envDefault:"10s"`
	// RecommendIdleTTL is how long a household's recommendation state is kept
	// after its last result before it is evicted.
	RecommendIdleTTL time.Duration `env:"PANTRY_RECOMMEND_IDLE_TTL" envDefault:"30m"`

	// OTelEndpoint enables trace export when set, e.g. http://localhost:4318.
	OTelEndpoint string `env:"PANTRY_OTEL_ENDPOINT"`

	LoginRateLimit  int           `env:"PANTRY_LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow time.Duration `env:"PANTRY_LOGIN_RATE_WINDOW" envDefault:"1m"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that parse correctly but cannot work.
func (c Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("PANTRY_JWT_SECRET must be at least 32 characters"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("PANTRY_TOKEN_TTL must be positive"))
	}
	if u, err := url.Parse(c.RecommenderURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("PANTRY_RECOMMENDER_URL %q is not an absolute URL", c.RecommenderURL))
	}
	if c.RecommenderTimeout <= 0 {
		errs = append(errs, errors.New("PANTRY_RECOMMENDER_TIMEOUT must be positive"))
	}
	if c.RecommendIdleTTL <= 0 {
		errs = append(errs, errors.New("PANTRY_RECOMMEND_IDLE_TTL must be positive"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("PANTRY_LOG_FORMAT %q must be text or json", c.LogFormat))
	}
	if c.LoginRateLimit <= 0 || c.LoginRateWindow <= 0 {
		errs = append(errs, errors.New("login rate limit and window must be positive"))
	}
	return errors.Join(errs...)
}
