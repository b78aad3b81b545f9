package app

import (
	"errors"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppBaseURL        string        `envconfig:"APP_BASE_URL" default:"http://127.0.0.1:8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"20s"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"300"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	// APIBaseURL is the primary REST root. Empty serves everything from the
	// mock document.
	APIBaseURL            string        `envconfig:"API_BASE_URL" default:""`
	DatasourceTimeout     time.Duration `envconfig:"DATASOURCE_TIMEOUT" default:"5s"`
	DatasourceFallbackURL string        `envconfig:"DATASOURCE_FALLBACK_URL" default:""`
	DatasourceCacheTTL    time.Duration `envconfig:"DATASOURCE_CACHE_TTL" default:"0s"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:""`
	PGDSN     string `envconfig:"PG_DSN" default:""`

	// GotenbergURL enables PDF exports when set.
	GotenbergURL     string        `envconfig:"GOTENBERG_URL" default:""`
	GotenbergTimeout time.Duration `envconfig:"GOTENBERG_TIMEOUT" default:"30s"`

	DisplayLocale   string `envconfig:"DISPLAY_LOCALE" default:"en-US"`
	ExportRateLimit int    `envconfig:"EXPORT_RATE_LIMIT" default:"10"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatasourceTimeout <= 0 {
		return errors.New("datasource timeout must be positive")
	}
	if c.DatasourceCacheTTL < 0 {
		return errors.New("datasource cache ttl must not be negative")
	}
	if c.DatasourceCacheTTL > 0 && c.RedisAddr == "" {
		return errors.New("datasource cache requires REDIS_ADDR")
	}
	if c.AppRateLimit <= 0 {
		return errors.New("app rate limit must be positive")
	}
	if c.ExportRateLimit <= 0 {
		return errors.New("export rate limit must be positive")
	}
	return nil
}

// FallbackURL returns the mock document location, defaulting to the copy
// served by this application.
func (c *Config) FallbackURL() string {
	if c == nil {
		return ""
	}
	if u := strings.TrimSpace(c.DatasourceFallbackURL); u != "" {
		return u
	}
	return strings.TrimRight(c.AppBaseURL, "/") + MockDocumentPath
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
