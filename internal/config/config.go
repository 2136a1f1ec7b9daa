package config

import (
	"errors"
	"time"
)

// ErrMissingJWTSecret is returned when no signing secret is configured.
// This is the only configuration problem that is fatal for the process:
// without a secret neither HTTP auth nor the socket gate can verify tokens.
var ErrMissingJWTSecret = errors.New("jwt secret is not configured")

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`

	DatabasePath string `mapstructure:"database_path" yaml:"database_path"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	TokenTTL    time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`
	ResetTTL    time.Duration `mapstructure:"reset_token_ttl" yaml:"reset_token_ttl"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// RedisAddr enables the user lookup response cache when non-empty.
	RedisAddr string        `mapstructure:"redis_addr" yaml:"redis_addr"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`

	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	// RateLimit is requests per second per client IP on /api; RateBurst is the bucket size.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "chatline.db",
		JWTIssuer:         "chatline",
		JWTAudience:       "chatline",
		TokenTTL:          time.Hour,
		ResetTTL:          time.Hour,
		LogLevel:          "info",
		CacheTTL:          30 * time.Minute,
		AllowedOrigins:    []string{"*"},
		RateLimit:         20,
		RateBurst:         40,
	}
}

// Validate checks invariants that must hold before the server starts.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}
