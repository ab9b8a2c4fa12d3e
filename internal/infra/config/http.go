package config

import "time"

// HTTPConfig represents the outbound HTTP client configuration.
type HTTPConfig struct {
	MaxAttempts   int               `mapstructure:"max_attempts"   validate:"gte=1,lte=10"`
	BackoffFactor time.Duration     `mapstructure:"backoff_factor" validate:"gte=0"`
	MaxBackoff    time.Duration     `mapstructure:"max_backoff"    validate:"gte=0"`
	Timeout       time.Duration     `mapstructure:"timeout"        validate:"gte=0"`
	RateLimiter   RateLimiterConfig `mapstructure:"rate_limiter"`
}

// RateLimiterConfig holds the configuration for the outbound rate limiter.
type RateLimiterConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Rate    float64 `mapstructure:"rate"  validate:"required_if=Enabled true,omitempty,gt=0"`
	Burst   int     `mapstructure:"burst" validate:"gte=0"`
}
