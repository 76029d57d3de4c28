package cache

import (
	"time"

	"github.com/goliatone/go-query-cache/internal/validate"
)

// Config exposes the query cache defaults. Individual reads may override the
// stale window and retry limit with ReadOptions.
type Config struct {
	// StaleWindow is how long a successful result counts as fresh. Stale
	// entries are still served; they only trigger a background refetch.
	StaleWindow time.Duration `mapstructure:"stale_window" validate:"gte=0"`

	// RetryLimit is the number of additional attempts after a failed fetch.
	RetryLimit int `mapstructure:"retry_limit" validate:"gte=0,lte=10"`

	// RetryDelay is the constant pause between attempts.
	RetryDelay time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
}

// ConfigError represents a configuration validation error.
type ConfigError = validate.FieldError

// DefaultConfig returns the defaults used by the news portal client: five
// minute freshness and a single retry.
func DefaultConfig() Config {
	return Config{
		StaleWindow: 5 * time.Minute,
		RetryLimit:  1,
		RetryDelay:  250 * time.Millisecond,
	}
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return validate.Struct(c)
}
