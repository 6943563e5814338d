package mux

import (
	"time"

	"github.com/moffa90/go-badgelink/link"
)

// Config holds multiplexer configuration.
type Config struct {
	// SweepInterval is how often expired requests are failed
	SweepInterval time.Duration

	// DefaultTimeout applies to requests submitted without a timeout
	DefaultTimeout time.Duration

	// Logger receives debug and error events (optional)
	Logger link.Logger
}

// Option is a functional option for configuring the multiplexer.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		SweepInterval:  100 * time.Millisecond,
		DefaultTimeout: 5 * time.Second,
		Logger:         link.NopLogger{},
	}
}

// WithSweepInterval sets the timeout sweep period.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.SweepInterval = d
		}
	}
}

// WithDefaultTimeout sets the timeout for requests that do not carry one.
func WithDefaultTimeout(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.DefaultTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger link.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}
