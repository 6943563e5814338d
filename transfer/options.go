package transfer

import (
	"time"

	"github.com/moffa90/go-badgelink/link"
)

// Config holds transfer engine configuration.
type Config struct {
	// ChunkSize is the payload of each data write; zero uses the channel MTU
	ChunkSize int

	// Retries is the number of attempts per chunk before a send aborts
	Retries int

	// Boost raises the link priority for the duration of each job
	Boost bool

	// Logger receives debug and error events (optional)
	Logger link.Logger
}

// Option is a functional option for configuring the engine.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Retries: 3,
		Boost:   true,
		Logger:  link.NopLogger{},
	}
}

// WithChunkSize overrides the chunk size.
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.ChunkSize = size
		}
	}
}

// WithRetries sets the per-chunk attempt budget.
func WithRetries(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Retries = n
		}
	}
}

// WithPriorityBoost enables or disables the transient high-priority mode.
func WithPriorityBoost(enabled bool) Option {
	return func(c *Config) {
		c.Boost = enabled
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

// DefaultTimeout bounds a job when the caller passes no timeout.
const DefaultTimeout = 60 * time.Second
