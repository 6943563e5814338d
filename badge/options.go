package badge

import "time"

// Config holds the client configuration.
type Config struct {
	// ProgressCallback is called during bulk transfers (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// CommandTimeout bounds the wait for a simple command's response
	CommandTimeout time.Duration

	// TransferTimeout bounds commands that carry a bulk transfer
	TransferTimeout time.Duration

	// WriteTimeout bounds the wait for a single write completion
	WriteTimeout time.Duration

	// SweepInterval is how often expired requests are failed
	SweepInterval time.Duration

	// ChunkSize is the bulk transfer chunk size; zero uses the link MTU
	ChunkSize int

	// Retries is the number of attempts per chunk
	Retries int

	// PriorityBoost raises the link priority during bulk transfers
	PriorityBoost bool

	// HardwareCheck compares the firmware hardware tag with the badge's
	// hardware version before updating
	HardwareCheck bool
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		CommandTimeout:  5 * time.Second,
		TransferTimeout: 60 * time.Second,
		WriteTimeout:    5 * time.Second,
		SweepInterval:   100 * time.Millisecond,
		Retries:         3,
		PriorityBoost:   true,
	}
}

// Option is a functional option for configuring the Client.
type Option func(*Config)

// WithProgressCallback sets a callback function to track transfer progress.
//
// Example:
//
//	client, _ := badge.New(ch, token,
//	    badge.WithProgressCallback(func(p badge.Progress) {
//	        fmt.Printf("%.1f%% complete\n", p.Fraction*100)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for client operations.
//
// Example:
//
//	client, _ := badge.New(ch, token, badge.WithLogger(myLogger))
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTimeout sets the response timeout for simple commands.
//
// Example:
//
//	client, _ := badge.New(ch, token, badge.WithTimeout(10*time.Second))
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.CommandTimeout = timeout
		}
	}
}

// WithTransferTimeout sets the timeout for image and firmware transfers.
func WithTransferTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.TransferTimeout = timeout
		}
	}
}

// WithWriteTimeout sets how long a single write may wait for completion.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.WriteTimeout = timeout
		}
	}
}

// WithSweepInterval sets how often expired requests are failed. Timeouts
// fire at most one interval late.
func WithSweepInterval(interval time.Duration) Option {
	return func(c *Config) {
		if interval > 0 {
			c.SweepInterval = interval
		}
	}
}

// WithChunkSize sets the bulk transfer chunk size.
// Default is the link MTU.
//
// Example:
//
//	client, _ := badge.New(ch, token, badge.WithChunkSize(244))
func WithChunkSize(size int) Option {
	return func(c *Config) {
		if size > 0 {
			c.ChunkSize = size
		}
	}
}

// WithRetries sets the number of attempts per chunk.
//
// Example:
//
//	client, _ := badge.New(ch, token, badge.WithRetries(5))
func WithRetries(retries int) Option {
	return func(c *Config) {
		if retries > 0 {
			c.Retries = retries
		}
	}
}

// WithPriorityBoost enables or disables the high-priority link mode during
// bulk transfers. Default is true.
func WithPriorityBoost(enabled bool) Option {
	return func(c *Config) {
		c.PriorityBoost = enabled
	}
}

// WithHardwareCheck makes UpdateFirmware refuse images built for other
// hardware revisions.
func WithHardwareCheck(enabled bool) Option {
	return func(c *Config) {
		c.HardwareCheck = enabled
	}
}
