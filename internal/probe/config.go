package probe

import "time"

const (
	DefaultTimeout  = 8 * time.Second
	MinTimeout      = 2 * time.Second
	MaxTimeout      = 30 * time.Second
	DefaultCacheTTL = 5 * time.Minute
)

type Config struct {
	// DefaultTimeout applies when a caller passes no timeout.
	DefaultTimeout time.Duration
	// MinTimeout and MaxTimeout bound every caller-supplied timeout.
	MinTimeout time.Duration
	MaxTimeout time.Duration
	// CacheTTL is how long a result stays fresh.
	CacheTTL time.Duration
	// Concurrency caps simultaneous probes in ProbeMany. 0 means no cap.
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		DefaultTimeout: DefaultTimeout,
		MinTimeout:     MinTimeout,
		MaxTimeout:     MaxTimeout,
		CacheTTL:       DefaultCacheTTL,
	}
}

// Normalize replaces out-of-range values with defaults.
func (c Config) Normalize() Config {
	if c.MinTimeout <= 0 {
		c.MinTimeout = MinTimeout
	}
	if c.MaxTimeout <= 0 {
		c.MaxTimeout = MaxTimeout
	}
	if c.MaxTimeout < c.MinTimeout {
		c.MaxTimeout = c.MinTimeout
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	c.DefaultTimeout = clamp(c.DefaultTimeout, c.MinTimeout, c.MaxTimeout)
	if c.CacheTTL <= 0 {
		c.CacheTTL = DefaultCacheTTL
	}
	if c.Concurrency < 0 {
		c.Concurrency = 0
	}
	return c
}

// Clamp bounds timeout to [MinTimeout, MaxTimeout]; zero or negative
// selects DefaultTimeout.
func (c Config) Clamp(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		timeout = c.DefaultTimeout
	}
	return clamp(timeout, c.MinTimeout, c.MaxTimeout)
}

func clamp(d, lo, hi time.Duration) time.Duration {
	return min(max(d, lo), hi)
}
