package health

import "time"

const (
	DefaultFailureThreshold = 3
	DefaultProbeWindow      = 5
	DefaultInitialFreeze    = 60 * time.Second
	DefaultMaxFreeze        = 30 * time.Minute
	DefaultFreezeMultiplier = 2.0
)

// Config controls when channels freeze and how they recover.
type Config struct {
	// FailureThreshold is the number of consecutive failures that freezes a channel.
	FailureThreshold int
	// ProbeWindow is the number of consecutive successes a probing channel
	// needs to become healthy again.
	ProbeWindow int
	// InitialFreeze is the length of the first freeze.
	InitialFreeze time.Duration
	// MaxFreeze caps the freeze length.
	MaxFreeze time.Duration
	// FreezeMultiplier grows the freeze length after every freeze.
	FreezeMultiplier float64
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: DefaultFailureThreshold,
		ProbeWindow:      DefaultProbeWindow,
		InitialFreeze:    DefaultInitialFreeze,
		MaxFreeze:        DefaultMaxFreeze,
		FreezeMultiplier: DefaultFreezeMultiplier,
	}
}

// Normalize replaces out-of-range values with defaults so the tracker never
// has to reject a configuration.
func (c Config) Normalize() Config {
	if c.FailureThreshold < 1 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.ProbeWindow < 1 {
		c.ProbeWindow = DefaultProbeWindow
	}
	if c.InitialFreeze <= 0 {
		c.InitialFreeze = DefaultInitialFreeze
	}
	if c.MaxFreeze <= 0 {
		c.MaxFreeze = DefaultMaxFreeze
	}
	if c.MaxFreeze < c.InitialFreeze {
		c.MaxFreeze = c.InitialFreeze
	}
	if c.FreezeMultiplier < 1 {
		c.FreezeMultiplier = DefaultFreezeMultiplier
	}
	return c
}

// grow returns the freeze length that follows current.
func (c Config) grow(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * c.FreezeMultiplier)
	// A huge multiplier can overflow into a negative duration.
	if next < current || next > c.MaxFreeze {
		return c.MaxFreeze
	}
	return next
}
