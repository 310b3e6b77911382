package resilience

import "time"

// Config tunes dispatch retries and the per-backend circuit breakers.
// Search dispatch sits on an interactive path, so the defaults keep the
// retry budget small.
type Config struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64

	BreakerEnabled       bool
	BreakerMinCalls      uint32
	BreakerFailureRatio  float64
	BreakerCooldown      time.Duration
	BreakerHalfOpenCalls uint32
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts:       2,
		InitialBackoff:    50 * time.Millisecond,
		MaxBackoff:        200 * time.Millisecond,
		BackoffMultiplier: 2.0,

		BreakerEnabled:       true,
		BreakerMinCalls:      10,
		BreakerFailureRatio:  0.5,
		BreakerCooldown:      30 * time.Second,
		BreakerHalfOpenCalls: 2,
	}
}

func (c Config) normalize() Config {
	out := c
	def := DefaultConfig()

	if out.MaxAttempts <= 0 {
		out.MaxAttempts = def.MaxAttempts
	}
	if out.InitialBackoff <= 0 {
		out.InitialBackoff = def.InitialBackoff
	}
	if out.MaxBackoff <= 0 {
		out.MaxBackoff = def.MaxBackoff
	}
	if out.MaxBackoff < out.InitialBackoff {
		out.MaxBackoff = out.InitialBackoff
	}
	if out.BackoffMultiplier < 1.0 {
		out.BackoffMultiplier = def.BackoffMultiplier
	}

	if out.BreakerMinCalls == 0 {
		out.BreakerMinCalls = def.BreakerMinCalls
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	if out.BreakerCooldown <= 0 {
		out.BreakerCooldown = def.BreakerCooldown
	}
	if out.BreakerHalfOpenCalls == 0 {
		out.BreakerHalfOpenCalls = def.BreakerHalfOpenCalls
	}

	return out
}
