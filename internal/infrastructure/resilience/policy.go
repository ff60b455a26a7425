package resilience

import "time"

// Config tunes retries and the breaker. Zero fields take DefaultConfig values,
// except BreakerEnabled.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

// DefaultConfig suits hosted LLM APIs: rate-limit responses clear within a
// second or two, and a dead provider should be skipped for half a minute.
func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: 250 * time.Millisecond,
		RetryMaxBackoff:     2 * time.Second,
		RetryMultiplier:     2.0,

		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

// SingleAttempt disables retries while keeping the breaker settings.
func (c Config) SingleAttempt() Config {
	out := c
	out.RetryMaxAttempts = 1
	return out
}

// backoff returns a generator of successive retry delays, growing by
// RetryMultiplier and capped at RetryMaxBackoff.
func (c Config) backoff() func() time.Duration {
	next := c.RetryInitialBackoff
	return func() time.Duration {
		d := min(next, c.RetryMaxBackoff)
		next = min(time.Duration(float64(next)*c.RetryMultiplier), c.RetryMaxBackoff)
		return d
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	out := c

	out.RetryMaxAttempts = positiveOr(out.RetryMaxAttempts, def.RetryMaxAttempts)
	out.RetryInitialBackoff = positiveOr(out.RetryInitialBackoff, def.RetryInitialBackoff)
	out.RetryMaxBackoff = max(positiveOr(out.RetryMaxBackoff, def.RetryMaxBackoff), out.RetryInitialBackoff)
	if out.RetryMultiplier < 1 {
		out.RetryMultiplier = def.RetryMultiplier
	}

	out.BreakerMinRequests = positiveOr(out.BreakerMinRequests, def.BreakerMinRequests)
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	out.BreakerOpenTimeout = positiveOr(out.BreakerOpenTimeout, def.BreakerOpenTimeout)
	out.BreakerHalfOpenMaxCalls = positiveOr(out.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls)
	return out
}

func positiveOr[T int | uint32 | time.Duration](v, fallback T) T {
	if v > 0 {
		return v
	}
	return fallback
}
