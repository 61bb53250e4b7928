package resilience

import "time"

// Operation names one guarded outbound dependency. Each operation has its own
// circuit breaker and may carry its own retry policy.
type Operation string

const (
	OpEmbed           Operation = "ollama.embed"
	OpPublishDecision Operation = "nats.publish_decision"
)

type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

type BreakerPolicy struct {
	Enabled          bool
	MinRequests      uint32
	FailureRatio     float64
	OpenTimeout      time.Duration
	HalfOpenMaxCalls uint32
}

type Config struct {
	Retry   RetryPolicy
	Breaker BreakerPolicy

	// PerOperation replaces Retry for the listed operations.
	PerOperation map[Operation]RetryPolicy
}

func DefaultConfig() Config {
	return Config{
		Retry: RetryPolicy{
			MaxAttempts:    3,
			InitialBackoff: 100 * time.Millisecond,
			MaxBackoff:     400 * time.Millisecond,
			Multiplier:     2.0,
		},
		Breaker: BreakerPolicy{
			Enabled:          true,
			MinRequests:      10,
			FailureRatio:     0.5,
			OpenTimeout:      30 * time.Second,
			HalfOpenMaxCalls: 2,
		},
		PerOperation: map[Operation]RetryPolicy{
			// Runs on the confirm request after the transaction committed.
			OpPublishDecision: {
				MaxAttempts:    2,
				InitialBackoff: 50 * time.Millisecond,
				MaxBackoff:     50 * time.Millisecond,
				Multiplier:     1.0,
			},
		},
	}
}

func (c Config) policyFor(op Operation) RetryPolicy {
	if policy, ok := c.PerOperation[op]; ok {
		return policy.normalize()
	}
	return c.Retry.normalize()
}

func (p RetryPolicy) normalize() RetryPolicy {
	def := DefaultConfig().Retry
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = def.InitialBackoff
	}
	if p.MaxBackoff < p.InitialBackoff {
		p.MaxBackoff = p.InitialBackoff
	}
	if p.Multiplier < 1.0 {
		p.Multiplier = def.Multiplier
	}
	return p
}

func (p RetryPolicy) next(backoff time.Duration) time.Duration {
	grown := time.Duration(float64(backoff) * p.Multiplier)
	return min(grown, p.MaxBackoff)
}

func (p BreakerPolicy) normalize() BreakerPolicy {
	def := DefaultConfig().Breaker
	if p.MinRequests == 0 {
		p.MinRequests = def.MinRequests
	}
	if p.FailureRatio <= 0 || p.FailureRatio > 1 {
		p.FailureRatio = def.FailureRatio
	}
	if p.OpenTimeout <= 0 {
		p.OpenTimeout = def.OpenTimeout
	}
	if p.HalfOpenMaxCalls == 0 {
		p.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}
	return p
}
