package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

// Transient reports whether a failure of the guarded call may succeed on a
// later attempt. Context cancellation never reaches it.
type Transient func(err error) bool

// Observer receives retry and breaker events.
type Observer interface {
	ObserveRetry(operation string)
	ObserveBreakerState(operation, state string)
}

type noopObserver struct{}

func (noopObserver) ObserveRetry(string)                {}
func (noopObserver) ObserveBreakerState(string, string) {}

type Option func(*Executor)

func WithObserver(observer Observer) Option {
	return func(e *Executor) {
		if observer != nil {
			e.observer = observer
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Executor guards calls to the embedding service and the message bus.
type Executor struct {
	cfg      Config
	observer Observer
	logger   *slog.Logger

	mu       sync.Mutex
	breakers map[Operation]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(cfg Config, opts ...Option) *Executor {
	cfg.Breaker = cfg.Breaker.normalize()
	e := &Executor{
		cfg:      cfg,
		observer: noopObserver{},
		logger:   slog.Default(),
		breakers: make(map[Operation]*gobreaker.CircuitBreaker[struct{}]),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs fn under the retry policy and breaker of op. A transient
// failure left after the last attempt, or a call refused by an open breaker,
// is returned as domain.ErrTemporary. Other errors are returned unchanged.
func (e *Executor) Execute(ctx context.Context, op Operation, fn func(context.Context) error, transient Transient) error {
	if fn == nil {
		return fmt.Errorf("resilience: %s callback is nil", op)
	}
	if transient == nil {
		transient = func(error) bool { return false }
	}

	var err error
	if e.cfg.Breaker.Enabled {
		_, err = e.breaker(op, transient).Execute(func() (struct{}, error) {
			return struct{}{}, e.retry(ctx, op, fn, transient)
		})
	} else {
		err = e.retry(ctx, op, fn, transient)
	}

	switch {
	case err == nil:
		return nil
	case domain.IsKind(err, domain.ErrTemporary):
		return err
	case IsCircuitOpen(err), retryable(err, transient):
		return domain.WrapError(domain.ErrTemporary, string(op), err)
	default:
		return err
	}
}

func (e *Executor) retry(ctx context.Context, op Operation, fn func(context.Context) error, transient Transient) error {
	policy := e.cfg.policyFor(op)
	backoff := policy.InitialBackoff

	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if err != nil {
				return err
			}
			return ctxErr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= policy.MaxAttempts || !retryable(err, transient) {
			return err
		}

		e.observer.ObserveRetry(string(op))
		e.logger.Warn("retry_attempt",
			"operation", op,
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"backoff_ms", backoff.Milliseconds(),
			"error", err,
		)
		if !sleep(ctx, backoff) {
			return err
		}
		backoff = policy.next(backoff)
	}
}

func (e *Executor) breaker(op Operation, transient Transient) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if cb, ok := e.breakers[op]; ok {
		return cb
	}
	policy := e.cfg.Breaker
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        string(op),
		MaxRequests: policy.HalfOpenMaxCalls,
		Timeout:     policy.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < policy.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= policy.FailureRatio
		},
		// Permanent failures never count against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !retryable(err, transient)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
			e.observer.ObserveBreakerState(name, to.String())
		},
	})
	e.breakers[op] = cb
	return cb
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func retryable(err error, transient Transient) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return transient(err)
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
