// Package resilience wraps a callable unit with timeout, retry with backoff,
// and circuit breaking, under a single named policy shared by all concurrent
// callers.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// Config tunes one named policy. Zero fields fall back to defaults.
type Config struct {
	Name string

	// AttemptTimeout bounds a single invocation of the wrapped operation.
	AttemptTimeout time.Duration

	// MaxAttempts is the total attempt budget, first call included.
	MaxAttempts uint64

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// FailureThreshold is the number of consecutive failed executions
	// (each one a fully exhausted retry budget) that opens the circuit.
	FailureThreshold uint32

	// OpenTimeout is the cool-down before an open circuit lets trial
	// calls through again.
	OpenTimeout time.Duration

	// HalfOpenMaxCalls limits trial calls while the circuit is half-open.
	HalfOpenMaxCalls uint32

	// IsPermanent reports whether an error is a business result rather
	// than a fault. Permanent errors are returned as-is: no retry, no
	// breaker accounting, no fallback.
	IsPermanent func(error) bool
}

func (c Config) withDefaults() Config {
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = 3 * time.Second
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 2 * time.Second
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenMaxCalls == 0 {
		c.HalfOpenMaxCalls = 1
	}
	if c.IsPermanent == nil {
		c.IsPermanent = func(error) bool { return false }
	}
	return c
}

// Operation is the guarded unit of work.
type Operation[T any] func(ctx context.Context) (T, error)

// Fallback produces the degraded result when the operation cannot be
// attempted (circuit open) or has exhausted its retries.
type Fallback[T any] func(cause error) (T, error)

// Policy governs operations returning T under one shared circuit breaker.
type Policy[T any] struct {
	cfg     Config
	breaker *gobreaker.CircuitBreaker[T]
	logger  *slog.Logger
}

func New[T any](cfg Config, logger *slog.Logger) *Policy[T] {
	cfg = cfg.withDefaults()

	breaker := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenMaxCalls,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// Business rejections are successful calls as far as the
		// breaker is concerned.
		IsSuccessful: func(err error) bool {
			return err == nil || cfg.IsPermanent(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"policy", name, "from", from.String(), "to", to.String())
		},
	})

	return &Policy[T]{cfg: cfg, breaker: breaker, logger: logger}
}

// Execute runs op under the policy: per-attempt timeout, retries with
// exponential backoff for transient faults, and the shared circuit breaker
// counting one failure per exhausted retry budget. fallback is invoked when
// the circuit is open or retries ran out; permanent errors bypass it.
func (p *Policy[T]) Execute(ctx context.Context, op Operation[T], fallback Fallback[T]) (T, error) {
	result, err := p.breaker.Execute(func() (T, error) {
		return p.retry(ctx, op)
	})
	if err == nil || p.cfg.IsPermanent(err) {
		return result, err
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		p.logger.Warn("circuit breaker rejected call", "policy", p.cfg.Name, "error", err)
	}

	if fallback != nil {
		return fallback(err)
	}
	return result, err
}

// State exposes the breaker state for metrics and tests.
func (p *Policy[T]) State() gobreaker.State {
	return p.breaker.State()
}

func (p *Policy[T]) retry(ctx context.Context, op Operation[T]) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.InitialBackoff
	bo.MaxInterval = p.cfg.MaxBackoff
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, p.cfg.MaxAttempts-1), ctx)

	return backoff.RetryNotifyWithData(func() (T, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
		defer cancel()

		result, err := op(attemptCtx)
		if err != nil && p.cfg.IsPermanent(err) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}, policy, func(err error, wait time.Duration) {
		p.logger.Warn("retrying after transient failure",
			"policy", p.cfg.Name, "error", err, "backoff", wait.String())
	})
}
