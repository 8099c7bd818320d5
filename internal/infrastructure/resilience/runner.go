package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Classification tells the runner how an error affects retry and breaker
// accounting. Retryable errors are attempted again with backoff; errors that
// count as failures feed the breaker's failure ratio.
type Classification struct {
	Retryable       bool
	CountsAsFailure bool
}

type Classifier func(err error) Classification

// Runner executes outbound calls under a retry policy and a per-operation
// circuit breaker. Breakers are created lazily and keyed by operation name,
// so one misbehaving backend cannot open the breaker of another.
type Runner struct {
	policy Policy

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

func NewRunner(policy Policy) *Runner {
	return &Runner{
		policy:   policy.withDefaults(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

func (r *Runner) Do(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: nil operation callback")
	}
	op := strings.TrimSpace(operation)
	if op == "" {
		op = "unknown"
	}
	if classify == nil {
		classify = neverRetry
	}

	if !r.policy.BreakerEnabled {
		return r.retry(ctx, op, fn, classify)
	}

	breaker := r.breakerFor(op, classify)
	_, err := breaker.Execute(func() (any, error) {
		return nil, r.retry(ctx, op, fn, classify)
	})
	return err
}

func (r *Runner) retry(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	wait := r.policy.InitialBackoff

	var err error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !classify(err).Retryable || attempt == r.policy.MaxAttempts {
			return err
		}

		slog.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"backoff_ms", wait.Milliseconds(),
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		wait = time.Duration(float64(wait) * r.policy.BackoffFactor)
		if wait > r.policy.MaxBackoff {
			wait = r.policy.MaxBackoff
		}
	}
	return err
}

func (r *Runner) breakerFor(operation string, classify Classifier) *gobreaker.CircuitBreaker[any] {
	r.mu.Lock()
	defer r.mu.Unlock()

	if breaker, ok := r.breakers[operation]; ok {
		return breaker
	}

	settings := gobreaker.Settings{
		Name:        operation,
		MaxRequests: r.policy.BreakerProbeCalls,
		Timeout:     r.policy.BreakerOpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < r.policy.BreakerMinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= r.policy.BreakerFailureRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !classify(err).CountsAsFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
		},
	}

	breaker := gobreaker.NewCircuitBreaker[any](settings)
	r.breakers[operation] = breaker
	return breaker
}

// BreakerOpen reports whether err comes from a breaker refusing the call
// rather than from the call itself.
func BreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func neverRetry(error) Classification {
	return Classification{CountsAsFailure: true}
}
