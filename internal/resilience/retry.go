// Package resilience guards calls to language-model providers with retries,
// per-provider circuit breakers and a per-run call budget.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls retries with exponential backoff. The delay before retry n
// (0-based) is Backoff * 2^n, capped at MaxBackoff, with optional jitter.
type Policy struct {
	// Retries is the number of retries after the first attempt.
	Retries int

	// Backoff is the base delay. Default: 2s.
	Backoff time.Duration

	// MaxBackoff caps a single delay. Default: 30s.
	MaxBackoff time.Duration

	// Jitter is a fraction of the delay applied randomly in both directions.
	Jitter float64

	// Retryable decides whether an error is retried. Default: IsTransient.
	Retryable func(err error) bool

	// OnRetry is called before each sleep.
	OnRetry func(attempt int, err error)
}

// PolicyFromSettings builds a Policy from the model retry settings.
func PolicyFromSettings(maxRetries int, backoffSecs float64) Policy {
	p := Policy{Retries: max(0, maxRetries)}
	if backoffSecs > 0 {
		p.Backoff = time.Duration(backoffSecs * float64(time.Second))
	}
	return p.withDefaults()
}

func (p Policy) withDefaults() Policy {
	if p.Retries < 0 {
		p.Retries = 0
	}
	if p.Backoff <= 0 {
		p.Backoff = 2 * time.Second
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 30 * time.Second
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Retryable == nil {
		p.Retryable = IsTransient
	}
	return p
}

// Delay returns the wait before retry attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	d := float64(p.Backoff) * math.Pow(2, float64(attempt))
	d = math.Min(d, float64(p.MaxBackoff))
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	return time.Duration(math.Max(0, d))
}

// Call runs fn, retrying retryable errors until the policy is exhausted or
// ctx is done. The last error is returned unchanged.
func Call[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	for attempt := 0; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !p.Retryable(err) || attempt >= p.Retries {
			return zero, err
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}
	}
}

// Run is Call for functions without a result.
func Run(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := Call(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// LogRetry returns an OnRetry callback that logs each retry.
func LogRetry(provider, model string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", provider),
			zap.String("model", model),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
