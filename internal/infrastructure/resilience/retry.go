package resilience

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/formaudit/backend/internal/domain"
)

// Default backoff settings
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultMultiplier = 2.0
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
	Multiplier float64       `mapstructure:"multiplier"`
}

// DefaultPolicy returns the stock backoff policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
		MaxDelay:   DefaultMaxDelay,
		Multiplier: DefaultMultiplier,
	}
}

// Delay returns the wait after the given 0-indexed failed attempt:
// min(BaseDelay * Multiplier^attempt, MaxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if d >= float64(p.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Retrier runs operations under a Policy. It holds no mutable state, so
// concurrent calls are independent.
type Retrier struct {
	policy Policy
	logger *zap.Logger
}

// NewRetrier creates a retrier, replacing invalid policy values with defaults.
func NewRetrier(policy Policy, logger *zap.Logger) *Retrier {
	def := DefaultPolicy()
	if policy.MaxRetries < 0 {
		policy.MaxRetries = def.MaxRetries
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = def.BaseDelay
	}
	if policy.MaxDelay < policy.BaseDelay {
		policy.MaxDelay = max(def.MaxDelay, policy.BaseDelay)
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = def.Multiplier
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Retrier{policy: policy, logger: logger}
}

// Policy returns the effective policy.
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do attempts fn up to MaxRetries+1 times and returns the first success.
// After the last failure it returns a *domain.RetryExhaustedError carrying
// that failure. If ctx ends while waiting, ctx.Err() is returned instead.
func Do[T any](ctx context.Context, r *Retrier, operation string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	attempts := r.policy.MaxRetries + 1

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				r.logger.Debug("operation succeeded after retry",
					zap.String("operation", operation),
					zap.Int("attempt", attempt+1),
				)
			}
			return result, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		delay := r.policy.Delay(attempt)
		r.logger.Debug("operation failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	r.logger.Warn("operation exhausted retries",
		zap.String("operation", operation),
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)
	return zero, &domain.RetryExhaustedError{
		Operation: operation,
		Attempts:  attempts,
		Cause:     lastErr,
	}
}

// Run is Do for operations without a result.
func (r *Retrier) Run(ctx context.Context, operation string, fn func(context.Context) error) error {
	_, err := Do(ctx, r, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
