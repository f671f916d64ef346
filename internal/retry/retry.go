// Package retry wraps idempotent reads in bounded exponential backoff with jitter.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config bounds a retry loop.
type Config struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultConfig is used for exchange-rate and tax lookups.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

func (c Config) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialInterval
	b.MaxInterval = c.MaxInterval
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0

	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Do runs op until it succeeds, returns a Permanent error, or attempts run out.
func Do(ctx context.Context, cfg Config, op func() error) error {
	return backoff.Retry(op, cfg.policy(ctx))
}

// Value is Do for operations that produce a result.
func Value[T any](ctx context.Context, cfg Config, op func() (T, error)) (T, error) {
	return backoff.RetryWithData(op, cfg.policy(ctx))
}

// Permanent marks err as not worth retrying. The original error is returned to the caller.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
