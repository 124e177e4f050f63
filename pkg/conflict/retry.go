// Package conflict retries operations that lost an optimistic-concurrency race.
package conflict

import (
	"context"
	"time"

	retry "github.com/sethvargo/go-retry"

	"github.com/angelmondragon/motorshop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/motorshop-backend/pkg/errors"
)

const (
	defaultAttempts  = 3
	defaultBaseDelay = 25 * time.Millisecond
)

// Policy bounds how often and how fast a conflicting call is retried.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
}

// PolicyFromConfig reads the retry group of the service config.
func PolicyFromConfig(cfg config.RetryConfig) Policy {
	return Policy{Attempts: cfg.ConflictAttempts, BaseDelay: cfg.ConflictBaseDelay}
}

func (p Policy) backoff() retry.Backoff {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	base := p.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	b := retry.NewExponential(base)
	b = retry.WithJitterPercent(20, b)
	return retry.WithMaxRetries(uint64(attempts), b)
}

// Retry runs fn and re-runs it while it fails with a retryable conflict. Any
// other error is returned immediately. When attempts run out the last
// conflict is returned unchanged.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	return retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && pkgerrors.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Value is Retry for calls that produce a result.
func Value[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Retry(ctx, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
