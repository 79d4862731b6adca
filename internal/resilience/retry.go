package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/annotator/internal/metrics"
)

// RetryPolicy defines retry behavior for one call.
type RetryPolicy struct {
	Name           string
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	BackoffFactor  float64
	RetryPredicate func(err error) bool

	// Jitter overrides DefaultJitter when set.
	Jitter func() float64
}

// GraphQLPolicy retries transport failures and server errors (status >= 500).
var GraphQLPolicy = RetryPolicy{
	Name:           "graphql",
	MaxAttempts:    3,
	InitialDelay:   1 * time.Second,
	MaxDelay:       10 * time.Second,
	BackoffFactor:  2.0,
	RetryPredicate: IsRetryableGraphQLError,
}

// StorePolicy retries only clear network-layer failures.
var StorePolicy = RetryPolicy{
	Name:           "store",
	MaxAttempts:    2,
	InitialDelay:   500 * time.Millisecond,
	MaxDelay:       5 * time.Second,
	BackoffFactor:  2.0,
	RetryPredicate: IsNetworkError,
}

// Backoff returns the delay routine described by the policy.
func (p RetryPolicy) Backoff() Backoff {
	return Backoff{
		InitialDelay: p.InitialDelay,
		MaxDelay:     p.MaxDelay,
		Factor:       p.BackoffFactor,
		Jitter:       p.Jitter,
	}
}

// WithPredicate returns a copy of the policy using pred.
func (p RetryPolicy) WithPredicate(pred func(error) bool) RetryPolicy {
	p.RetryPredicate = pred
	return p
}

// RetryWithBackoff runs op until it succeeds, the predicate rejects the
// failure, or MaxAttempts is reached. The last failure is returned as is.
func RetryWithBackoff[T any](
	ctx context.Context,
	op func(ctx context.Context) (T, error),
	policy RetryPolicy,
) (T, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := policy.Backoff()

	for attempt := 1; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		if attempt >= maxAttempts {
			slog.Warn("Operation failed, retries exhausted",
				"policy", policy.Name, "attempt", attempt, "max_attempts", maxAttempts, "error", err)
			return result, err
		}
		if policy.RetryPredicate == nil || !policy.RetryPredicate(err) {
			slog.Warn("Operation failed, not retryable",
				"policy", policy.Name, "attempt", attempt, "max_attempts", maxAttempts, "error", err)
			return result, err
		}

		delay := backoff.Delay(attempt)
		slog.Warn("Operation failed, retrying",
			"policy", policy.Name,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", err,
		)
		metrics.RetryAttempts.WithLabelValues(policy.Name).Inc()

		if werr := Wait(ctx, delay); werr != nil {
			var zero T
			return zero, werr
		}
	}
}

// Retry is RetryWithBackoff for operations without a result.
func Retry(ctx context.Context, op func(ctx context.Context) error, policy RetryPolicy) error {
	_, err := RetryWithBackoff(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, policy)
	return err
}
