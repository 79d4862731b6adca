package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/vietddude/annotator/internal/infra/storage"
	"github.com/vietddude/annotator/internal/metrics"
	"github.com/vietddude/annotator/internal/resilience"
)

var (
	// ErrNotFound is returned when a mutation targets an unknown entity.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput is returned before any backend call for bad input.
	ErrInvalidInput = errors.New("invalid input")
)

const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 30 * time.Second
)

// Options configures how a store reaches the backend.
type Options struct {
	// Breaker guards every backend call of the store. Nil creates a
	// dedicated breaker with the default threshold and reset timeout.
	Breaker *resilience.CircuitBreaker

	// FetchPolicy wraps list queries. Zero value uses GraphQLPolicy.
	FetchPolicy resilience.RetryPolicy

	// MutationPolicy wraps mutations. Zero value uses StorePolicy.
	MutationPolicy resilience.RetryPolicy

	// Cache is optional. When set, successful lists are snapshotted and
	// an empty store falls back to the snapshot after a failed fetch.
	Cache storage.SnapshotCache

	SuccessRetention  time.Duration
	RollbackRetention time.Duration
}

func (o Options) withDefaults(name string) Options {
	if o.Breaker == nil {
		o.Breaker = resilience.NewCircuitBreaker(name, DefaultFailureThreshold, DefaultResetTimeout)
	}
	if o.FetchPolicy.MaxAttempts == 0 {
		o.FetchPolicy = resilience.GraphQLPolicy
	}
	if o.MutationPolicy.MaxAttempts == 0 {
		o.MutationPolicy = resilience.StorePolicy
	}
	return o
}

// call runs fn under the breaker, retrying according to policy. Each
// attempt passes through the breaker, so an open circuit ends the retries.
func call[R any](
	ctx context.Context,
	cb *resilience.CircuitBreaker,
	policy resilience.RetryPolicy,
	fn func(ctx context.Context) (R, error),
) (R, error) {
	return resilience.RetryWithBackoff(ctx, func(ctx context.Context) (R, error) {
		return resilience.Call(ctx, cb, fn)
	}, policy)
}

// load fetches a full list into c. A silent load does not toggle the
// loading flag. The fetch error is returned as is.
func load[T any](
	ctx context.Context,
	c *Collection[T],
	opts Options,
	silent bool,
	list func(ctx context.Context) ([]T, error),
) error {
	gen := c.begin(silent)
	start := time.Now()

	items, err := call(ctx, opts.Breaker, opts.FetchPolicy, list)
	metrics.StoreFetchLatency.WithLabelValues(c.name).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.StoreFetches.WithLabelValues(c.name, "error").Inc()
		slog.Warn("Store fetch failed", "store", c.name, "error", err)
		if c.fail(gen, err.Error()) {
			hydrateFromSnapshot(ctx, c, opts.Cache, gen)
		}
		return err
	}

	metrics.StoreFetches.WithLabelValues(c.name, "success").Inc()
	if items == nil {
		items = []T{}
	}
	if !c.succeed(gen, items) {
		slog.Debug("Discarding fetch result after cleanup", "store", c.name)
		return nil
	}
	saveSnapshot(ctx, c.name, opts.Cache, items)
	return nil
}

func saveSnapshot[T any](ctx context.Context, name string, cache storage.SnapshotCache, items []T) {
	if cache == nil {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		slog.Warn("Failed to encode snapshot", "store", name, "error", err)
		return
	}
	if err := cache.SaveSnapshot(ctx, name, data); err != nil {
		slog.Warn("Failed to save snapshot", "store", name, "error", err)
	}
}

func hydrateFromSnapshot[T any](ctx context.Context, c *Collection[T], cache storage.SnapshotCache, gen uint64) {
	if cache == nil || c.Len() > 0 {
		return
	}
	snap, err := cache.LoadSnapshot(ctx, c.name)
	if err != nil {
		if !errors.Is(err, storage.ErrSnapshotNotFound) {
			slog.Warn("Failed to load snapshot", "store", c.name, "error", err)
		}
		return
	}
	var items []T
	if err := json.Unmarshal(snap.Items, &items); err != nil {
		slog.Warn("Discarding corrupt snapshot", "store", c.name, "error", err)
		return
	}
	if c.hydrate(gen, items, snap.SavedAt) {
		slog.Info("Serving cached snapshot",
			"store", c.name, "items", len(items), "saved_at", snap.SavedAt)
	}
}
