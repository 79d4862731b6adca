package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/annotator/internal/core/domain"
	"github.com/vietddude/annotator/internal/infra/storage"
)

type MemoryStorage struct {
	errors    []*domain.SystemError
	snapshots map[string]*storage.Snapshot
	mu        sync.RWMutex
	now       func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		snapshots: make(map[string]*storage.Snapshot),
		now:       time.Now,
	}
}

// -----------------------------------------------------------------------------
// Error Log Repository
// -----------------------------------------------------------------------------

type ErrorLogRepo struct {
	store *MemoryStorage
}

func NewErrorLogRepo(store *MemoryStorage) *ErrorLogRepo {
	return &ErrorLogRepo{store: store}
}

func (r *ErrorLogRepo) Save(ctx context.Context, e *domain.SystemError) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *e
	r.store.errors = append(r.store.errors, &cp)
	return nil
}

func (r *ErrorLogRepo) Recent(ctx context.Context, limit int) ([]*domain.SystemError, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.SystemError, len(r.store.errors))
	copy(out, r.store.errors)
	// Stable keeps insertion order for equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ErrorLogRepo) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.errors), nil
}

func (r *ErrorLogRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	kept := r.store.errors[:0]
	var deleted int64
	for _, e := range r.store.errors {
		if e.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	r.store.errors = kept
	return deleted, nil
}

// -----------------------------------------------------------------------------
// Snapshot Cache
// -----------------------------------------------------------------------------

type SnapshotCache struct {
	store *MemoryStorage
}

func NewSnapshotCache(store *MemoryStorage) *SnapshotCache {
	return &SnapshotCache{store: store}
}

func (c *SnapshotCache) SaveSnapshot(ctx context.Context, name string, items json.RawMessage) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	data := make(json.RawMessage, len(items))
	copy(data, items)
	c.store.snapshots[name] = &storage.Snapshot{
		Domain:  name,
		Items:   data,
		SavedAt: c.store.now(),
	}
	return nil
}

func (c *SnapshotCache) LoadSnapshot(ctx context.Context, name string) (*storage.Snapshot, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	s, ok := c.store.snapshots[name]
	if !ok {
		return nil, storage.ErrSnapshotNotFound
	}
	cp := *s
	return &cp, nil
}
