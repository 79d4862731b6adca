// Package optimistic applies speculative mutations to owned state before
// the backend confirms them, and rolls them back when it does not.
package optimistic

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/annotator/internal/metrics"
)

// Operation is the kind of mutation being applied.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Status is the lifecycle state of a tracked update.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusRolledBack Status = "rolled_back"
)

const (
	// DefaultSuccessRetention is how long confirmed updates stay inspectable.
	DefaultSuccessRetention = 2 * time.Second

	// DefaultRollbackRetention is how long rolled back updates stay inspectable.
	DefaultRollbackRetention = 1 * time.Second
)

// Record tracks one optimistic update.
type Record[T any] struct {
	ID        string
	Seq       uint64
	Status    Status
	Operation Operation
	Data      T
	Original  *T
	Err       error
	CreatedAt time.Time
}

// Config wires a Manager to the state it mutates.
type Config[T any] struct {
	// Name labels logs and metrics, e.g. "project".
	Name string

	GetID func(entity T) string

	// Apply makes the speculative change visible.
	Apply func(op Operation, entity T)

	// Rollback reverts an applied change. A nil original means the entity
	// did not exist before and must be removed.
	Rollback func(op Operation, data T, original *T)

	SuccessRetention  time.Duration
	RollbackRetention time.Duration
}

type entry[T any] struct {
	rec   Record[T]
	timer *time.Timer
}

// Manager tracks optimistic updates by entity id. A new update on an id
// replaces the tracking of the previous one.
type Manager[T any] struct {
	cfg Config[T]

	// stateMu orders Apply and Rollback callbacks. It is taken before mu.
	stateMu sync.Mutex

	mu      sync.Mutex
	updates map[string]*entry[T]
	seq     uint64
	now     func() time.Time
}

// NewManager creates a manager. Zero retentions fall back to the defaults.
func NewManager[T any](cfg Config[T]) *Manager[T] {
	if cfg.SuccessRetention == 0 {
		cfg.SuccessRetention = DefaultSuccessRetention
	}
	if cfg.RollbackRetention == 0 {
		cfg.RollbackRetention = DefaultRollbackRetention
	}
	return &Manager[T]{
		cfg:     cfg,
		updates: make(map[string]*entry[T]),
		now:     time.Now,
	}
}

// ApplyUpdate applies data to the live state and starts tracking it.
func (m *Manager[T]) ApplyUpdate(op Operation, data T, original *T) string {
	id, _ := m.apply(op, data, original)
	return id
}

// ConfirmUpdate marks the pending update for id as successful.
func (m *Manager[T]) ConfirmUpdate(id string) bool {
	return m.confirm(id, 0)
}

// FailUpdate marks the pending update for id as failed and rolls it back.
func (m *Manager[T]) FailUpdate(id string, err error) bool {
	return m.fail(id, 0, err)
}

// RollbackUpdate reverts the update for id if it has not already ended.
func (m *Manager[T]) RollbackUpdate(id string) bool {
	m.mu.Lock()
	e, ok := m.updates[id]
	if !ok || (e.rec.Status != StatusPending && e.rec.Status != StatusError) {
		m.mu.Unlock()
		return false
	}
	rollback := m.rollbackLocked(id, e)
	m.mu.Unlock()

	rollback()
	return true
}

// Get returns the tracked record for id.
func (m *Manager[T]) Get(id string) (Record[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.updates[id]
	if !ok {
		return Record[T]{}, false
	}
	return e.rec, true
}

// GetPendingUpdates returns pending records ordered by creation.
func (m *Manager[T]) GetPendingUpdates() []Record[T] {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pending []Record[T]
	for _, e := range m.updates {
		if e.rec.Status == StatusPending {
			pending = append(pending, e.rec)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Seq < pending[j].Seq
	})
	return pending
}

// HasPendingUpdates reports whether any update awaits confirmation.
func (m *Manager[T]) HasPendingUpdates() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.updates {
		if e.rec.Status == StatusPending {
			return true
		}
	}
	return false
}

// Len returns the number of tracked records, terminal ones included.
func (m *Manager[T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updates)
}

// Clear drops all tracking without touching state.
func (m *Manager[T]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.updates {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	m.updates = make(map[string]*entry[T])
}

func (m *Manager[T]) apply(op Operation, data T, original *T) (string, uint64) {
	id := m.cfg.GetID(data)

	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.cfg.Apply(op, data)

	rec := Record[T]{
		ID:        id,
		Status:    StatusPending,
		Operation: op,
		Data:      data,
		CreatedAt: m.now(),
	}
	if original != nil {
		o := *original
		rec.Original = &o
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	rec.Seq = m.seq
	if prev, ok := m.updates[id]; ok {
		if prev.timer != nil {
			prev.timer.Stop()
		}
		if prev.rec.Status == StatusPending {
			slog.Debug("Optimistic update superseded",
				"entity", m.cfg.Name, "id", id, "operation", string(prev.rec.Operation))
		}
	}
	m.updates[id] = &entry[T]{rec: rec}
	return id, rec.Seq
}

// confirm marks the record successful. seq 0 matches whichever record is current.
func (m *Manager[T]) confirm(id string, seq uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.updates[id]
	if !ok || e.rec.Status != StatusPending || (seq != 0 && e.rec.Seq != seq) {
		return false
	}
	e.rec.Status = StatusSuccess
	m.scheduleRemovalLocked(id, e, m.cfg.SuccessRetention)
	metrics.OptimisticUpdates.WithLabelValues(m.cfg.Name, string(StatusSuccess)).Inc()
	return true
}

func (m *Manager[T]) fail(id string, seq uint64, err error) bool {
	m.mu.Lock()
	e, ok := m.updates[id]
	if !ok || e.rec.Status != StatusPending || (seq != 0 && e.rec.Seq != seq) {
		m.mu.Unlock()
		if seq != 0 {
			slog.Warn("Optimistic update failed after being superseded",
				"entity", m.cfg.Name, "id", id, "error", err)
		}
		return false
	}
	e.rec.Status = StatusError
	e.rec.Err = err
	rollback := m.rollbackLocked(id, e)
	m.mu.Unlock()

	rollback()
	return true
}

// rollbackLocked marks e rolled back and returns the state reversal to
// run after the lock is released. The reversal is skipped when a newer
// update on id has been applied in the meantime.
func (m *Manager[T]) rollbackLocked(id string, e *entry[T]) func() {
	e.rec.Status = StatusRolledBack
	m.scheduleRemovalLocked(id, e, m.cfg.RollbackRetention)
	metrics.OptimisticUpdates.WithLabelValues(m.cfg.Name, string(StatusRolledBack)).Inc()

	op, data, original, cause := e.rec.Operation, e.rec.Data, e.rec.Original, e.rec.Err
	return func() {
		m.stateMu.Lock()
		defer m.stateMu.Unlock()

		m.mu.Lock()
		cur, ok := m.updates[id]
		superseded := ok && cur != e
		m.mu.Unlock()

		if superseded {
			slog.Warn("Optimistic rollback skipped, update superseded",
				"entity", m.cfg.Name, "id", id, "operation", string(op), "error", cause)
			return
		}
		m.cfg.Rollback(op, data, original)
		slog.Warn("Optimistic update rolled back",
			"entity", m.cfg.Name, "id", id, "operation", string(op), "error", cause)
	}
}

func (m *Manager[T]) scheduleRemovalLocked(id string, e *entry[T], after time.Duration) {
	if e.timer != nil {
		e.timer.Stop()
	}
	if after < 0 {
		delete(m.updates, id)
		return
	}
	e.timer = time.AfterFunc(after, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.updates[id]; ok && cur == e {
			delete(m.updates, id)
		}
	})
}

// WithOptimisticUpdate applies data, runs apiCall, and confirms or rolls
// back. On failure the API error is returned after state has been reverted.
// If a newer update on the same id superseded this one, its outcome no
// longer touches state.
func WithOptimisticUpdate[T, R any](
	ctx context.Context,
	m *Manager[T],
	op Operation,
	data T,
	apiCall func(ctx context.Context) (R, error),
	original *T,
) (R, error) {
	id, seq := m.apply(op, data, original)

	result, err := apiCall(ctx)
	if err != nil {
		m.fail(id, seq, err)
		return result, err
	}

	m.confirm(id, seq)
	return result, nil
}
