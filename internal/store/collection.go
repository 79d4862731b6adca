// Package store holds the feature stores. Each store exclusively owns the
// state of one data domain and is the only writer of that state.
package store

import (
	"sync"
	"time"

	"github.com/vietddude/annotator/internal/core/notify"
)

// EventKind describes what changed in a collection.
type EventKind string

const (
	EventLoading  EventKind = "loading"
	EventLoaded   EventKind = "loaded"
	EventFailed   EventKind = "failed"
	EventChanged  EventKind = "changed"
	EventHydrated EventKind = "hydrated"
	EventCleared  EventKind = "cleared"
)

// Event is published on every state change of a collection.
type Event struct {
	Store      string
	Kind       EventKind
	Count      int
	Generation uint64
	Error      string
}

// Collection is the owned state of one store: ordered items plus loading
// and error bookkeeping. Results of loads started before the last Reset
// are dropped by comparing generations.
type Collection[T any] struct {
	name  string
	getID func(T) string

	mu          sync.RWMutex
	items       []T
	loading     bool
	errMsg      string
	stale       bool
	lastUpdated time.Time
	generation  uint64

	events *notify.Broadcaster[Event]
	now    func() time.Time
}

// NewCollection creates an empty collection.
func NewCollection[T any](name string, getID func(T) string) *Collection[T] {
	return &Collection[T]{
		name:   name,
		getID:  getID,
		events: notify.NewBroadcaster[Event](name, 0),
		now:    time.Now,
	}
}

// Items returns a copy of the current items.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Find returns the item with id.
func (c *Collection[T]) Find(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Collection[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Error returns the message of the last failed load, or "".
func (c *Collection[T]) Error() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.errMsg
}

// Stale reports whether the items came from a cached snapshot.
func (c *Collection[T]) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stale
}

func (c *Collection[T]) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdated
}

func (c *Collection[T]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Subscribe returns a channel of change events.
func (c *Collection[T]) Subscribe() <-chan Event {
	return c.events.Subscribe()
}

func (c *Collection[T]) Unsubscribe(ch <-chan Event) {
	c.events.Unsubscribe(ch)
}

// begin records the start of a load and returns its generation.
// A silent load leaves the loading flag untouched.
func (c *Collection[T]) begin(silent bool) uint64 {
	c.mu.Lock()
	gen := c.generation
	if !silent {
		c.loading = true
	}
	c.mu.Unlock()

	if !silent {
		c.publish(EventLoading, gen, "")
	}
	return gen
}

// succeed replaces the items if gen is still current.
func (c *Collection[T]) succeed(gen uint64, items []T) bool {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return false
	}
	c.items = items
	c.loading = false
	c.errMsg = ""
	c.stale = false
	c.lastUpdated = c.now()
	c.mu.Unlock()

	c.publish(EventLoaded, gen, "")
	return true
}

// fail records a load error if gen is still current.
func (c *Collection[T]) fail(gen uint64, msg string) bool {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return false
	}
	c.loading = false
	c.errMsg = msg
	c.mu.Unlock()

	c.publish(EventFailed, gen, msg)
	return true
}

// hydrate fills an empty collection with stale items from a snapshot.
func (c *Collection[T]) hydrate(gen uint64, items []T, savedAt time.Time) bool {
	c.mu.Lock()
	if gen != c.generation || len(c.items) > 0 {
		c.mu.Unlock()
		return false
	}
	c.items = items
	c.stale = true
	c.lastUpdated = savedAt
	c.mu.Unlock()

	c.publish(EventHydrated, gen, "")
	return true
}

// upsert replaces the item with the same id or appends it.
func (c *Collection[T]) upsert(item T) {
	c.mu.Lock()
	if i := c.indexLocked(c.getID(item)); i >= 0 {
		c.items[i] = item
	} else {
		c.items = append(c.items, item)
	}
	gen := c.generation
	c.mu.Unlock()

	c.publish(EventChanged, gen, "")
}

// remove deletes the item with id and reports whether it existed.
func (c *Collection[T]) remove(id string) bool {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	gen := c.generation
	c.mu.Unlock()

	c.publish(EventChanged, gen, "")
	return true
}

// swap replaces the item with oldID by item, keeping its position. When
// oldID is gone, usually because a fetch replaced the list, item is
// upserted by its own id. It does nothing when the collection was reset
// after gen.
func (c *Collection[T]) swap(gen uint64, oldID string, item T) bool {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return false
	}
	newID := c.getID(item)
	oldIdx, newIdx := c.indexLocked(oldID), c.indexLocked(newID)
	switch {
	case oldIdx >= 0:
		c.items[oldIdx] = item
		if newIdx >= 0 && newIdx != oldIdx {
			c.items = append(c.items[:newIdx:newIdx], c.items[newIdx+1:]...)
		}
	case newIdx >= 0:
		c.items[newIdx] = item
	default:
		c.items = append(c.items, item)
	}
	c.mu.Unlock()

	c.publish(EventChanged, gen, "")
	return true
}

// Reset drops all state and invalidates loads in flight.
func (c *Collection[T]) Reset() {
	c.mu.Lock()
	c.items = nil
	c.loading = false
	c.errMsg = ""
	c.stale = false
	c.lastUpdated = time.Time{}
	c.generation++
	gen := c.generation
	c.mu.Unlock()

	c.publish(EventCleared, gen, "")
}

func (c *Collection[T]) indexLocked(id string) int {
	for i, item := range c.items {
		if c.getID(item) == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) publish(kind EventKind, gen uint64, msg string) {
	c.events.Publish(Event{
		Store:      c.name,
		Kind:       kind,
		Count:      c.Len(),
		Generation: gen,
		Error:      msg,
	})
}
