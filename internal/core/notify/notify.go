// Package notify provides a small channel-based broadcaster used to
// publish state changes from owned state to any number of observers.
package notify

import (
	"log/slog"
	"sync"
)

// DefaultBufferSize is the default channel buffer size for subscribers.
const DefaultBufferSize = 32

// Broadcaster fans out values of type E to subscribers.
// Delivery is non-blocking: a full subscriber misses the value.
type Broadcaster[E any] struct {
	name        string
	bufferSize  int
	mu          sync.RWMutex
	subscribers []chan E
	closed      bool
}

// NewBroadcaster creates a broadcaster. A non-positive bufferSize uses DefaultBufferSize.
func NewBroadcaster[E any](name string, bufferSize int) *Broadcaster[E] {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Broadcaster[E]{name: name, bufferSize: bufferSize}
}

// Publish sends e to every subscriber without blocking.
func (b *Broadcaster[E]) Publish(e E) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
			slog.Debug("notification dropped: subscriber channel full", "broadcaster", b.name)
		}
	}
}

// Subscribe returns a channel receiving every published value.
// The channel is closed by Unsubscribe or Close.
func (b *Broadcaster[E]) Subscribe() <-chan E {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan E, b.bufferSize)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Unsubscribe removes and closes a subscription. Unknown channels are ignored.
func (b *Broadcaster[E]) Unsubscribe(sub <-chan E) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, ch := range b.subscribers {
		if ch == sub {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Close closes all subscriptions. Safe to call more than once.
func (b *Broadcaster[E]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
