// Package errorlog is the global error store: transient notifications for
// the user plus a persisted system error log.
package errorlog

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/annotator/internal/core/domain"
	"github.com/vietddude/annotator/internal/core/notify"
	"github.com/vietddude/annotator/internal/infra/storage"
	"github.com/vietddude/annotator/internal/metrics"
	"github.com/vietddude/annotator/internal/resilience"
)

const (
	DefaultMaxNotifications = 10
	DefaultDismissAfter     = 5 * time.Second
	DefaultQueueSize        = 256
)

// Notification is a user-facing error message. Critical notifications
// have no expiry and stay until dismissed.
type Notification struct {
	ID        string     `json:"id"`
	Message   string     `json:"message"`
	Source    string     `json:"source"`
	Critical  bool       `json:"critical"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// EventKind describes a change of the notification list.
type EventKind string

const (
	EventAdded     EventKind = "added"
	EventDismissed EventKind = "dismissed"
	EventCleared   EventKind = "cleared"
)

type Event struct {
	Kind         EventKind
	Notification Notification
}

type Config struct {
	MaxNotifications int
	DismissAfter     time.Duration
	QueueSize        int
}

type entry struct {
	n     Notification
	timer *time.Timer
}

// Store collects system errors. Persistence is optional and happens in
// the background once Start is called.
type Store struct {
	cfg  Config
	repo storage.ErrorLogRepository

	mu            sync.Mutex
	notifications []*entry

	queue     chan *domain.SystemError
	stop      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup

	events *notify.Broadcaster[Event]
	now    func() time.Time
}

// New creates a store. repo may be nil to keep errors in memory only.
func New(cfg Config, repo storage.ErrorLogRepository) *Store {
	if cfg.MaxNotifications <= 0 {
		cfg.MaxNotifications = DefaultMaxNotifications
	}
	if cfg.DismissAfter <= 0 {
		cfg.DismissAfter = DefaultDismissAfter
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	return &Store{
		cfg:    cfg,
		repo:   repo,
		queue:  make(chan *domain.SystemError, cfg.QueueSize),
		stop:   make(chan struct{}),
		events: notify.NewBroadcaster[Event]("errorlog", 0),
		now:    time.Now,
	}
}

// AddSystemError records a non-critical error and returns its id.
func (s *Store) AddSystemError(message, source string) string {
	return s.add(message, source, false)
}

// AddCriticalError records an error that stays visible until dismissed.
func (s *Store) AddCriticalError(message, source string) string {
	return s.add(message, source, true)
}

func (s *Store) add(message, source string, critical bool) string {
	now := s.now()
	n := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Source:    source,
		Critical:  critical,
		CreatedAt: now,
	}
	if !critical {
		expires := now.Add(s.cfg.DismissAfter)
		n.ExpiresAt = &expires
	}

	e := &entry{n: n}

	s.mu.Lock()
	s.notifications = append(s.notifications, e)
	var dropped []*entry
	if over := len(s.notifications) - s.cfg.MaxNotifications; over > 0 {
		dropped = append(dropped, s.notifications[:over]...)
		s.notifications = append([]*entry(nil), s.notifications[over:]...)
	}
	if !critical {
		id := n.ID
		e.timer = time.AfterFunc(s.cfg.DismissAfter, func() { s.Dismiss(id) })
	}
	s.mu.Unlock()

	for _, d := range dropped {
		if d.timer != nil {
			d.timer.Stop()
		}
	}

	metrics.SystemErrors.WithLabelValues(source, strconv.FormatBool(critical)).Inc()
	if critical {
		slog.Error("Critical system error", "source", source, "message", message)
	} else {
		slog.Warn("System error", "source", source, "message", message)
	}

	s.enqueue(&domain.SystemError{
		ID:        n.ID,
		Message:   message,
		Source:    source,
		Critical:  critical,
		CreatedAt: now,
	})
	s.events.Publish(Event{Kind: EventAdded, Notification: n})
	return n.ID
}

// Notifications returns the visible notifications, oldest first.
func (s *Store) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Notification, len(s.notifications))
	for i, e := range s.notifications {
		out[i] = e.n
	}
	return out
}

// Dismiss removes one notification.
func (s *Store) Dismiss(id string) bool {
	s.mu.Lock()
	var removed *entry
	for i, e := range s.notifications {
		if e.n.ID == id {
			removed = e
			s.notifications = append(s.notifications[:i:i], s.notifications[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if removed == nil {
		return false
	}
	if removed.timer != nil {
		removed.timer.Stop()
	}
	s.events.Publish(Event{Kind: EventDismissed, Notification: removed.n})
	return true
}

// Clear removes all notifications. The persisted log is kept.
func (s *Store) Clear() {
	s.mu.Lock()
	cleared := s.notifications
	s.notifications = nil
	s.mu.Unlock()

	for _, e := range cleared {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	s.events.Publish(Event{Kind: EventCleared})
}

func (s *Store) Subscribe() <-chan Event {
	return s.events.Subscribe()
}

func (s *Store) Unsubscribe(ch <-chan Event) {
	s.events.Unsubscribe(ch)
}

// Recent reads back the persisted log, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*domain.SystemError, error) {
	if s.repo == nil {
		return nil, nil
	}
	return s.repo.Recent(ctx, limit)
}

func (s *Store) enqueue(e *domain.SystemError) {
	if s.repo == nil {
		return
	}
	select {
	case s.queue <- e:
	default:
		slog.Warn("Error log queue full, dropping entry", "source", e.Source)
	}
}

// Start launches the background writer. It stops when ctx is done or
// Close is called, flushing queued entries first.
func (s *Store) Start(ctx context.Context) {
	if s.repo == nil {
		return
	}
	s.startOnce.Do(func() {
		s.wg.Add(1)
		go s.writeLoop(ctx)
	})
}

// Close stops the writer and all dismissal timers.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()

		s.mu.Lock()
		for _, e := range s.notifications {
			if e.timer != nil {
				e.timer.Stop()
			}
		}
		s.mu.Unlock()
		s.events.Close()
	})
}

func (s *Store) writeLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			s.flush()
			return
		case <-s.stop:
			s.flush()
			return
		case e := <-s.queue:
			s.persist(ctx, e)
		}
	}
}

// flush writes whatever is still queued with a short deadline.
func (s *Store) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for {
		select {
		case e := <-s.queue:
			s.persist(ctx, e)
		default:
			return
		}
	}
}

func (s *Store) persist(ctx context.Context, e *domain.SystemError) {
	err := resilience.Retry(ctx, func(ctx context.Context) error {
		return s.repo.Save(ctx, e)
	}, resilience.StorePolicy)
	if err != nil {
		slog.Error("Failed to persist system error", "id", e.ID, "error", err)
	}
}
