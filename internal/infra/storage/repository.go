package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/vietddude/annotator/internal/core/domain"
)

var (
	// ErrSnapshotNotFound is returned when no snapshot is cached for a domain
	ErrSnapshotNotFound = errors.New("snapshot not found")
)

// ErrorLogRepository persists the global system error log
type ErrorLogRepository interface {
	// Save appends an error to the log
	Save(ctx context.Context, e *domain.SystemError) error

	// Recent returns up to limit entries, newest first
	Recent(ctx context.Context, limit int) ([]*domain.SystemError, error)

	// Count returns the number of logged errors
	Count(ctx context.Context) (int, error)

	// DeleteBefore prunes entries older than the cutoff
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Snapshot is the last successfully fetched list of one data domain.
type Snapshot struct {
	Domain  string          `json:"domain"`
	Items   json.RawMessage `json:"items"`
	SavedAt time.Time       `json:"saved_at"`
}

// SnapshotCache keeps the last good list per domain so stores can serve
// stale data while the backend is unreachable.
type SnapshotCache interface {
	SaveSnapshot(ctx context.Context, domain string, items json.RawMessage) error

	// LoadSnapshot returns ErrSnapshotNotFound when nothing is cached
	LoadSnapshot(ctx context.Context, domain string) (*Snapshot, error)
}
