package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/annotator/internal/core/domain"
)

// ErrorLogRepo implements storage.ErrorLogRepository using PostgreSQL.
type ErrorLogRepo struct {
	db *DB
}

// NewErrorLogRepo creates a new PostgreSQL error log repository.
func NewErrorLogRepo(db *DB) *ErrorLogRepo {
	return &ErrorLogRepo{db: db}
}

// Save inserts an error. Saving the same id twice is a no-op.
func (r *ErrorLogRepo) Save(ctx context.Context, e *domain.SystemError) error {
	query := `
		INSERT INTO system_errors (id, message, source, critical, created_at)
		VALUES (:id, :message, :source, :critical, :created_at)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("failed to save system error: %w", err)
	}
	return nil
}

// Recent returns the newest errors.
func (r *ErrorLogRepo) Recent(ctx context.Context, limit int) ([]*domain.SystemError, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, message, source, critical, created_at
		FROM system_errors
		ORDER BY created_at DESC
		LIMIT $1
	`
	var out []*domain.SystemError
	if err := r.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list system errors: %w", err)
	}
	return out, nil
}

// Count returns the number of logged errors.
func (r *ErrorLogRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM system_errors`); err != nil {
		return 0, fmt.Errorf("failed to count system errors: %w", err)
	}
	return n, nil
}

// DeleteBefore prunes errors older than cutoff.
func (r *ErrorLogRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM system_errors WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune system errors: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}
