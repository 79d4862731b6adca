package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/annotator/internal/infra/storage"
)

// Pruner deletes old system errors based on retention policy.
type Pruner struct {
	retention time.Duration
	repo      storage.ErrorLogRepository
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, repo storage.ErrorLogRepository) *Pruner {
	return &Pruner{
		retention: retention,
		repo:      repo,
		now:       time.Now,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 || p.repo == nil {
		return // Retention disabled
	}

	// Check at 10% of the retention period, between 1 minute and 1 hour
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := p.now().Add(-p.retention)

	deleted, err := p.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to prune system errors", "error", err)
		return
	}
	if deleted > 0 {
		slog.Info("Pruned system errors", "deleted", deleted, "cutoff", cutoff)
	}
}
