package worker

import (
	"context"
	"testing"
	"time"

	"github.com/vietddude/annotator/internal/core/domain"
	"github.com/vietddude/annotator/internal/infra/storage/memory"
)

func TestPruner_DeletesExpiredErrors(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewErrorLogRepo(memory.NewMemoryStorage())
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_ = repo.Save(ctx, &domain.SystemError{ID: "old", CreatedAt: now.Add(-48 * time.Hour)})
	_ = repo.Save(ctx, &domain.SystemError{ID: "new", CreatedAt: now.Add(-time.Hour)})

	p := NewPruner(24*time.Hour, repo)
	p.now = func() time.Time { return now }
	p.prune(ctx)

	entries, _ := repo.Recent(ctx, 10)
	if len(entries) != 1 || entries[0].ID != "new" {
		t.Errorf("expected only recent entry kept, got %+v", entries)
	}
}

func TestPruner_DisabledReturnsImmediately(t *testing.T) {
	done := make(chan struct{})
	go func() {
		NewPruner(0, nil).Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected disabled pruner to return")
	}
}
