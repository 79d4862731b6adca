package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/annotator/internal/core/domain"
	"github.com/vietddude/annotator/internal/infra/storage"
)

func TestErrorLogRepo_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewErrorLogRepo(NewMemoryStorage())

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, msg := range []string{"a", "b", "c"} {
		err := repo.Save(ctx, &domain.SystemError{
			ID:        msg,
			Message:   msg,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := repo.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 || got[0].Message != "c" || got[1].Message != "b" {
		t.Errorf("unexpected order: %+v", got)
	}

	n, _ := repo.Count(ctx)
	if n != 3 {
		t.Errorf("expected count 3, got %d", n)
	}

	deleted, _ := repo.DeleteBefore(ctx, base.Add(90*time.Second))
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}
	n, _ = repo.Count(ctx)
	if n != 1 {
		t.Errorf("expected count 1 after prune, got %d", n)
	}
}

func TestSnapshotCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cache := NewSnapshotCache(NewMemoryStorage())

	if _, err := cache.LoadSnapshot(ctx, "projects"); !errors.Is(err, storage.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}

	items := json.RawMessage(`[{"id":"p1"}]`)
	if err := cache.SaveSnapshot(ctx, "projects", items); err != nil {
		t.Fatalf("save: %v", err)
	}
	items[2] = 'X'

	snap, err := cache.LoadSnapshot(ctx, "projects")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(snap.Items) != `[{"id":"p1"}]` {
		t.Errorf("expected stored copy, got %s", snap.Items)
	}
	if snap.SavedAt.IsZero() {
		t.Error("expected saved time")
	}
}
