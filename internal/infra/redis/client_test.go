package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestSnapshotKey(t *testing.T) {
	if got := snapshotKey("tasks"); got != "annotator:snapshot:tasks" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestSnapshotEncoding(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	payload, err := encodeSnapshot("images", []byte(`[{"id":"i1"}]`), at)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	snap, err := decodeSnapshot(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Domain != "images" || string(snap.Items) != `[{"id":"i1"}]` || !snap.SavedAt.Equal(at) {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	if _, err := decodeSnapshot([]byte("not json")); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestPing_Unreachable(t *testing.T) {
	c := &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			DialTimeout: 50 * time.Millisecond,
			MaxRetries:  -1,
		}),
		ttl: DefaultSnapshotTTL,
		now: time.Now,
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Ping(ctx); err == nil {
		t.Fatal("expected ping to fail against a closed port")
	}
}

func TestNewClient_ConnectFailure(t *testing.T) {
	_, err := NewClient(Config{URL: "redis://127.0.0.1:1/0"})
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !strings.Contains(err.Error(), "failed to connect to redis") {
		t.Errorf("unexpected error %v", err)
	}
}
