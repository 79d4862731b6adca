package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/annotator/internal/infra/storage"
)

// DefaultSnapshotTTL bounds how long a stale list may be served.
const DefaultSnapshotTTL = 24 * time.Hour

// Client wraps Redis operations for the list snapshot cache.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// Config holds Redis connection configuration.
type Config struct {
	URL         string        `yaml:"url"`
	Password    string        `yaml:"password"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	ttl := cfg.SnapshotTTL
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	c := &Client{rdb: redis.NewClient(opts), ttl: ttl, now: time.Now}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return c, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func snapshotKey(name string) string {
	return fmt.Sprintf("annotator:snapshot:%s", name)
}

// SaveSnapshot stores the list for a domain, replacing any previous one.
func (c *Client) SaveSnapshot(ctx context.Context, name string, items json.RawMessage) error {
	payload, err := encodeSnapshot(name, items, c.now())
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, snapshotKey(name), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot %s: %w", name, err)
	}
	return nil
}

// LoadSnapshot returns the cached list for a domain.
func (c *Client) LoadSnapshot(ctx context.Context, name string) (*storage.Snapshot, error) {
	val, err := c.rdb.Get(ctx, snapshotKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", name, err)
	}
	return decodeSnapshot(val)
}

func encodeSnapshot(name string, items json.RawMessage, at time.Time) ([]byte, error) {
	payload, err := json.Marshal(storage.Snapshot{Domain: name, Items: items, SavedAt: at})
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot %s: %w", name, err)
	}
	return payload, nil
}

func decodeSnapshot(val []byte) (*storage.Snapshot, error) {
	var snap storage.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot payload: %w", err)
	}
	return &snap, nil
}
