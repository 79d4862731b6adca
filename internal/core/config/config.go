package config

import (
	"time"

	redisclient "github.com/vietddude/annotator/internal/infra/redis"
	"github.com/vietddude/annotator/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server        ServerConfig        `yaml:"server"`
	Backend       BackendConfig       `yaml:"backend"`
	Retry         RetryConfig         `yaml:"retry"`
	Breaker       BreakerConfig       `yaml:"breaker"`
	Health        HealthConfig        `yaml:"health"`
	Sync          SyncConfig          `yaml:"sync"`
	Optimistic    OptimisticConfig    `yaml:"optimistic"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Redis         redisclient.Config  `yaml:"redis"`
	Database      postgres.Config     `yaml:"database"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// BackendConfig points at the GraphQL API.
type BackendConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	Token    string        `yaml:"token"`
}

// PolicyConfig overrides the numbers of a named retry policy.
type PolicyConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

type RetryConfig struct {
	GraphQL PolicyConfig `yaml:"graphql"`
	Store   PolicyConfig `yaml:"store"`
}

type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"`
}

type HealthConfig struct {
	Interval     time.Duration `yaml:"interval"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

type SyncConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"` // 0 disables periodic refresh
}

type OptimisticConfig struct {
	SuccessRetention  time.Duration `yaml:"success_retention"`
	RollbackRetention time.Duration `yaml:"rollback_retention"`
}

type NotificationsConfig struct {
	Max          int           `yaml:"max"`
	DismissAfter time.Duration `yaml:"dismiss_after"`
	Retention    time.Duration `yaml:"retention"` // 0 keeps persisted errors forever
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	File   string `yaml:"file"`   // optional rotating log file
}
