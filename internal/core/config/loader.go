package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/annotator/internal/resilience"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Backend.Timeout == 0 {
		c.Backend.Timeout = 10 * time.Second
	}
	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = 5
	}
	if c.Breaker.ResetTimeout == 0 {
		c.Breaker.ResetTimeout = 30 * time.Second
	}
	if c.Health.Interval == 0 {
		c.Health.Interval = 30 * time.Second
	}
	if c.Health.MaxRetries == 0 {
		c.Health.MaxRetries = 3
	}
	if c.Optimistic.SuccessRetention == 0 {
		c.Optimistic.SuccessRetention = 2 * time.Second
	}
	if c.Optimistic.RollbackRetention == 0 {
		c.Optimistic.RollbackRetention = 1 * time.Second
	}
	if c.Notifications.Max == 0 {
		c.Notifications.Max = 10
	}
	if c.Notifications.DismissAfter == 0 {
		c.Notifications.DismissAfter = 5 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks the settings that have no sensible default.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Backend.Endpoint == "" {
		errs = append(errs, errors.New("backend.endpoint is required"))
	}
	for name, p := range map[string]PolicyConfig{"graphql": c.Retry.GraphQL, "store": c.Retry.Store} {
		if p.MaxAttempts < 0 {
			errs = append(errs, fmt.Errorf("retry.%s.max_attempts must not be negative", name))
		}
		if p.BackoffFactor != 0 && p.BackoffFactor <= 1 {
			errs = append(errs, fmt.Errorf("retry.%s.backoff_factor must be greater than 1", name))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Apply overrides the numbers of base with the non-zero fields of p.
// The predicate and name of base are kept.
func (p PolicyConfig) Apply(base resilience.RetryPolicy) resilience.RetryPolicy {
	if p.MaxAttempts > 0 {
		base.MaxAttempts = p.MaxAttempts
	}
	if p.InitialDelay > 0 {
		base.InitialDelay = p.InitialDelay
	}
	if p.MaxDelay > 0 {
		base.MaxDelay = p.MaxDelay
	}
	if p.BackoffFactor > 1 {
		base.BackoffFactor = p.BackoffFactor
	}
	return base
}
