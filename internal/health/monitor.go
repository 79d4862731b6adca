package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/annotator/internal/metrics"
	"github.com/vietddude/annotator/internal/resilience"
)

var (
	// ErrCheckInProgress is returned when a health check is already running.
	ErrCheckInProgress = fmt.Errorf("health check: %w", resilience.ErrInProgress)

	// ErrRetryInProgress is returned when a reconnection loop is already running.
	ErrRetryInProgress = fmt.Errorf("connection retry: %w", resilience.ErrInProgress)

	// ErrRetriesExhausted is returned when RetryConnection gives up.
	ErrRetriesExhausted = errors.New("connection retries exhausted")
)

// Probe is one health check call against the backend.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config controls check frequency and the reconnection loop.
type Config struct {
	Interval     time.Duration
	ProbeTimeout time.Duration
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64
}

const (
	DefaultInterval     = 30 * time.Second
	DefaultProbeTimeout = 10 * time.Second
	DefaultMaxRetries   = 3
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxDelay     = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.Factor <= 1 {
		c.Factor = 2
	}
	return c
}

// Monitor runs the basic reachability probe and the domain probes, and
// drives a bounded reconnection loop when the backend is unreachable.
type Monitor struct {
	cfg     Config
	basic   Probe
	domains []Probe
	backoff resilience.Backoff

	mu         sync.RWMutex
	checking   bool
	retrying   bool
	retryCount int
	last       ConnectionHealth
	onChange   func(from, to Status)

	now func() time.Time
}

// NewMonitor creates a monitor.
func NewMonitor(cfg Config, basic Probe, domains ...Probe) *Monitor {
	cfg = cfg.withDefaults()
	return &Monitor{
		cfg:     cfg,
		basic:   basic,
		domains: domains,
		backoff: resilience.Backoff{
			InitialDelay: cfg.InitialDelay,
			MaxDelay:     cfg.MaxDelay,
			Factor:       cfg.Factor,
		},
		last: ConnectionHealth{Overall: StatusUnknown},
		now:  time.Now,
	}
}

// SetStatusChangeCallback registers fn to run when the overall status changes.
func (m *Monitor) SetStatusChangeCallback(fn func(from, to Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Last returns the result of the most recent check.
func (m *Monitor) Last() ConnectionHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// IsChecking reports whether a check is running.
func (m *Monitor) IsChecking() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checking
}

// RetryCount returns the number of reconnection attempts since the last
// healthy check or manual retry.
func (m *Monitor) RetryCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.retryCount
}

// CheckHealth runs all probes concurrently. Overlapping calls fail with
// ErrCheckInProgress.
func (m *Monitor) CheckHealth(ctx context.Context) (ConnectionHealth, error) {
	m.mu.Lock()
	if m.checking {
		m.mu.Unlock()
		return ConnectionHealth{}, ErrCheckInProgress
	}
	m.checking = true
	m.mu.Unlock()

	basic := ProbeResult{}
	domains := make([]ProbeResult, len(m.domains))

	var g errgroup.Group
	g.Go(func() error {
		basic = m.runProbe(ctx, m.basic)
		return nil
	})
	for i, p := range m.domains {
		g.Go(func() error {
			domains[i] = m.runProbe(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	h := evaluate(basic, domains)
	checkedAt := m.now()
	h.LastCheck = &checkedAt
	metrics.ConnectionHealth.Set(h.Overall.gauge())

	m.mu.Lock()
	prev := m.last.Overall
	m.last = h
	m.checking = false
	if h.Overall == StatusHealthy {
		m.retryCount = 0
	}
	onChange := m.onChange
	m.mu.Unlock()

	if prev != h.Overall {
		slog.Info("Connection health changed", "from", string(prev), "to", string(h.Overall))
		if onChange != nil {
			onChange(prev, h.Overall)
		}
	}
	return h, nil
}

func (m *Monitor) runProbe(ctx context.Context, p Probe) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	defer cancel()

	start := m.now()
	err := p.Check(ctx)
	latency := m.now().Sub(start)

	r := ProbeResult{Name: p.Name, OK: err == nil, Latency: latency, LatencyMS: latency.Milliseconds()}
	if err != nil {
		r.Error = err.Error()
		metrics.HealthProbeFailures.WithLabelValues(p.Name).Inc()
		slog.Debug("Health probe failed", "probe", p.Name, "error", err)
	}
	return r
}

// RetryConnection re-checks with exponential backoff until the backend is
// healthy or MaxRetries attempts have been made in total.
func (m *Monitor) RetryConnection(ctx context.Context) (ConnectionHealth, error) {
	m.mu.Lock()
	if m.retrying {
		m.mu.Unlock()
		return m.Last(), ErrRetryInProgress
	}
	m.retrying = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.retrying = false
		m.mu.Unlock()
	}()

	for {
		m.mu.Lock()
		if m.retryCount >= m.cfg.MaxRetries {
			m.mu.Unlock()
			slog.Warn("Connection retries exhausted", "max_retries", m.cfg.MaxRetries)
			return m.Last(), ErrRetriesExhausted
		}
		m.retryCount++
		attempt := m.retryCount
		m.mu.Unlock()

		delay := m.backoff.Delay(attempt)
		slog.Info("Retrying backend connection", "attempt", attempt, "delay", delay)
		if err := resilience.Wait(ctx, delay); err != nil {
			return m.Last(), err
		}

		h, err := m.CheckHealth(ctx)
		if errors.Is(err, ErrCheckInProgress) {
			continue
		}
		if h.Overall == StatusHealthy {
			return h, nil
		}
	}
}

// ManualRetry resets the retry budget and retries.
func (m *Monitor) ManualRetry(ctx context.Context) (ConnectionHealth, error) {
	m.mu.Lock()
	m.retryCount = 0
	m.mu.Unlock()
	return m.RetryConnection(ctx)
}

// Start checks health every interval until ctx is done, starting the
// reconnection loop whenever the backend is unhealthy.
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	h, err := m.CheckHealth(ctx)
	if err != nil {
		return
	}
	if h.Overall != StatusUnhealthy {
		return
	}
	if _, err := m.RetryConnection(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Backend unreachable", "error", err)
	}
}
