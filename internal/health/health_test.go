package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// Stubs
// =============================================================================

func okProbe(name string) Probe {
	return Probe{Name: name, Check: func(ctx context.Context) error { return nil }}
}

func failProbe(name string) Probe {
	return Probe{Name: name, Check: func(ctx context.Context) error { return errors.New(name + " down") }}
}

// switchProbe fails until ok is set.
type switchProbe struct {
	ok    atomic.Bool
	calls atomic.Int32
}

func (s *switchProbe) probe(name string) Probe {
	return Probe{Name: name, Check: func(ctx context.Context) error {
		s.calls.Add(1)
		if s.ok.Load() {
			return nil
		}
		return errors.New("connection refused")
	}}
}

func fastConfig() Config {
	return Config{
		Interval:     time.Hour,
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}
}

// =============================================================================
// Tests
// =============================================================================

func TestCheckHealth_Overall(t *testing.T) {
	tests := []struct {
		name      string
		basic     Probe
		domains   []Probe
		want      Status
		dataLayer bool
	}{
		{
			name:      "all healthy",
			basic:     okProbe("basic"),
			domains:   []Probe{okProbe("projects"), okProbe("images"), okProbe("tasks")},
			want:      StatusHealthy,
			dataLayer: true,
		},
		{
			name:      "some domains failing",
			basic:     okProbe("basic"),
			domains:   []Probe{okProbe("projects"), failProbe("images"), okProbe("tasks")},
			want:      StatusDegraded,
			dataLayer: true,
		},
		{
			name:      "all domains failing",
			basic:     okProbe("basic"),
			domains:   []Probe{failProbe("projects"), failProbe("images"), failProbe("tasks")},
			want:      StatusDegraded,
			dataLayer: false,
		},
		{
			name:      "basic probe failing",
			basic:     failProbe("basic"),
			domains:   []Probe{okProbe("projects"), okProbe("images"), okProbe("tasks")},
			want:      StatusUnhealthy,
			dataLayer: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(fastConfig(), tt.basic, tt.domains...)
			h, err := m.CheckHealth(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.Overall != tt.want {
				t.Errorf("expected %s, got %s", tt.want, h.Overall)
			}
			if h.DataLayerReachable != tt.dataLayer {
				t.Errorf("expected data layer reachable=%v, got %v", tt.dataLayer, h.DataLayerReachable)
			}
			if len(h.Probes) != 4 {
				t.Errorf("expected 4 probe results, got %d", len(h.Probes))
			}
			if h.LastCheck == nil {
				t.Error("expected last check time")
			}
		})
	}
}

func TestCheckHealth_InProgress(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	basic := Probe{Name: "basic", Check: func(ctx context.Context) error {
		close(entered)
		<-release
		return nil
	}}
	m := NewMonitor(fastConfig(), basic)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = m.CheckHealth(context.Background())
	}()
	<-entered

	if !m.IsChecking() {
		t.Error("expected checking flag")
	}
	if _, err := m.CheckHealth(context.Background()); !errors.Is(err, ErrCheckInProgress) {
		t.Errorf("expected ErrCheckInProgress, got %v", err)
	}

	close(release)
	<-done
	if m.IsChecking() {
		t.Error("expected checking flag cleared")
	}
}

func TestRetryConnection_StopsWhenHealthy(t *testing.T) {
	sp := &switchProbe{}
	m := NewMonitor(fastConfig(), sp.probe("basic"))

	if h, _ := m.CheckHealth(context.Background()); h.Overall != StatusUnhealthy {
		t.Fatalf("expected unhealthy, got %s", h.Overall)
	}
	sp.ok.Store(true)

	h, err := m.RetryConnection(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Overall != StatusHealthy {
		t.Errorf("expected healthy, got %s", h.Overall)
	}
	if m.RetryCount() != 0 {
		t.Errorf("expected retry count reset after healthy check, got %d", m.RetryCount())
	}
}

func TestRetryConnection_Exhausted(t *testing.T) {
	sp := &switchProbe{}
	m := NewMonitor(fastConfig(), sp.probe("basic"))

	_, err := m.RetryConnection(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if got := sp.calls.Load(); got != 3 {
		t.Errorf("expected 3 checks, got %d", got)
	}

	// The budget is spent until a manual retry resets it.
	if _, err := m.RetryConnection(context.Background()); !errors.Is(err, ErrRetriesExhausted) {
		t.Errorf("expected immediate exhaustion, got %v", err)
	}
	if got := sp.calls.Load(); got != 3 {
		t.Errorf("expected no further checks, got %d", got)
	}

	_, err = m.ManualRetry(context.Background())
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected exhaustion after manual retry, got %v", err)
	}
	if got := sp.calls.Load(); got != 6 {
		t.Errorf("expected manual retry to run 3 more checks, got %d", got)
	}
}

func TestRetryConnection_ContextCanceled(t *testing.T) {
	sp := &switchProbe{}
	cfg := fastConfig()
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour
	m := NewMonitor(cfg, sp.probe("basic"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.RetryConnection(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStatusChangeCallback(t *testing.T) {
	sp := &switchProbe{}
	m := NewMonitor(fastConfig(), sp.probe("basic"))

	var changes []Status
	m.SetStatusChangeCallback(func(from, to Status) { changes = append(changes, to) })

	_, _ = m.CheckHealth(context.Background())
	_, _ = m.CheckHealth(context.Background())
	sp.ok.Store(true)
	_, _ = m.CheckHealth(context.Background())

	if len(changes) != 2 || changes[0] != StatusUnhealthy || changes[1] != StatusHealthy {
		t.Errorf("unexpected changes %v", changes)
	}
}

func TestServer_Endpoints(t *testing.T) {
	m := NewMonitor(fastConfig(), failProbe("basic"), okProbe("projects"))
	srv := httptest.NewServer(NewServer(m, 0).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("get /health: %v", err)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}
	if body["status"] != string(StatusUnhealthy) {
		t.Errorf("unexpected body %v", body)
	}

	resp, err = http.Get(srv.URL + "/health/detailed")
	if err != nil {
		t.Fatalf("get /health/detailed: %v", err)
	}
	var detailed detailedResponse
	if err := json.NewDecoder(resp.Body).Decode(&detailed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if !detailed.Probes["projects"].OK || detailed.Probes["basic"].OK {
		t.Errorf("unexpected probes %+v", detailed.Probes)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected metrics 200, got %d", resp.StatusCode)
	}
}
