package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/annotator/internal/coordinator"
	"github.com/vietddude/annotator/internal/core/config"
	"github.com/vietddude/annotator/internal/core/domain"
	"github.com/vietddude/annotator/internal/core/worker"
	"github.com/vietddude/annotator/internal/errorlog"
	"github.com/vietddude/annotator/internal/health"
	"github.com/vietddude/annotator/internal/infra/graphql"
	redisclient "github.com/vietddude/annotator/internal/infra/redis"
	"github.com/vietddude/annotator/internal/infra/storage"
	"github.com/vietddude/annotator/internal/infra/storage/memory"
	"github.com/vietddude/annotator/internal/infra/storage/postgres"
	"github.com/vietddude/annotator/internal/resilience"
	"github.com/vietddude/annotator/internal/store"
)

// Error sources reported by the application itself.
const (
	SourceSync    = "Data Sync"
	SourceBreaker = "Circuit Breaker"
	SourceMonitor = "Connection Monitor"
)

// App owns every component and their lifecycle. Nothing runs until Start.
type App struct {
	cfg *config.AppConfig

	client      *graphql.Client
	projects    *store.ProjectStore
	images      *store.ImageStore
	tasks       *store.TaskStore
	coordinator *coordinator.Coordinator
	errors      *errorlog.Store
	errorRepo   storage.ErrorLogRepository

	healthMon    *health.Monitor
	healthServer *health.Server
	pruner       *worker.Pruner

	db          *postgres.DB
	redisClient *redisclient.Client
	cachePing   func(ctx context.Context) error
	log         *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewApp wires all components from configuration.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{cfg: cfg, log: slog.Default()}

	// 1. Storage
	mem := memory.NewMemoryStorage()
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.errorRepo = postgres.NewErrorLogRepo(db)
		a.log.Info("Using PostgreSQL error log")
	} else {
		a.errorRepo = memory.NewErrorLogRepo(mem)
		a.log.Info("Using memory error log")
	}

	var cache storage.SnapshotCache = memory.NewSnapshotCache(mem)
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			a.log.Warn("Failed to connect to Redis, using memory snapshots", "error", err)
		} else {
			a.redisClient = client
			cache = client
			a.log.Info("Using Redis snapshot cache")
		}
	}

	// 2. Error store
	a.errors = errorlog.New(errorlog.Config{
		MaxNotifications: cfg.Notifications.Max,
		DismissAfter:     cfg.Notifications.DismissAfter,
	}, a.errorRepo)
	a.pruner = worker.NewPruner(cfg.Notifications.Retention, a.errorRepo)

	// 3. Backend client and feature stores
	a.client = graphql.NewClient(cfg.Backend.Endpoint, cfg.Backend.Token, cfg.Backend.Timeout)

	fetchPolicy := cfg.Retry.GraphQL.Apply(resilience.GraphQLPolicy)
	mutationPolicy := cfg.Retry.Store.Apply(resilience.StorePolicy)
	opts := func(name string) store.Options {
		return store.Options{
			Breaker:           a.newBreaker(name),
			FetchPolicy:       fetchPolicy,
			MutationPolicy:    mutationPolicy,
			Cache:             cache,
			SuccessRetention:  cfg.Optimistic.SuccessRetention,
			RollbackRetention: cfg.Optimistic.RollbackRetention,
		}
	}
	a.projects = store.NewProjectStore(a.client, opts(domain.DomainProjects))
	a.images = store.NewImageStore(a.client, opts(domain.DomainImages))
	a.tasks = store.NewTaskStore(a.client, opts(domain.DomainTasks))

	a.coordinator = coordinator.New(a.projects, a.images, a.tasks, a.errors)

	// 4. Health
	if a.redisClient != nil {
		a.cachePing = a.redisClient.Ping
	}
	a.healthMon = health.NewMonitor(health.Config{
		Interval:     cfg.Health.Interval,
		ProbeTimeout: cfg.Health.ProbeTimeout,
		MaxRetries:   cfg.Health.MaxRetries,
		InitialDelay: cfg.Health.InitialDelay,
		MaxDelay:     cfg.Health.MaxDelay,
	}, health.Probe{Name: "backend", Check: a.client.Ping}, a.domainProbes()...)
	a.healthMon.SetStatusChangeCallback(a.onHealthChange)
	a.healthServer = health.NewServer(a.healthMon, cfg.Server.Port)

	return a, nil
}

// ProbeSnapshotCache names the health probe of the Redis snapshot cache.
const ProbeSnapshotCache = "snapshot_cache"

// domainProbes lists the data probes: one list query per domain, plus the
// snapshot cache when Redis is in use.
func (a *App) domainProbes() []health.Probe {
	probes := []health.Probe{
		{Name: domain.DomainProjects, Check: discard(a.client.ListProjects)},
		{Name: domain.DomainImages, Check: discard(a.client.ListImages)},
		{Name: domain.DomainTasks, Check: discard(a.client.ListTasks)},
	}
	if a.cachePing != nil {
		probes = append(probes, health.Probe{Name: ProbeSnapshotCache, Check: a.cachePing})
	}
	return probes
}

func discard[T any](fn func(ctx context.Context) (T, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := fn(ctx)
		return err
	}
}

func (a *App) newBreaker(name string) *resilience.CircuitBreaker {
	cb := resilience.NewCircuitBreaker(name, a.cfg.Breaker.FailureThreshold, a.cfg.Breaker.ResetTimeout)
	cb.SetStateChangeCallback(func(name string, from, to resilience.State) {
		if to == resilience.StateOpen && from != resilience.StateOpen {
			a.errors.AddSystemError(fmt.Sprintf("Too many failures loading %s, pausing requests", name), SourceBreaker)
		}
	})
	return cb
}

func (a *App) onHealthChange(from, to health.Status) {
	switch {
	case to == health.StatusUnhealthy:
		a.errors.AddCriticalError("Backend is unreachable", SourceMonitor)
	case from == health.StatusUnhealthy && to == health.StatusHealthy:
		a.log.Info("Backend connection restored")
	}
}

// Start launches the background components and the data sync loop.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return errors.New("app already started")
	}
	a.started = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.errors.Start(ctx)

	// Start Health Server
	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()

	a.goRun(func() { a.healthMon.Start(ctx) })
	a.goRun(func() { a.pruner.Start(ctx) })
	a.goRun(func() { a.runSync(ctx) })

	// Start DB Metrics Collector
	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	a.log.Info("Annotator started", "endpoint", a.client.Endpoint(), "port", a.cfg.Server.Port)
	return nil
}

func (a *App) goRun(fn func()) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn()
	}()
}

// runSync performs the initial load, then refreshes periodically.
func (a *App) runSync(ctx context.Context) {
	a.report(a.coordinator.LoadInitialData(ctx))

	interval := a.cfg.Sync.RefreshInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.report(a.coordinator.RefreshAllData(ctx))
		}
	}
}

func (a *App) report(result domain.LoadResult) {
	for _, msg := range result.Errors {
		a.errors.AddSystemError(msg, SourceSync)
	}
}

// Stop stops background work and releases resources.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping Annotator...")

	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if err := a.healthServer.Stop(ctx); err != nil {
		a.log.Warn("Failed to stop health server", "error", err)
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.log.Warn("Timed out waiting for background tasks")
	}

	a.coordinator.Cleanup()
	a.errors.Close()
	_ = a.client.Close()

	// Close Redis
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}

	// Close DB
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close DB", "error", err)
		}
	}

	a.log.Info("Annotator stopped")
	return nil
}

func (a *App) Coordinator() *coordinator.Coordinator { return a.coordinator }
func (a *App) Errors() *errorlog.Store               { return a.errors }
func (a *App) Health() *health.Monitor               { return a.healthMon }
func (a *App) Projects() *store.ProjectStore         { return a.projects }
func (a *App) Images() *store.ImageStore             { return a.images }
func (a *App) Tasks() *store.TaskStore               { return a.tasks }
