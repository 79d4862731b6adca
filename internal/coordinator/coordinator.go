// Package coordinator sequences and parallelizes the data loads of the
// feature stores and reports partial failures without aborting siblings.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/annotator/internal/core/domain"
	"github.com/vietddude/annotator/internal/metrics"
)

const (
	OpInitial = "initial"
	OpRefresh = "refresh"

	// Source labels errors the coordinator reports to the error sink.
	Source = "Store Coordinator"
)

const (
	msgInitialInProgress = "Initial load already in progress"
	msgRefreshInProgress = "Refresh already in progress"
)

// Domain is the state every feature store exposes to the coordinator.
type Domain interface {
	Loading() bool
	Error() string
	Cleanup()
}

type ProjectSource interface {
	Domain
	FetchProjects(ctx context.Context) error
}

type ImageSource interface {
	Domain
	FetchImages(ctx context.Context) error
}

type TaskSource interface {
	Domain
	LoadTasks(ctx context.Context) error
	RefreshTasks(ctx context.Context) error
}

// ErrorSink receives unexpected failures.
type ErrorSink interface {
	AddSystemError(message, source string) string
	Clear()
}

// Coordinator owns no entity data, only the in-flight guard set.
type Coordinator struct {
	projects ProjectSource
	images   ImageSource
	tasks    TaskSource
	sink     ErrorSink

	mu         sync.Mutex
	active     map[string]struct{}
	loading    bool
	generation uint64
}

// New creates a coordinator over the three feature stores.
func New(projects ProjectSource, images ImageSource, tasks TaskSource, sink ErrorSink) *Coordinator {
	return &Coordinator{
		projects: projects,
		images:   images,
		tasks:    tasks,
		sink:     sink,
		active:   make(map[string]struct{}),
	}
}

type domainLoad struct {
	name string
	fn   func(ctx context.Context) error
}

// LoadInitialData loads projects first, then images and tasks concurrently.
func (c *Coordinator) LoadInitialData(ctx context.Context) domain.LoadResult {
	gen, ok := c.begin(OpInitial)
	if !ok {
		return domain.LoadResult{Success: false, Errors: []string{msgInitialInProgress}, Operations: []string{}}
	}
	defer c.end(OpInitial, gen)

	start := time.Now()
	slog.Info("Starting initial data load")

	first := c.settle(ctx, OpInitial, []domainLoad{
		{name: domain.DomainProjects, fn: c.projects.FetchProjects},
	})
	rest := c.settle(ctx, OpInitial, []domainLoad{
		{name: domain.DomainImages, fn: c.images.FetchImages},
		{name: domain.DomainTasks, fn: c.tasks.LoadTasks},
	})

	result := buildResult(append(first, rest...))
	c.finish(OpInitial, start, result)
	return result
}

// RefreshAllData reloads all three domains concurrently.
func (c *Coordinator) RefreshAllData(ctx context.Context) domain.LoadResult {
	gen, ok := c.begin(OpRefresh)
	if !ok {
		return domain.LoadResult{Success: false, Errors: []string{msgRefreshInProgress}, Operations: []string{}}
	}
	defer c.end(OpRefresh, gen)

	start := time.Now()
	slog.Info("Refreshing all data")

	outcomes := c.settle(ctx, OpRefresh, []domainLoad{
		{name: domain.DomainProjects, fn: c.projects.FetchProjects},
		{name: domain.DomainImages, fn: c.images.FetchImages},
		{name: domain.DomainTasks, fn: c.tasks.RefreshTasks},
	})

	result := buildResult(outcomes)
	c.finish(OpRefresh, start, result)
	return result
}

// Cleanup tears everything down without waiting for loads in flight.
// Their results are ignored once they arrive.
func (c *Coordinator) Cleanup() {
	c.mu.Lock()
	c.active = make(map[string]struct{})
	c.loading = false
	c.generation++
	c.mu.Unlock()

	c.projects.Cleanup()
	c.images.Cleanup()
	c.tasks.Cleanup()
	if c.sink != nil {
		c.sink.Clear()
	}
	slog.Debug("Coordinator cleaned up")
}

// IsOperationActive reports whether the named load is in flight.
func (c *Coordinator) IsOperationActive(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[name]
	return ok
}

// IsLoading reports whether a coordinated load or any store load is running.
func (c *Coordinator) IsLoading() bool {
	c.mu.Lock()
	loading := c.loading
	c.mu.Unlock()
	return loading || c.projects.Loading() || c.images.Loading() || c.tasks.Loading()
}

// Errors returns the current error message of each store that has one,
// in projects, images, tasks order.
func (c *Coordinator) Errors() []string {
	var errs []string
	for _, d := range []Domain{c.projects, c.images, c.tasks} {
		if msg := d.Error(); msg != "" {
			errs = append(errs, msg)
		}
	}
	return errs
}

func (c *Coordinator) begin(op string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.active[op]; ok {
		slog.Debug("Load already in progress", "operation", op)
		return 0, false
	}
	c.active[op] = struct{}{}
	c.loading = true
	return c.generation, true
}

// end releases the guard unless Cleanup already moved past gen.
func (c *Coordinator) end(op string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}
	delete(c.active, op)
	c.loading = len(c.active) > 0
}

type outcome struct {
	name string
	err  error
}

// settle runs loads concurrently and waits for all of them. Goroutines
// never return an error so one failure does not cancel its siblings.
func (c *Coordinator) settle(ctx context.Context, op string, loads []domainLoad) []outcome {
	outcomes := make([]outcome, len(loads))

	var g errgroup.Group
	for i, l := range loads {
		g.Go(func() error {
			outcomes[i] = outcome{name: l.name, err: c.run(ctx, op, l)}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// run executes one domain load, turning a panic into an error that is
// also reported to the sink.
func (c *Coordinator) run(ctx context.Context, op string, l domainLoad) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s load panicked: %v", l.name, r)
			slog.Error("Recovered panic in domain load", "operation", op, "domain", l.name, "panic", r)
			if c.sink != nil {
				c.sink.AddSystemError(err.Error(), Source)
			}
		}
		if err != nil {
			metrics.CoordinatorLoadErrors.WithLabelValues(op, l.name).Inc()
		}
	}()
	return l.fn(ctx)
}

func buildResult(outcomes []outcome) domain.LoadResult {
	result := domain.LoadResult{
		Errors:     []string{},
		Operations: make([]string, 0, len(outcomes)),
	}
	for _, o := range outcomes {
		result.Operations = append(result.Operations, o.name)
		if o.err != nil {
			result.Errors = append(result.Errors, o.err.Error())
		}
	}
	result.Success = len(result.Errors) == 0
	return result
}

func (c *Coordinator) finish(op string, start time.Time, result domain.LoadResult) {
	elapsed := time.Since(start)
	metrics.CoordinatorLoadDuration.WithLabelValues(op).Observe(elapsed.Seconds())

	if result.Success {
		slog.Info("Data load completed", "operation", op, "duration", elapsed)
		return
	}
	slog.Warn("Data load completed with errors",
		"operation", op,
		"duration", elapsed,
		"errors", len(result.Errors),
	)
}
