package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/annotator/internal/core/domain"
	"github.com/vietddude/annotator/internal/optimistic"
)

// TaskAPI is the backend surface the task store needs.
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	CreateTask(ctx context.Context, input domain.TaskInput) (*domain.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// TaskStore owns the task list.
type TaskStore struct {
	*Collection[domain.Task]

	api     TaskAPI
	opts    Options
	updates *optimistic.Manager[domain.Task]
}

func taskID(t domain.Task) string { return t.ID }

func NewTaskStore(api TaskAPI, opts Options) *TaskStore {
	opts = opts.withDefaults(domain.DomainTasks)
	s := &TaskStore{
		Collection: NewCollection(domain.DomainTasks, taskID),
		api:        api,
		opts:       opts,
	}
	s.updates = optimistic.NewManager(optimistic.Config[domain.Task]{
		Name:  "task",
		GetID: taskID,
		Apply: func(op optimistic.Operation, t domain.Task) {
			if op == optimistic.OperationDelete {
				s.remove(t.ID)
				return
			}
			s.upsert(t)
		},
		Rollback: func(op optimistic.Operation, t domain.Task, original *domain.Task) {
			if original == nil {
				s.remove(t.ID)
				return
			}
			s.upsert(*original)
		},
		SuccessRetention:  opts.SuccessRetention,
		RollbackRetention: opts.RollbackRetention,
	})
	return s
}

// LoadTasks replaces the task list, toggling the loading flag.
func (s *TaskStore) LoadTasks(ctx context.Context) error {
	return load(ctx, s.Collection, s.opts, false, s.api.ListTasks)
}

// RefreshTasks reloads the task list in the background without toggling
// the loading flag, so the current list stays on screen.
func (s *TaskStore) RefreshTasks(ctx context.Context) error {
	return load(ctx, s.Collection, s.opts, true, s.api.ListTasks)
}

// ByStatus returns the tasks in one workflow state.
func (s *TaskStore) ByStatus(status domain.TaskStatus) []domain.Task {
	var out []domain.Task
	for _, t := range s.Items() {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}

// CreateTask shows a temporary task at once and swaps in the backend's
// version when the mutation succeeds.
func (s *TaskStore) CreateTask(ctx context.Context, input domain.TaskInput) (*domain.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("task title is required: %w", ErrInvalidInput)
	}
	if input.Status == "" {
		input.Status = domain.TaskStatusTodo
	}
	if !input.Status.Valid() {
		return nil, fmt.Errorf("task status %q: %w", input.Status, ErrInvalidInput)
	}

	now := time.Now()
	temp := domain.Task{
		ID:        "temp-" + uuid.NewString(),
		ProjectID: input.ProjectID,
		ImageID:   input.ImageID,
		Title:     input.Title,
		Status:    input.Status,
		Assignee:  input.Assignee,
		CreatedAt: now,
		UpdatedAt: now,
	}

	gen := s.Generation()
	created, err := optimistic.WithOptimisticUpdate(ctx, s.updates, optimistic.OperationCreate, temp,
		func(ctx context.Context) (*domain.Task, error) {
			return call(ctx, s.opts.Breaker, s.opts.MutationPolicy,
				func(ctx context.Context) (*domain.Task, error) {
					return s.api.CreateTask(ctx, input)
				})
		}, nil)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return &temp, nil
	}
	s.swap(gen, temp.ID, *created)
	return created, nil
}

// UpdateTaskStatus moves a task to another workflow state.
func (s *TaskStore) UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("task status %q: %w", status, ErrInvalidInput)
	}
	original, ok := s.Find(id)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	next := original
	next.Status = status
	next.UpdatedAt = time.Now()

	gen := s.Generation()
	updated, err := optimistic.WithOptimisticUpdate(ctx, s.updates, optimistic.OperationUpdate, next,
		func(ctx context.Context) (*domain.Task, error) {
			return call(ctx, s.opts.Breaker, s.opts.MutationPolicy,
				func(ctx context.Context) (*domain.Task, error) {
					return s.api.UpdateTaskStatus(ctx, id, status)
				})
		}, &original)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return &next, nil
	}
	s.swap(gen, id, *updated)
	return updated, nil
}

// DeleteTask removes a task, restoring it if the backend refuses.
func (s *TaskStore) DeleteTask(ctx context.Context, id string) error {
	original, ok := s.Find(id)
	if !ok {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	_, err := optimistic.WithOptimisticUpdate(ctx, s.updates, optimistic.OperationDelete, original,
		func(ctx context.Context) (struct{}, error) {
			return call(ctx, s.opts.Breaker, s.opts.MutationPolicy,
				func(ctx context.Context) (struct{}, error) {
					return struct{}{}, s.api.DeleteTask(ctx, id)
				})
		}, &original)
	return err
}

// PendingUpdates returns mutations still awaiting the backend.
func (s *TaskStore) PendingUpdates() []optimistic.Record[domain.Task] {
	return s.updates.GetPendingUpdates()
}

// Cleanup drops all state and tracking.
func (s *TaskStore) Cleanup() {
	s.updates.Clear()
	s.Reset()
}
