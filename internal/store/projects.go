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

// ProjectAPI is the backend surface the project store needs.
type ProjectAPI interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	CreateProject(ctx context.Context, input domain.ProjectInput) (*domain.Project, error)
	UpdateProject(ctx context.Context, id string, input domain.ProjectInput) (*domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// ProjectStore owns the project list.
type ProjectStore struct {
	*Collection[domain.Project]

	api     ProjectAPI
	opts    Options
	updates *optimistic.Manager[domain.Project]
}

func projectID(p domain.Project) string { return p.ID }

// NewProjectStore creates a project store.
func NewProjectStore(api ProjectAPI, opts Options) *ProjectStore {
	opts = opts.withDefaults(domain.DomainProjects)
	s := &ProjectStore{
		Collection: NewCollection(domain.DomainProjects, projectID),
		api:        api,
		opts:       opts,
	}
	s.updates = optimistic.NewManager(optimistic.Config[domain.Project]{
		Name:              "project",
		GetID:             projectID,
		Apply:             s.applyUpdate,
		Rollback:          s.rollbackUpdate,
		SuccessRetention:  opts.SuccessRetention,
		RollbackRetention: opts.RollbackRetention,
	})
	return s
}

// FetchProjects replaces the project list with the backend's.
func (s *ProjectStore) FetchProjects(ctx context.Context) error {
	return load(ctx, s.Collection, s.opts, false, s.api.ListProjects)
}

// CreateProject shows a temporary project at once and swaps in the
// backend's version when the mutation succeeds.
func (s *ProjectStore) CreateProject(ctx context.Context, input domain.ProjectInput) (*domain.Project, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("project name is required: %w", ErrInvalidInput)
	}

	now := time.Now()
	temp := domain.Project{
		ID:          "temp-" + uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	gen := s.Generation()
	created, err := optimistic.WithOptimisticUpdate(ctx, s.updates, optimistic.OperationCreate, temp,
		func(ctx context.Context) (*domain.Project, error) {
			return call(ctx, s.opts.Breaker, s.opts.MutationPolicy,
				func(ctx context.Context) (*domain.Project, error) {
					return s.api.CreateProject(ctx, input)
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

// UpdateProject applies input to an existing project.
func (s *ProjectStore) UpdateProject(ctx context.Context, id string, input domain.ProjectInput) (*domain.Project, error) {
	original, ok := s.Find(id)
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("project name is required: %w", ErrInvalidInput)
	}

	next := original
	next.Name = input.Name
	next.Description = input.Description
	next.UpdatedAt = time.Now()

	gen := s.Generation()
	updated, err := optimistic.WithOptimisticUpdate(ctx, s.updates, optimistic.OperationUpdate, next,
		func(ctx context.Context) (*domain.Project, error) {
			return call(ctx, s.opts.Breaker, s.opts.MutationPolicy,
				func(ctx context.Context) (*domain.Project, error) {
					return s.api.UpdateProject(ctx, id, input)
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

// DeleteProject removes a project, restoring it if the backend refuses.
func (s *ProjectStore) DeleteProject(ctx context.Context, id string) error {
	original, ok := s.Find(id)
	if !ok {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}

	_, err := optimistic.WithOptimisticUpdate(ctx, s.updates, optimistic.OperationDelete, original,
		func(ctx context.Context) (struct{}, error) {
			return call(ctx, s.opts.Breaker, s.opts.MutationPolicy,
				func(ctx context.Context) (struct{}, error) {
					return struct{}{}, s.api.DeleteProject(ctx, id)
				})
		}, &original)
	return err
}

// PendingUpdates returns mutations still awaiting the backend.
func (s *ProjectStore) PendingUpdates() []optimistic.Record[domain.Project] {
	return s.updates.GetPendingUpdates()
}

// Cleanup drops all state and tracking.
func (s *ProjectStore) Cleanup() {
	s.updates.Clear()
	s.Reset()
}

func (s *ProjectStore) applyUpdate(op optimistic.Operation, p domain.Project) {
	if op == optimistic.OperationDelete {
		s.remove(p.ID)
		return
	}
	s.upsert(p)
}

func (s *ProjectStore) rollbackUpdate(op optimistic.Operation, p domain.Project, original *domain.Project) {
	if original == nil {
		s.remove(p.ID)
		return
	}
	s.upsert(*original)
}
