package store

import (
	"context"
	"fmt"

	"github.com/vietddude/annotator/internal/core/domain"
	"github.com/vietddude/annotator/internal/optimistic"
)

// ImageAPI is the backend surface the image store needs.
type ImageAPI interface {
	ListImages(ctx context.Context) ([]domain.Image, error)
	DeleteImage(ctx context.Context, id string) error
}

// ImageStore owns the image list.
type ImageStore struct {
	*Collection[domain.Image]

	api     ImageAPI
	opts    Options
	updates *optimistic.Manager[domain.Image]
}

func imageID(img domain.Image) string { return img.ID }

func NewImageStore(api ImageAPI, opts Options) *ImageStore {
	opts = opts.withDefaults(domain.DomainImages)
	s := &ImageStore{
		Collection: NewCollection(domain.DomainImages, imageID),
		api:        api,
		opts:       opts,
	}
	s.updates = optimistic.NewManager(optimistic.Config[domain.Image]{
		Name:  "image",
		GetID: imageID,
		Apply: func(op optimistic.Operation, img domain.Image) {
			if op == optimistic.OperationDelete {
				s.remove(img.ID)
				return
			}
			s.upsert(img)
		},
		Rollback: func(op optimistic.Operation, img domain.Image, original *domain.Image) {
			if original == nil {
				s.remove(img.ID)
				return
			}
			s.upsert(*original)
		},
		SuccessRetention:  opts.SuccessRetention,
		RollbackRetention: opts.RollbackRetention,
	})
	return s
}

// FetchImages replaces the image list with the backend's.
func (s *ImageStore) FetchImages(ctx context.Context) error {
	return load(ctx, s.Collection, s.opts, false, s.api.ListImages)
}

// ByProject returns the images of one project.
func (s *ImageStore) ByProject(projectID string) []domain.Image {
	var out []domain.Image
	for _, img := range s.Items() {
		if img.ProjectID == projectID {
			out = append(out, img)
		}
	}
	return out
}

// DeleteImage removes an image, restoring it if the backend refuses.
func (s *ImageStore) DeleteImage(ctx context.Context, id string) error {
	original, ok := s.Find(id)
	if !ok {
		return fmt.Errorf("image %s: %w", id, ErrNotFound)
	}

	_, err := optimistic.WithOptimisticUpdate(ctx, s.updates, optimistic.OperationDelete, original,
		func(ctx context.Context) (struct{}, error) {
			return call(ctx, s.opts.Breaker, s.opts.MutationPolicy,
				func(ctx context.Context) (struct{}, error) {
					return struct{}{}, s.api.DeleteImage(ctx, id)
				})
		}, &original)
	return err
}

// Cleanup drops all state and tracking.
func (s *ImageStore) Cleanup() {
	s.updates.Clear()
	s.Reset()
}
