package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
	"freelancehub/pkg/rbac"
)

type BookmarkService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewBookmarkService(store repository.Store, logger *zap.Logger) *BookmarkService {
	return &BookmarkService{store: store, logger: logger}
}

// Add is idempotent.
func (s *BookmarkService) Add(ctx context.Context, caller rbac.Caller, jobID int64) error {
	return fromRepo(s.store.Bookmarks().Add(ctx, caller.ID, jobID), "job")
}

func (s *BookmarkService) Remove(ctx context.Context, caller rbac.Caller, jobID int64) error {
	return fromRepo(s.store.Bookmarks().Remove(ctx, caller.ID, jobID), "bookmark")
}

// List returns the bookmarked jobs, newest bookmark first.
func (s *BookmarkService) List(ctx context.Context, caller rbac.Caller) ([]model.Job, error) {
	marks, err := s.store.Bookmarks().ListByUser(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	jobs := make([]model.Job, 0, len(marks))
	for _, b := range marks {
		job, err := s.store.Jobs().GetByID(ctx, b.JobID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}
