package service

import (
	"context"

	"go.uber.org/zap"

	"freelancehub/internal/model"
	"freelancehub/internal/repository"
	"freelancehub/pkg/rbac"
)

type NotificationService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewNotificationService(store repository.Store, logger *zap.Logger) *NotificationService {
	return &NotificationService{store: store, logger: logger}
}

func (s *NotificationService) List(ctx context.Context, caller rbac.Caller, unreadOnly bool, page, limit int) ([]model.Notification, Page, error) {
	p := newPage(page, limit)
	items, total, err := s.store.Notifications().ListByRecipient(ctx, caller.ID, unreadOnly, p.Offset(), p.Limit)
	if err != nil {
		return nil, p, err
	}
	p.Total = total
	return items, p, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, caller rbac.Caller) (int, error) {
	return s.store.Notifications().CountUnread(ctx, caller.ID)
}

// MarkRead only touches notifications addressed to the caller; others look missing.
func (s *NotificationService) MarkRead(ctx context.Context, caller rbac.Caller, id int64) error {
	return fromRepo(s.store.Notifications().MarkRead(ctx, id, caller.ID), "notification")
}

func (s *NotificationService) MarkAllRead(ctx context.Context, caller rbac.Caller) (int64, error) {
	n, err := s.store.Notifications().MarkAllRead(ctx, caller.ID)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("Notifications marked read", zap.Int64("user_id", caller.ID), zap.Int64("count", n))
	return n, nil
}
