package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/model"
	"freelancehub/internal/repository"
	"freelancehub/pkg/logger"
	"freelancehub/pkg/metrics"
	"freelancehub/pkg/mq"
	"freelancehub/pkg/util"
)

const notificationHandlerName = "notification"

// notificationTypes maps domain events to the in-app notification they produce.
var notificationTypes = map[string]string{
	mqcontracts.EventProposalSubmitted:     model.NotificationProposalReceived,
	mqcontracts.EventProposalStatusChanged: model.NotificationProposalStatus,
	mqcontracts.EventContractCreated:       model.NotificationContractCreated,
	mqcontracts.EventMilestoneSubmitted:    model.NotificationMilestoneSubmitted,
	mqcontracts.EventMilestoneReviewed:     model.NotificationSubmissionReviewed,
	mqcontracts.EventPaymentReleased:       model.NotificationPaymentReleased,
	mqcontracts.EventContractCompleted:     model.NotificationContractCompleted,
	mqcontracts.EventMessageSent:           model.NotificationNewMessage,
}

// Deduper is satisfied by *util.Deduper.
type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, key string) bool
	Release(ctx context.Context, handler string, key string)
}

type NotificationHandler struct {
	repo    repository.NotificationRepository
	deduper Deduper
	logger  *zap.Logger
}

// NewNotificationHandler builds the handler; deduper may be nil, in which case
// the repository's event id uniqueness is the only guard against redelivery.
func NewNotificationHandler(repo repository.NotificationRepository, deduper Deduper, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{repo: repo, deduper: deduper, logger: logger}
}

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

// Handle 写入站内通知
func (h *NotificationHandler) Handle(ctx context.Context, data json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic in notification handler", zap.Any("panic", r))
			err = nil
		}
	}()

	evt, ok := mq.EventFromContext(ctx)
	if !ok {
		h.logger.Error("Notification handler called without an event envelope")
		return nil
	}
	log := logger.WithTrace(ctx, h.logger).With(
		zap.String("event_id", evt.ID),
		zap.String("event_type", evt.Type),
	)

	notificationType, ok := notificationTypes[evt.Type]
	if !ok {
		log.Warn("Event does not produce notifications")
		return nil
	}

	var n mqcontracts.Notify
	if err := json.Unmarshal(data, &n); err != nil {
		// JSON decode 错误 - 不可重试
		log.Error("Failed to unmarshal notification payload (non-retryable)", zap.Error(err))
		metrics.IncrementNotification(notificationType, "invalid")
		return nil
	}
	if n.RecipientID == 0 {
		log.Error("Notification payload has no recipient (non-retryable)")
		metrics.IncrementNotification(notificationType, "invalid")
		return nil
	}

	dedupKey := fmt.Sprintf("%s:%d", evt.ID, n.RecipientID)
	if h.deduper != nil && !h.deduper.AcquireOnce(ctx, notificationHandlerName, dedupKey) {
		metrics.IncrementNotification(notificationType, "duplicate")
		return nil
	}

	notif := &model.Notification{
		RecipientID: n.RecipientID,
		SenderID:    n.SenderID,
		Type:        notificationType,
		JobID:       optionalID(n.JobID),
		ProposalID:  optionalID(n.ProposalID),
		ContractID:  optionalID(n.ContractID),
		Message:     n.Message,
		EventID:     evt.ID,
	}
	if err := h.repo.Create(ctx, notif); err != nil {
		isRetryable, errType := util.IsRetryableError(err)
		log.Error("Failed to insert notification",
			zap.Int64("recipient_id", n.RecipientID),
			zap.String("error_type", errType),
			zap.Bool("retryable", isRetryable),
			zap.Error(err),
		)
		metrics.IncrementNotification(notificationType, "failed")
		if !isRetryable {
			return nil // 不可重试错误，ack 掉
		}
		if h.deduper != nil {
			h.deduper.Release(ctx, notificationHandlerName, dedupKey)
		}
		return err // 可重试错误，nack 并重试
	}

	metrics.IncrementNotification(notificationType, "created")
	log.Info("Notification created",
		zap.Int64("notification_id", notif.ID),
		zap.Int64("recipient_id", n.RecipientID),
	)
	return nil
}

// RegisterHandlers binds every handler to router; the router's types become the queue bindings.
func RegisterHandlers(router *mq.Router, notifications *NotificationHandler, registered *UserRegisteredHandler) {
	for eventType := range notificationTypes {
		router.Register(eventType, notifications.Handle)
	}
	router.Register(mqcontracts.EventUserRegistered, registered.Handle)
}
