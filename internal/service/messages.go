package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/internal/model"
	"freelancehub/internal/repository"
	"freelancehub/pkg/rbac"
)

const maxMessageLength = 5000

type MessageService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewMessageService(store repository.Store, logger *zap.Logger) *MessageService {
	return &MessageService{store: store, logger: logger}
}

type SendMessageInput struct {
	RecipientID int64  `json:"recipient_id"`
	Body        string `json:"body"`
	JobID       *int64 `json:"job_id,omitempty"`
}

func (s *MessageService) Send(ctx context.Context, caller rbac.Caller, in SendMessageInput) (*model.Message, error) {
	body := strings.TrimSpace(in.Body)
	switch {
	case in.RecipientID == 0 || body == "":
		return nil, invalid("recipient_id and body are required")
	case in.RecipientID == caller.ID:
		return nil, invalid("cannot message yourself")
	case utf8.RuneCountInString(body) > maxMessageLength:
		return nil, invalid("message is longer than %d characters", maxMessageLength)
	}

	msg := &model.Message{
		SenderID:    caller.ID,
		RecipientID: in.RecipientID,
		JobID:       in.JobID,
		Body:        body,
	}
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		sender, err := tx.Users().GetByID(ctx, caller.ID)
		if err != nil {
			return fromRepo(err, "sender")
		}
		if _, err := tx.Users().GetByID(ctx, in.RecipientID); err != nil {
			return fromRepo(err, "recipient")
		}
		if err := tx.Messages().Create(ctx, msg); err != nil {
			return err
		}

		notify := mqcontracts.Notify{
			RecipientID: msg.RecipientID,
			SenderID:    caller.ID,
			Message:     "New message from " + sender.Name,
		}
		if msg.JobID != nil {
			notify.JobID = *msg.JobID
		}
		return recordEvent(ctx, tx, "message", msg.ID, mqcontracts.EventMessageSent, mqcontracts.MessageSentPayload{
			Notify:    notify,
			MessageID: msg.ID,
		})
	})
	if err != nil {
		return nil, fromRepo(err, "message")
	}
	return msg, nil
}

// Conversation returns messages with peer newer than afterID and marks the ones
// the caller received as read.
func (s *MessageService) Conversation(ctx context.Context, caller rbac.Caller, peerID, afterID int64) ([]model.Message, error) {
	if peerID == caller.ID {
		return nil, invalid("cannot open a conversation with yourself")
	}
	if _, err := s.store.Users().GetByID(ctx, peerID); err != nil {
		return nil, fromRepo(err, "user")
	}
	msgs, err := s.store.Messages().ListConversation(ctx, caller.ID, peerID, afterID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Messages().MarkConversationRead(ctx, caller.ID, peerID); err != nil {
		s.logger.Warn("Failed to mark conversation read",
			zap.Int64("user_id", caller.ID),
			zap.Int64("peer_id", peerID),
			zap.Error(err),
		)
	}
	return msgs, nil
}

// ConversationSummary is the newest message exchanged with one peer.
type ConversationSummary struct {
	Peer        model.PublicUser `json:"peer"`
	LastMessage model.Message    `json:"last_message"`
}

func (s *MessageService) Conversations(ctx context.Context, caller rbac.Caller) ([]ConversationSummary, error) {
	latest, err := s.store.Messages().LatestPerPeer(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	out := make([]ConversationSummary, 0, len(latest))
	for _, m := range latest {
		peer, err := s.store.Users().GetByID(ctx, m.Peer(caller.ID))
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ConversationSummary{Peer: peer.Public(), LastMessage: m})
	}
	return out, nil
}
