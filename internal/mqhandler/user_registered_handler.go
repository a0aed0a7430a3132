package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	mqcontracts "freelancehub/contracts/mq"
	"freelancehub/pkg/logger"
)

// UserRegisteredHandler hands out the verification link. There is no mail
// transport, so the link is written to the log.
type UserRegisteredHandler struct {
	verifyURL string
	logger    *zap.Logger
}

func NewUserRegisteredHandler(verifyURL string, logger *zap.Logger) *UserRegisteredHandler {
	return &UserRegisteredHandler{verifyURL: verifyURL, logger: logger}
}

func (h *UserRegisteredHandler) Handle(ctx context.Context, data json.RawMessage) error {
	var p mqcontracts.UserRegisteredPayload
	if err := json.Unmarshal(data, &p); err != nil {
		h.logger.Error("Failed to unmarshal user registered payload (non-retryable)", zap.Error(err))
		return nil
	}

	logger.WithTrace(ctx, h.logger).Info("Verification link issued",
		zap.Int64("user_id", p.UserID),
		zap.String("email", p.Email),
		zap.String("link", h.verifyURL+"?token="+p.VerificationToken),
	)
	return nil
}
