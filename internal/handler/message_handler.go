package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelancehub/internal/service"
)

type MessageHandler struct {
	messages *service.MessageService
	logger   *zap.Logger
}

func NewMessageHandler(messages *service.MessageService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messages: messages, logger: logger}
}

func (h *MessageHandler) Send(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var req service.SendMessageInput
	if !bindJSON(c, &req) {
		return
	}
	msg, err := h.messages.Send(c.Request.Context(), who, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusCreated, gin.H{"data": msg})
}

// Conversation handles GET /api/messages/:userId?since=<last message id>; clients poll it.
func (h *MessageHandler) Conversation(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	peerID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	var since int64
	if raw := c.Query("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			fail(c, http.StatusBadRequest, "invalid since")
			return
		}
		since = v
	}
	msgs, err := h.messages.Conversation(c.Request.Context(), who, peerID, since)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"data": msgs})
}

func (h *MessageHandler) Conversations(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	convs, err := h.messages.Conversations(c.Request.Context(), who)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"data": convs})
}
