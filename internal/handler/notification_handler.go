package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelancehub/internal/service"
)

type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *zap.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// List handles GET /api/notifications?page=&limit=&unreadOnly=
func (h *NotificationHandler) List(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	unreadOnly, _ := strconv.ParseBool(c.Query("unreadOnly"))
	items, page, err := h.notifications.List(c.Request.Context(), who, unreadOnly, queryInt(c, "page", 1), queryInt(c, "limit", 10))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"notifications": items, "pagination": pagination(page, "totalNotifications")})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	n, err := h.notifications.UnreadCount(c.Request.Context(), who)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"count": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), who, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	n, err := h.notifications.MarkAllRead(c.Request.Context(), who)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "all notifications marked as read", "updated": n})
}
