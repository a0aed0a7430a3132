package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelancehub/internal/service"
)

type BookmarkHandler struct {
	bookmarks *service.BookmarkService
	logger    *zap.Logger
}

func NewBookmarkHandler(bookmarks *service.BookmarkService, logger *zap.Logger) *BookmarkHandler {
	return &BookmarkHandler{bookmarks: bookmarks, logger: logger}
}

func (h *BookmarkHandler) List(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	jobs, err := h.bookmarks.List(c.Request.Context(), who)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"jobs": jobs})
}

func (h *BookmarkHandler) Add(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	jobID, ok := pathID(c, "jobId")
	if !ok {
		return
	}
	if err := h.bookmarks.Add(c.Request.Context(), who, jobID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "job bookmarked"})
}

func (h *BookmarkHandler) Remove(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	jobID, ok := pathID(c, "jobId")
	if !ok {
		return
	}
	if err := h.bookmarks.Remove(c.Request.Context(), who, jobID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, gin.H{"message": "bookmark removed"})
}
