package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"freelancehub/internal/service"
	"freelancehub/pkg/logger"
	"freelancehub/pkg/rbac"
)

const callerKey = rbac.ContextKey

// SetCaller stores the authenticated caller on the request context.
func SetCaller(c *gin.Context, caller rbac.Caller) {
	c.Set(callerKey, caller)
}

// CallerFrom returns the caller set by the auth middleware.
func CallerFrom(c *gin.Context) (rbac.Caller, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return rbac.Caller{}, false
	}
	caller, ok := v.(rbac.Caller)
	return caller, ok
}

// caller 统一读取调用者，未认证时直接写 401
func caller(c *gin.Context) (rbac.Caller, bool) {
	who, ok := CallerFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "user not authenticated")
		return rbac.Caller{}, false
	}
	return who, true
}

func success(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(status, body)
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "message": http.StatusText(status), "error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrPrecondition):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError converts a service error into the JSON envelope. Anything
// unclassified is logged and reported as a 500 without details.
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithTrace(c.Request.Context(), log).Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		fail(c, status, "internal server error")
		return
	}
	logger.WithTrace(c.Request.Context(), log).Warn("Request rejected",
		zap.String("path", c.FullPath()),
		zap.Int("status", status),
		zap.String("reason", err.Error()),
	)
	fail(c, status, err.Error())
}

func pagination(p service.Page, totalKey string) gin.H {
	return gin.H{
		"currentPage": p.Number,
		"totalPages":  p.TotalPages(),
		totalKey:      p.Total,
		"hasNextPage": p.HasNext(),
		"hasPrevPage": p.HasPrev(),
	}
}

// pathID parses a positive int64 path parameter, writing 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
