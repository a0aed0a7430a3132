package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"freelancehub/internal/handler"
	"freelancehub/internal/service"
	"freelancehub/pkg/otel"
	"freelancehub/pkg/rbac"
)

// Pinger is checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Jobs          *handler.JobHandler
	Proposals     *handler.ProposalHandler
	Contracts     *handler.ContractHandler
	Notifications *handler.NotificationHandler
	Messages      *handler.MessageHandler
	Bookmarks     *handler.BookmarkHandler
	Admin         *handler.AdminHandler
}

type Options struct {
	CookieName     string
	MaxUploadBytes int64
}

func NewRouter(h Handlers, auth *service.AuthService, opts Options, ready []Pinger, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), RequestLogger(logger))
	var submitLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if opts.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = opts.MaxUploadBytes
		submitLimit = LimitBody(opts.MaxUploadBytes + multipartOverhead)
	}

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		for _, p := range ready {
			if err := p.Ping(ctx); err != nil {
				c.JSON(500, gin.H{"status": "not_ready", "error": err.Error()})
				return
			}
		}
		c.JSON(200, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMW := AuthMiddleware(auth, opts.CookieName)
	api := r.Group("/api")

	// Public
	api.POST("/auth/register", h.Auth.Register)
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/logout", h.Auth.Logout)
	api.POST("/auth/verify", h.Auth.Verify)
	api.GET("/auth/verify", h.Auth.Verify)

	// Protected
	protected := api.Group("/")
	protected.Use(authMW)
	{
		protected.GET("/users/me", h.Users.Me)
		protected.PUT("/users/me", h.Users.UpdateMe)
		protected.GET("/users/:id", h.Users.Get)

		protected.GET("/jobs", h.Jobs.Search)
		protected.POST("/jobs", h.Jobs.Create)
		protected.GET("/jobs/mine", h.Jobs.Mine)
		protected.GET("/jobs/:id", h.Jobs.Get)
		protected.PUT("/jobs/:id", h.Jobs.Update)
		protected.PATCH("/jobs/:id/status", h.Jobs.UpdateStatus)
		protected.DELETE("/jobs/:id", h.Jobs.Delete)
		protected.POST("/jobs/:id/apply", h.Jobs.Apply)
		protected.GET("/jobs/:id/applications", h.Jobs.Applications)

		protected.GET("/proposals/mine", h.Proposals.Mine)
		protected.GET("/proposals/:id", h.Proposals.Get)
		protected.PATCH("/proposals/:id/status", h.Proposals.UpdateStatus)

		protected.POST("/contracts/proposals/:proposalId", h.Contracts.Create)
		protected.GET("/contracts", h.Contracts.List)
		protected.GET("/contracts/:id", h.Contracts.Get)
		protected.POST("/contracts/:id/fund", h.Contracts.Fund)
		protected.POST("/contracts/:id/activate", h.Contracts.Activate)
		protected.POST("/contracts/:id/complete", h.Contracts.Complete)
		protected.POST("/contracts/:id/milestones", h.Contracts.AddMilestone)
		protected.POST("/contracts/:id/milestones/:milestoneId/submit", submitLimit, h.Contracts.Submit)
		protected.POST("/contracts/:id/milestones/:milestoneId/review", h.Contracts.Review)
		protected.POST("/contracts/:id/milestones/:milestoneId/release", h.Contracts.Release)
		protected.GET("/contracts/:id/milestones/:milestoneId/files/:fileId", h.Contracts.Download)

		protected.GET("/notifications", h.Notifications.List)
		protected.GET("/notifications/unread-count", h.Notifications.UnreadCount)
		protected.PATCH("/notifications/read-all", h.Notifications.MarkAllRead)
		protected.PATCH("/notifications/:id/read", h.Notifications.MarkRead)

		protected.POST("/messages", h.Messages.Send)
		protected.GET("/messages/conversations", h.Messages.Conversations)
		protected.GET("/messages/:userId", h.Messages.Conversation)

		protected.GET("/bookmarks", h.Bookmarks.List)
		protected.POST("/bookmarks/:jobId", h.Bookmarks.Add)
		protected.DELETE("/bookmarks/:jobId", h.Bookmarks.Remove)
	}

	admin := r.Group("/admin")
	admin.Use(authMW, RequirePermission(rbac.PermissionReplayOutbox))
	{
		admin.POST("/outbox/replay", h.Admin.ReplayOutboxEvent)
		admin.POST("/outbox/replay-failed", h.Admin.ReplayFailedEvents)
	}

	return r
}
