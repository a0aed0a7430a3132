package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"freelancehub/internal/config"
	"freelancehub/internal/mqhandler"
	"freelancehub/internal/repository/postgres"
	"freelancehub/pkg/db"
	"freelancehub/pkg/logger"
	"freelancehub/pkg/mq"
	"freelancehub/pkg/otel"
	redisclient "freelancehub/pkg/redis"
	"freelancehub/pkg/util"
)

// worker 消费领域事件并写入站内通知，只支持 postgres + rabbitmq
func main() {
	cfg := config.Load()

	log := logger.New(cfg.ServiceName + "-worker")
	defer log.Sync()

	log.Info("Starting freelancehub worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("queue", cfg.Worker.Queue),
	)
	if cfg.MQ.URL == "" {
		log.Fatal("Worker needs mq.url; without a broker the api delivers notifications in process")
	}

	shutdownOtel, err := otel.Init(otel.Config{
		ServiceName:    cfg.ServiceName + "-worker",
		ServiceVersion: "dev",
		Endpoint:       cfg.Otel.Endpoint,
		Enabled:        cfg.Otel.Enabled,
		SampleRatio:    cfg.Otel.SampleRatio,
	}, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownOtel()

	// DB
	log.Info("Initializing database connection...")
	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer pool.Close()
	if err := postgres.Migrate(context.Background(), pool, log); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}
	store := postgres.New(pool, log)
	log.Info("Database connection established successfully")

	// Redis: 去重 + 重试计数
	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init redis", zap.Error(err))
	}
	defer rdb.Close()
	deduper := util.NewDeduper(rdb, cfg.Worker.DedupTTL, log)
	retries := util.NewRetryCounter(rdb, time.Hour)

	router := mq.NewRouter(log)
	mqhandler.RegisterHandlers(router,
		mqhandler.NewNotificationHandler(store.Notifications(), deduper, log),
		mqhandler.NewUserRegisteredHandler(strings.TrimRight(cfg.Server.PublicURL, "/")+"/api/auth/verify", log),
	)

	log.Info("Initializing MQ consumer...",
		zap.String("queue", cfg.Worker.Queue),
		zap.Strings("routing_keys", router.Types()),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Worker.Queue, log, router.Types()...)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(router.Handle)
	consumer.WithRetries(retries, cfg.Worker.MaxRetries)

	go func() {
		log.Info("Starting notification consumer...")
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Notification consumer failed", zap.Error(err))
		}
	}()

	// HTTP Server (health + metrics)
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		if !consumer.IsConnected() {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "not_ready", "error": "mq disconnected"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    ":8081",
		Handler: engine,
	}
	go func() {
		log.Info("HTTP server starting on :8081")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("freelancehub worker is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down freelancehub worker gracefully...")
	consumer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("freelancehub worker shutdown complete")
}
