package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"freelancehub/internal/config"
	"freelancehub/internal/handler"
	"freelancehub/internal/httpserver"
	"freelancehub/internal/mqhandler"
	"freelancehub/internal/repository"
	"freelancehub/internal/repository/memory"
	"freelancehub/internal/repository/postgres"
	"freelancehub/internal/repository/redisstore"
	"freelancehub/internal/service"
	"freelancehub/internal/storage"
	"freelancehub/pkg/db"
	"freelancehub/pkg/logger"
	"freelancehub/pkg/mq"
	"freelancehub/pkg/otel"
	"freelancehub/pkg/outbox"
	redisclient "freelancehub/pkg/redis"
)

var version = "dev"

type redisPinger struct{ rdb *goredis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

type connPinger struct {
	name      string
	connected func() bool
}

func (p connPinger) Ping(context.Context) error {
	if !p.connected() {
		return fmt.Errorf("%s is not connected", p.name)
	}
	return nil
}

func main() {
	cfg := config.Load()

	log := logger.New(cfg.ServiceName)
	defer log.Sync()

	log.Info("Starting freelancehub api...",
		zap.String("version", version),
		zap.String("store", cfg.Store.Driver),
		zap.String("storage", cfg.Storage.Driver),
		zap.Bool("broker", cfg.MQ.URL != ""),
	)

	shutdownOtel, err := otel.Init(otel.Config{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Otel.Endpoint,
		Enabled:        cfg.Otel.Enabled,
		SampleRatio:    cfg.Otel.SampleRatio,
	}, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}
	defer shutdownOtel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		store  repository.Store
		events outbox.Store
		ready  []httpserver.Pinger
	)

	// Store
	switch cfg.Store.Driver {
	case "memory":
		log.Warn("Using in-memory store, data is lost on restart")
		mem := memory.New()
		store, events = mem, mem
		ready = append(ready, mem)
	case "postgres":
		log.Info("Initializing database connection...")
		pool, err := db.NewConnection(cfg.DB, log)
		if err != nil {
			log.Fatal("Failed to init DB", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool, log); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
		pg := postgres.New(pool, log)
		store, events = pg, pg.OutboxStore()
		ready = append(ready, pg)
		log.Info("Database connection established successfully")
	default:
		log.Fatal("Unknown store driver", zap.String("driver", cfg.Store.Driver))
	}

	// Verification tokens live in redis when it is configured
	var tokens repository.VerificationTokens = memory.NewVerificationTokens()
	if cfg.Redis.Addr != "" {
		rdb, err := redisclient.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to init redis", zap.Error(err))
		}
		defer rdb.Close()
		tokens = redisstore.NewVerificationTokens(rdb)
		ready = append(ready, redisPinger{rdb})
	}

	files, err := storage.NewFromConfig(cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to init file storage", zap.Error(err))
	}

	// 有 broker 时发布到 RabbitMQ，否则在进程内直接投递给 handler
	var publisher outbox.Publisher
	if cfg.MQ.URL != "" {
		p, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		defer p.Close()
		publisher = p
		ready = append(ready, connPinger{name: "rabbitmq", connected: p.IsConnected})
	} else {
		log.Info("No MQ url configured, delivering events in process")
		router := mq.NewRouter(log)
		mqhandler.RegisterHandlers(router,
			mqhandler.NewNotificationHandler(store.Notifications(), nil, log),
			mqhandler.NewUserRegisteredHandler(verifyURL(cfg), log),
		)
		publisher = mq.NewLocalPublisher(router.Handle)
	}

	dispatcher := outbox.NewDispatcher(events, publisher, log).
		WithMaxRetries(cfg.Outbox.MaxRetries).
		WithInterval(cfg.Outbox.Interval).
		WithBatchSize(cfg.Outbox.BatchSize)
	go dispatcher.Start(ctx)

	// Services
	auth := service.NewAuthService(store, tokens, cfg.JWT, log)
	proposals := service.NewProposalService(store, log)

	// Handlers
	h := httpserver.Handlers{
		Auth:          handler.NewAuthHandler(auth, cfg.JWT, log),
		Users:         handler.NewUserHandler(service.NewUserService(store, log), log),
		Jobs:          handler.NewJobHandler(service.NewJobService(store, log), proposals, log),
		Proposals:     handler.NewProposalHandler(proposals, log),
		Contracts:     handler.NewContractHandler(service.NewContractService(store, files, log), log),
		Notifications: handler.NewNotificationHandler(service.NewNotificationService(store, log), log),
		Messages:      handler.NewMessageHandler(service.NewMessageService(store, log), log),
		Bookmarks:     handler.NewBookmarkHandler(service.NewBookmarkService(store, log), log),
		Admin:         handler.NewAdminHandler(outbox.NewReplayService(events, publisher, log).WithDispatcher(dispatcher), log),
	}

	router := httpserver.NewRouter(h, auth, httpserver.Options{
		CookieName:     cfg.JWT.CookieName,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
	}, ready, log)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("freelancehub api is fully initialized and running")

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down freelancehub api gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// 停止 outbox dispatcher
	cancel()

	log.Info("freelancehub api shutdown complete")
}

func verifyURL(cfg *config.Config) string {
	return strings.TrimRight(cfg.Server.PublicURL, "/") + "/api/auth/verify"
}
