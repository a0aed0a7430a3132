package util

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper remembers which (handler, key) pairs were already processed, so redelivered
// events are skipped across worker replicas.
type Deduper struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewDeduper creates a deduper; logger may be nil.
func NewDeduper(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *Deduper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Deduper{rdb: rdb, ttl: ttl, logger: logger}
}

func dedupKey(handler, key string) string {
	return "dedup:" + handler + ":" + key
}

// AcquireOnce reports whether this is the first time handler sees key.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, key string) bool {
	ok, err := d.rdb.SetNX(ctx, dedupKey(handler, key), time.Now().Unix(), d.ttl).Result()
	if err != nil {
		// redis 不可用时不阻止处理，数据库唯一约束兜底
		d.logger.Warn("Dedup check failed, processing anyway",
			zap.String("handler", handler),
			zap.String("key", key),
			zap.Error(err),
		)
		return true
	}
	if !ok {
		d.logger.Info("Skipped duplicate event",
			zap.String("handler", handler),
			zap.String("key", key),
		)
	}
	return ok
}

// Release forgets key so a failed attempt can be processed again.
func (d *Deduper) Release(ctx context.Context, handler, key string) {
	if err := d.rdb.Del(ctx, dedupKey(handler, key)).Err(); err != nil {
		d.logger.Warn("Failed to release dedup key", zap.String("key", key), zap.Error(err))
	}
}
