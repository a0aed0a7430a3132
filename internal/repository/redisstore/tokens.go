// Package redisstore keeps short-lived auth state in redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"freelancehub/internal/repository"
)

const verifyKeyPrefix = "verify:"

type VerificationTokens struct {
	rdb redis.Cmdable
}

var _ repository.VerificationTokens = (*VerificationTokens)(nil)

func NewVerificationTokens(rdb redis.Cmdable) *VerificationTokens {
	return &VerificationTokens{rdb: rdb}
}

func (v *VerificationTokens) Issue(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	if err := v.rdb.Set(ctx, verifyKeyPrefix+token, userID, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store verification token: %w", err)
	}
	return token, nil
}

// Consume is atomic (GETDEL), so a token verifies at most once.
func (v *VerificationTokens) Consume(ctx context.Context, token string) (int64, error) {
	val, err := v.rdb.GetDel(ctx, verifyKeyPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read verification token: %w", err)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt verification token value %q: %w", val, err)
	}
	return id, nil
}
