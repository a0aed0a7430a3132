package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"freelancehub/internal/repository"
)

type tokenEntry struct {
	userID    int64
	expiresAt time.Time
}

// VerificationTokens keeps tokens in a map; used when redis is not configured.
type VerificationTokens struct {
	mu     sync.Mutex
	tokens map[string]tokenEntry
	now    func() time.Time
}

var _ repository.VerificationTokens = (*VerificationTokens)(nil)

func NewVerificationTokens() *VerificationTokens {
	return &VerificationTokens{tokens: make(map[string]tokenEntry), now: time.Now}
}

func (v *VerificationTokens) Issue(_ context.Context, userID int64, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens[token] = tokenEntry{userID: userID, expiresAt: v.now().Add(ttl)}
	return token, nil
}

func (v *VerificationTokens) Consume(_ context.Context, token string) (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	entry, ok := v.tokens[token]
	if !ok {
		return 0, repository.ErrNotFound
	}
	delete(v.tokens, token)
	if v.now().After(entry.expiresAt) {
		return 0, repository.ErrNotFound
	}
	return entry.userID, nil
}
