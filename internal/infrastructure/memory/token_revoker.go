package memory

import (
	"context"
	"sync"
	"time"
)

// TokenRevoker keeps revoked token ids in process. Used when Redis is not configured.
type TokenRevoker struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewTokenRevoker() *TokenRevoker {
	return &TokenRevoker{until: make(map[string]time.Time), now: time.Now}
}

func (r *TokenRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, exp := range r.until {
		if !now.Before(exp) {
			delete(r.until, id)
		}
	}
	if until.After(now) {
		r.until[tokenID] = until
	}
	return nil
}

func (r *TokenRevoker) Revoked(ctx context.Context, tokenID string) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	exp, ok := r.until[tokenID]
	return ok && r.now().Before(exp), nil
}
