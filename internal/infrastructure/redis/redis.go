// Package redis holds the Redis backed token blacklist and book cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/Zhima-Mochi/readify/internal/domain/book"
	"github.com/Zhima-Mochi/readify/internal/observability"
)

const (
	revokedPrefix  = "readify:revoked:"
	bookSlugPrefix = "readify:book:slug:"

	DefaultBookTTL = 5 * time.Minute
)

func NewClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password})
}

// TokenRevoker keeps revoked token ids until the token would have expired anyway.
type TokenRevoker struct {
	rdb *redis.Client
	now func() time.Time
}

func NewTokenRevoker(rdb *redis.Client) *TokenRevoker {
	return &TokenRevoker{rdb: rdb, now: time.Now}
}

func (r *TokenRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.rdb.Set(ctx, revokedPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis: revoke token: %w", err)
	}
	return nil
}

func (r *TokenRevoker) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.rdb.Exists(ctx, revokedPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("redis: check token: %w", err)
	}
	return n > 0, nil
}

// BookCache is a cache-aside store for the public book detail page.
// Concurrent misses on one slug share a single load.
type BookCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	group  singleflight.Group
	logger observability.Logger
}

func NewBookCache(rdb *redis.Client, ttl time.Duration, logger observability.Logger) *BookCache {
	if ttl <= 0 {
		ttl = DefaultBookTTL
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &BookCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *BookCache) GetOrLoad(ctx context.Context, slug string, load func(ctx context.Context) (*book.Book, error)) (*book.Book, error) {
	key := bookSlugPrefix + slug
	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var b book.Book
		if jerr := json.Unmarshal(raw, &b); jerr == nil {
			return &b, nil
		}
		c.logger.Warn("book_cache_corrupt", observability.F("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("book_cache_get_failed", observability.F("key", key), observability.F("error", err.Error()))
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		b, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(b); err == nil {
			if err := c.rdb.Set(ctx, key, string(raw), c.ttl).Err(); err != nil {
				c.logger.Warn("book_cache_set_failed", observability.F("key", key), observability.F("error", err.Error()))
			}
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*book.Book), nil
}

func (c *BookCache) Invalidate(ctx context.Context, slugs ...string) error {
	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s != "" {
			keys = append(keys, bookSlugPrefix+s)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate books: %w", err)
	}
	return nil
}
