package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zhima-Mochi/readify/internal/domain/book"
)

func TestRevokeSetsTTLUntilExpiry(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewTokenRevoker(db)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	mock.ExpectSet("readify:revoked:jti-1", "1", 10*time.Minute).SetVal("OK")
	require.NoError(t, r.Revoke(context.Background(), "jti-1", now.Add(10*time.Minute)))

	// already expired tokens are not stored
	require.NoError(t, r.Revoke(context.Background(), "jti-2", now.Add(-time.Second)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevoked(t *testing.T) {
	db, mock := redismock.NewClientMock()
	r := NewTokenRevoker(db)

	mock.ExpectExists("readify:revoked:a").SetVal(1)
	mock.ExpectExists("readify:revoked:b").SetVal(0)
	mock.ExpectExists("readify:revoked:c").SetErr(errors.New("down"))

	ok, err := r.Revoked(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Revoked(context.Background(), "b")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = r.Revoked(context.Background(), "c")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func sampleBook() *book.Book {
	return &book.Book{ID: "b1", Title: "Go in Action", Slug: "go-in-action", BasePrice: 120_000, Status: book.StatusActive}
}

func TestBookCacheMissLoadsAndStores(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewBookCache(db, time.Minute, nil)
	b := sampleBook()
	raw, err := json.Marshal(b)
	require.NoError(t, err)

	mock.ExpectGet("readify:book:slug:go-in-action").RedisNil()
	mock.ExpectSet("readify:book:slug:go-in-action", string(raw), time.Minute).SetVal("OK")

	var loads int32
	got, err := c.GetOrLoad(context.Background(), "go-in-action", func(context.Context) (*book.Book, error) {
		atomic.AddInt32(&loads, 1)
		return b, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Go in Action", got.Title)
	assert.Equal(t, int32(1), loads)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookCacheHitSkipsLoad(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewBookCache(db, time.Minute, nil)
	raw, err := json.Marshal(sampleBook())
	require.NoError(t, err)

	mock.ExpectGet("readify:book:slug:go-in-action").SetVal(string(raw))

	got, err := c.GetOrLoad(context.Background(), "go-in-action", func(context.Context) (*book.Book, error) {
		t.Fatal("load must not run on a hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "b1", got.ID)
	assert.Equal(t, int64(120_000), got.BasePrice)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookCacheLoadErrorIsNotCached(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewBookCache(db, time.Minute, nil)

	mock.ExpectGet("readify:book:slug:missing").RedisNil()

	_, err := c.GetOrLoad(context.Background(), "missing", func(context.Context) (*book.Book, error) {
		return nil, book.ErrNotFound
	})
	assert.ErrorIs(t, err, book.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookCacheFallsBackWhenRedisFails(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewBookCache(db, time.Minute, nil)
	b := sampleBook()
	raw, _ := json.Marshal(b)

	mock.ExpectGet("readify:book:slug:go-in-action").SetErr(errors.New("connection refused"))
	mock.ExpectSet("readify:book:slug:go-in-action", string(raw), time.Minute).SetErr(errors.New("connection refused"))

	got, err := c.GetOrLoad(context.Background(), "go-in-action", func(context.Context) (*book.Book, error) { return b, nil })
	require.NoError(t, err)
	assert.Equal(t, b, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidate(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewBookCache(db, 0, nil)

	mock.ExpectDel("readify:book:slug:a", "readify:book:slug:b").SetVal(2)
	require.NoError(t, c.Invalidate(context.Background(), "a", "", "b"))
	require.NoError(t, c.Invalidate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
