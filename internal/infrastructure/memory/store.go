// Package memory provides in-process repositories used by tests and the STORE=memory mode.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain/account"
	"github.com/Zhima-Mochi/readify/internal/domain/book"
	"github.com/Zhima-Mochi/readify/internal/domain/cart"
	"github.com/Zhima-Mochi/readify/internal/domain/category"
	"github.com/Zhima-Mochi/readify/internal/domain/inventory"
	"github.com/Zhima-Mochi/readify/internal/domain/media"
	"github.com/Zhima-Mochi/readify/internal/domain/notification"
	"github.com/Zhima-Mochi/readify/internal/domain/order"
	"github.com/Zhima-Mochi/readify/internal/domain/otp"
	"github.com/Zhima-Mochi/readify/internal/domain/promotion"
	"github.com/Zhima-Mochi/readify/internal/domain/review"
	"github.com/Zhima-Mochi/readify/internal/domain/wishlist"
)

// table stores cloned rows. Rows are replaced, never mutated, so a shallow map copy is a consistent snapshot.
type table[T any] struct {
	rows  map[string]*T
	clone func(*T) *T
}

func newTable[T any](clone func(*T) *T) *table[T] {
	return &table[T]{rows: make(map[string]*T), clone: clone}
}

func (t *table[T]) get(id string) (*T, bool) {
	v, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	return t.clone(v), true
}

func (t *table[T]) has(id string) bool {
	_, ok := t.rows[id]
	return ok
}

func (t *table[T]) put(id string, v *T) {
	t.rows[id] = t.clone(v)
}

func (t *table[T]) remove(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	return true
}

func (t *table[T]) find(pred func(*T) bool) []*T {
	out := make([]*T, 0)
	for _, v := range t.rows {
		if pred == nil || pred(v) {
			out = append(out, t.clone(v))
		}
	}
	return out
}

func (t *table[T]) first(pred func(*T) bool) (*T, bool) {
	for _, v := range t.rows {
		if pred(v) {
			return t.clone(v), true
		}
	}
	return nil, false
}

func (t *table[T]) count(pred func(*T) bool) int64 {
	var n int64
	for _, v := range t.rows {
		if pred == nil || pred(v) {
			n++
		}
	}
	return n
}

func (t *table[T]) snap() func() {
	saved := make(map[string]*T, len(t.rows))
	for k, v := range t.rows {
		saved[k] = v
	}
	return func() { t.rows = saved }
}

type snapshotter interface{ snap() func() }

// Store is a single in-memory database shared by all memory repositories.
// A transaction holds mu for its whole run, so plain writes wait for it instead of racing its rollback.
type Store struct {
	mu sync.RWMutex

	accounts      *table[account.Account]
	pending       *table[account.PendingRegistration]
	otps          *table[otp.Record]
	categories    *table[category.Category]
	books         *table[book.Book]
	media         *table[media.Media]
	stocks        *table[inventory.Stock]
	carts         *table[cart.Item]
	wishlists     *table[wishlist.Item]
	orders        *table[order.Order]
	counters      *table[int64]
	promotions    *table[promotion.Promotion]
	promotionLogs *table[promotion.Log]
	notifications *table[notification.Notification]
	reads         *table[notification.Read]
	reviews       *table[review.Review]
}

func NewStore() *Store {
	return &Store{
		accounts:      newTable((*account.Account).Clone),
		pending:       newTable(clonePending),
		otps:          newTable((*otp.Record).Clone),
		categories:    newTable(cloneValue[category.Category]),
		books:         newTable((*book.Book).Clone),
		media:         newTable((*media.Media).Clone),
		stocks:        newTable((*inventory.Stock).Clone),
		carts:         newTable((*cart.Item).Clone),
		wishlists:     newTable((*wishlist.Item).Clone),
		orders:        newTable((*order.Order).Clone),
		counters:      newTable(cloneValue[int64]),
		promotions:    newTable((*promotion.Promotion).Clone),
		promotionLogs: newTable(cloneLog),
		notifications: newTable((*notification.Notification).Clone),
		reads:         newTable(cloneValue[notification.Read]),
		reviews:       newTable((*review.Review).Clone),
	}
}

func (s *Store) tables() []snapshotter {
	return []snapshotter{
		s.accounts, s.pending, s.otps, s.categories, s.books, s.media, s.stocks, s.carts, s.wishlists,
		s.orders, s.counters, s.promotions, s.promotionLogs, s.notifications, s.reads, s.reviews,
	}
}

type txKey struct{}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the write lock unless ctx belongs to a transaction on s, which already holds it.
func (s *Store) lock(ctx context.Context) (unlock func()) {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock(ctx context.Context) (unlock func()) {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// WithinTx runs fn under the store lock and restores every table if fn fails.
// Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	restores := make([]func(), 0, 16)
	for _, t := range s.tables() {
		restores = append(restores, t.snap())
	}
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		for _, r := range restores {
			r()
		}
		return err
	}
	return nil
}

func cloneValue[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func clonePending(p *account.PendingRegistration) *account.PendingRegistration {
	if p == nil {
		return nil
	}
	c := *p
	if p.Profile.DateOfBirth != nil {
		d := *p.Profile.DateOfBirth
		c.Profile.DateOfBirth = &d
	}
	return &c
}

func cloneLog(l *promotion.Log) *promotion.Log {
	if l == nil {
		return nil
	}
	c := *l
	c.OldData = cloneMap(l.OldData)
	c.NewData = cloneMap(l.NewData)
	if l.Changes != nil {
		c.Changes = make(map[string]promotion.Change, len(l.Changes))
		for k, v := range l.Changes {
			c.Changes[k] = v
		}
	}
	return &c
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// sortBy orders rows with less, then by id ascending.
func sortBy[T any](rows []*T, id func(*T) string, less func(a, b *T) int) {
	sort.SliceStable(rows, func(i, j int) bool {
		if c := less(rows[i], rows[j]); c != 0 {
			return c < 0
		}
		return id(rows[i]) < id(rows[j])
	})
}

// dir flips a comparison for descending order.
func dir(c int, desc bool) int {
	if desc {
		return -c
	}
	return c
}

func inSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// compareTimePtr orders nil before any time.
func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return a.Compare(*b)
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
