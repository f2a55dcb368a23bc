package memory

import (
	"context"
	"strings"

	"github.com/Zhima-Mochi/readify/internal/domain/promotion"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
	"github.com/Zhima-Mochi/readify/internal/pkg/textutil"
)

type PromotionRepository struct{ s *Store }

func (s *Store) Promotions() *PromotionRepository { return &PromotionRepository{s: s} }

func (r *PromotionRepository) Insert(ctx context.Context, p *promotion.Promotion) error {
	defer r.s.lock(ctx)()
	if _, ok := r.s.promotions.first(func(x *promotion.Promotion) bool { return x.Code == p.Code }); ok {
		return promotion.ErrCodeExists
	}
	r.s.promotions.put(p.ID, p)
	return nil
}

func (r *PromotionRepository) Get(ctx context.Context, id string) (*promotion.Promotion, error) {
	defer r.s.rlock(ctx)()
	p, ok := r.s.promotions.get(id)
	if !ok || p.IsDeleted {
		return nil, promotion.ErrNotFound
	}
	return p, nil
}

func (r *PromotionRepository) GetByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	defer r.s.rlock(ctx)()
	p, ok := r.s.promotions.first(func(x *promotion.Promotion) bool { return x.Code == code && !x.IsDeleted })
	if !ok {
		return nil, promotion.ErrNotFound
	}
	return p, nil
}

func (r *PromotionRepository) Update(ctx context.Context, p *promotion.Promotion) error {
	defer r.s.lock(ctx)()
	if !r.s.promotions.has(p.ID) {
		return promotion.ErrNotFound
	}
	r.s.promotions.put(p.ID, p)
	return nil
}

func (r *PromotionRepository) List(ctx context.Context, f promotion.ListFilter) ([]*promotion.Promotion, int64, error) {
	unlock := r.s.rlock(ctx)
	rows := r.s.promotions.find(func(p *promotion.Promotion) bool {
		switch {
		case p.IsDeleted:
			return false
		case f.Status != "" && p.Status != f.Status:
			return false
		case f.DiscountType != "" && p.DiscountType != f.DiscountType:
			return false
		case f.ApplyScope != "" && p.ApplyScope != f.ApplyScope:
			return false
		}
		return f.Query == "" || textutil.ContainsFold(p.Code, f.Query) || textutil.ContainsFold(p.Name, f.Query)
	})
	unlock()

	sortBy(rows, func(p *promotion.Promotion) string { return p.ID }, func(a, b *promotion.Promotion) int {
		var c int
		switch f.Sort.Field {
		case promotion.SortStartDate:
			c = a.StartDate.Compare(b.StartDate)
		case promotion.SortEndDate:
			c = a.EndDate.Compare(b.EndDate)
		case promotion.SortDiscountValue:
			c = compareInt64(a.DiscountValue, b.DiscountValue)
		case promotion.SortUsageLimit:
			c = compareInt64(a.UsageLimit, b.UsageLimit)
		case promotion.SortUsedCount:
			c = compareInt64(a.UsedCount, b.UsedCount)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		return dir(c, f.Sort.Desc)
	})
	return paging.Window(rows, f.Paging), int64(len(rows)), nil
}

func (r *PromotionRepository) Redeem(ctx context.Context, id, userID string) error {
	defer r.s.lock(ctx)()
	p, ok := r.s.promotions.get(id)
	if !ok || p.IsDeleted {
		return promotion.ErrNotFound
	}
	if p.UsedBy(userID) {
		return promotion.ErrAlreadyUsed
	}
	if p.LimitReached() {
		return promotion.ErrUsageLimit
	}
	p.UsedCount++
	p.UsedByUsers = append(p.UsedByUsers, userID)
	r.s.promotions.put(id, p)
	return nil
}

func (r *PromotionRepository) Release(ctx context.Context, id, userID string) error {
	defer r.s.lock(ctx)()
	p, ok := r.s.promotions.get(id)
	if !ok {
		return promotion.ErrNotFound
	}
	if !p.UsedBy(userID) {
		return nil
	}
	kept := make([]string, 0, len(p.UsedByUsers))
	for _, u := range p.UsedByUsers {
		if u != userID {
			kept = append(kept, u)
		}
	}
	p.UsedByUsers = kept
	if p.UsedCount > 0 {
		p.UsedCount--
	}
	r.s.promotions.put(id, p)
	return nil
}

type PromotionLogRepository struct{ s *Store }

func (s *Store) PromotionLogs() *PromotionLogRepository { return &PromotionLogRepository{s: s} }

func (r *PromotionLogRepository) Insert(ctx context.Context, l *promotion.Log) error {
	defer r.s.lock(ctx)()
	r.s.promotionLogs.put(l.ID, l)
	return nil
}

func (r *PromotionLogRepository) Get(ctx context.Context, id string) (*promotion.Log, error) {
	defer r.s.rlock(ctx)()
	l, ok := r.s.promotionLogs.get(id)
	if !ok {
		return nil, promotion.ErrLogNotFound
	}
	return l, nil
}

func (r *PromotionLogRepository) List(ctx context.Context, f promotion.LogFilter) ([]*promotion.Log, int64, error) {
	unlock := r.s.rlock(ctx)
	rows := r.s.promotionLogs.find(func(l *promotion.Log) bool {
		switch {
		case f.PromotionID != "" && l.PromotionID != f.PromotionID:
			return false
		case f.PromotionCode != "" && !textutil.ContainsFold(l.PromotionCode, f.PromotionCode):
			return false
		case f.Action != "" && l.Action != f.Action:
			return false
		case f.PerformedBy != "" && l.PerformedBy != f.PerformedBy:
			return false
		case f.From != nil && l.CreatedAt.Before(*f.From):
			return false
		case f.To != nil && l.CreatedAt.After(*f.To):
			return false
		}
		if f.Search == "" {
			return true
		}
		return textutil.ContainsFold(l.PromotionCode, f.Search) || textutil.ContainsFold(l.PromotionName, f.Search) ||
			textutil.ContainsFold(l.Note, f.Search)
	})
	unlock()

	sortBy(rows, func(l *promotion.Log) string { return l.ID }, func(a, b *promotion.Log) int {
		var c int
		switch f.Sort.Field {
		case promotion.LogSortAction:
			c = strings.Compare(string(a.Action), string(b.Action))
		case promotion.LogSortCode:
			c = strings.Compare(a.PromotionCode, b.PromotionCode)
		default:
			c = a.CreatedAt.Compare(b.CreatedAt)
		}
		return dir(c, f.Sort.Desc)
	})
	return paging.Window(rows, f.Paging), int64(len(rows)), nil
}
