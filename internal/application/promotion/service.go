// Package promotion manages discount codes and their audit log.
package promotion

import (
	"context"
	"strings"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/domain/account"
	domain "github.com/Zhima-Mochi/readify/internal/domain/promotion"
	"github.com/Zhima-Mochi/readify/internal/observability"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"

	"go.opentelemetry.io/otel/attribute"
)

const promotionService = "promotion-service"

type Service struct {
	promotions domain.Repository
	logs       domain.LogRepository
	accounts   account.Repository
	tx         application.TxRunner
	ids        application.IDGenerator
	clock      application.Clock
	inst       *application.Instrumentation
}

func NewService(promotions domain.Repository, logs domain.LogRepository, accounts account.Repository, tx application.TxRunner, ids application.IDGenerator, tel observability.Observability) *Service {
	return &Service{
		promotions: promotions,
		logs:       logs,
		accounts:   accounts,
		tx:         tx,
		ids:        ids,
		clock:      application.SystemClock,
		inst:       application.NewInstrumentation(promotionService, tel),
	}
}

func (s *Service) WithClock(c application.Clock) *Service {
	s.clock = c
	return s
}

// Preview is the result of trying a code against an order value.
type Preview struct {
	PromotionCode  string
	PromotionName  string
	DiscountType   domain.DiscountType
	DiscountValue  int64
	OrderValue     int64
	DiscountAmount int64
	FinalAmount    int64
	SavedAmount    int64
}

// ValidatePromotion runs the redemption checks without touching usage.
func (s *Service) ValidatePromotion(ctx context.Context, code, userID string, orderValue int64) (_ *domain.Promotion, err error) {
	ctx, call := s.inst.Start(ctx, "promotion.validate", "ValidatePromotion", attribute.String("promotion.code", code))
	defer call.End(&err)

	return s.validate(ctx, code, userID, orderValue)
}

func (s *Service) validate(ctx context.Context, code, userID string, orderValue int64) (*domain.Promotion, error) {
	if orderValue < 0 {
		return nil, application.NewValidation("orderValue must not be negative")
	}
	code = domain.NormalizeCode(code)
	if code == "" {
		return nil, domain.ErrCodeRequired
	}
	p, err := s.promotions.GetByCode(ctx, code)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if err := p.Validate(userID, orderValue, s.clock()); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyPromotion previews the discount a customer would get. Usage is only recorded at checkout.
func (s *Service) ApplyPromotion(ctx context.Context, actor application.Actor, code string, orderValue int64) (_ Preview, err error) {
	ctx, call := s.inst.Start(ctx, "promotion.apply", "ApplyPromotion",
		attribute.String("promotion.code", code),
		attribute.Int64("order.value", orderValue),
	)
	defer call.End(&err)

	if !actor.IsCustomer() {
		return Preview{}, application.ErrForbidden
	}
	a, err := s.accounts.Get(ctx, actor.UserID)
	if err != nil {
		return Preview{}, application.WrapRepositoryError(err)
	}
	if !a.IsActive() {
		return Preview{}, domain.ErrNoActiveAccount
	}
	p, err := s.validate(ctx, code, actor.UserID, orderValue)
	if err != nil {
		return Preview{}, err
	}
	discount := p.Discount(orderValue)
	return Preview{
		PromotionCode:  p.Code,
		PromotionName:  p.Name,
		DiscountType:   p.DiscountType,
		DiscountValue:  p.DiscountValue,
		OrderValue:     orderValue,
		DiscountAmount: discount,
		FinalAmount:    orderValue - discount,
		SavedAmount:    discount,
	}, nil
}

type CreateInput struct {
	Code        string
	Name        string
	Description string
	Terms       domain.Terms
	StartDate   time.Time
	EndDate     time.Time
	UsageLimit  int64
	Status      domain.Status
	Meta        domain.RequestMeta
}

func (s *Service) CreatePromotion(ctx context.Context, actor application.Actor, in CreateInput) (_ *domain.Promotion, err error) {
	ctx, call := s.inst.Start(ctx, "promotion.create", "CreatePromotion", attribute.String("promotion.code", in.Code))
	defer call.End(&err)

	if !actor.IsStaff() {
		return nil, application.ErrForbidden
	}
	p, err := domain.New(s.ids.NewID(), in.Code, strings.TrimSpace(in.Name), strings.TrimSpace(in.Description), in.Terms,
		in.StartDate.UTC(), in.EndDate.UTC(), in.UsageLimit, in.Status, actor.UserID)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.promotions.Insert(ctx, p); err != nil {
			return application.WrapRepositoryError(err)
		}
		entry := domain.NewLog(s.ids.NewID(), p, domain.ActionCreate, actor.UserID, in.Meta)
		entry.NewData = p.Snapshot()
		return application.WrapRepositoryError(s.logs.Insert(ctx, entry))
	})
	if err != nil {
		return nil, err
	}
	call.Field("promotion_id", p.ID)
	return p, nil
}

// UpdatePromotion edits a promotion. One that has run past its end date is flipped to EXPIRED
// and the edit is refused.
func (s *Service) UpdatePromotion(ctx context.Context, actor application.Actor, id string, patch domain.Patch, meta domain.RequestMeta) (_ *domain.Promotion, err error) {
	ctx, call := s.inst.Start(ctx, "promotion.update", "UpdatePromotion", attribute.String("promotion.id", id))
	defer call.End(&err)

	if !actor.IsStaff() {
		return nil, application.ErrForbidden
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	if p.ExpireIfEnded(now) {
		if err = s.promotions.Update(ctx, p); err != nil {
			return nil, application.WrapRepositoryError(err)
		}
		return nil, domain.ErrExpired
	}

	before := p.Snapshot()
	if err = p.Apply(patch, actor.UserID, now); err != nil {
		return nil, err
	}
	after := p.Snapshot()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.promotions.Update(ctx, p); err != nil {
			return application.WrapRepositoryError(err)
		}
		entry := domain.NewLog(s.ids.NewID(), p, domain.ActionUpdate, actor.UserID, meta)
		entry.OldData = before
		entry.NewData = after
		entry.Changes = domain.Diff(before, after)
		return application.WrapRepositoryError(s.logs.Insert(ctx, entry))
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) DeletePromotion(ctx context.Context, actor application.Actor, id string, meta domain.RequestMeta) (err error) {
	ctx, call := s.inst.Start(ctx, "promotion.delete", "DeletePromotion", attribute.String("promotion.id", id))
	defer call.End(&err)

	if !actor.IsStaff() {
		return application.ErrForbidden
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	before := p.Snapshot()
	if err = p.SoftDelete(actor.UserID); err != nil {
		return err
	}
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.promotions.Update(ctx, p); err != nil {
			return application.WrapRepositoryError(err)
		}
		entry := domain.NewLog(s.ids.NewID(), p, domain.ActionDelete, actor.UserID, meta)
		entry.OldData = before
		return application.WrapRepositoryError(s.logs.Insert(ctx, entry))
	})
}

func (s *Service) GetPromotion(ctx context.Context, actor application.Actor, id string) (_ *domain.Promotion, err error) {
	ctx, call := s.inst.Start(ctx, "promotion.get", "GetPromotion", attribute.String("promotion.id", id))
	defer call.End(&err)

	if !actor.IsStaff() {
		return nil, application.ErrForbidden
	}
	return s.load(ctx, id)
}

type ListInput struct {
	application.ListQuery
	Query        string
	Status       domain.Status
	DiscountType domain.DiscountType
	ApplyScope   string
}

// ListPromotions is open to every signed-in role.
func (s *Service) ListPromotions(ctx context.Context, actor application.Actor, in ListInput) (_ paging.Result[*domain.Promotion], err error) {
	ctx, call := s.inst.Start(ctx, "promotion.list", "ListPromotions")
	defer call.End(&err)

	if actor.UserID == "" || !actor.Role.Valid() {
		return paging.Result[*domain.Promotion]{}, application.ErrUnauthorized
	}
	if in.Status != "" && !in.Status.Valid() {
		return paging.Result[*domain.Promotion]{}, application.NewValidation("invalid promotion status")
	}
	if in.DiscountType != "" && !in.DiscountType.Valid() {
		return paging.Result[*domain.Promotion]{}, domain.ErrInvalidType
	}
	p := in.Params()
	rows, total, err := s.promotions.List(ctx, domain.ListFilter{
		Query:        strings.TrimSpace(in.Query),
		Status:       in.Status,
		DiscountType: in.DiscountType,
		ApplyScope:   in.ApplyScope,
		Sort:         in.SortBy(domain.SortKeys, domain.SortCreatedAt),
		Paging:       p,
	})
	if err != nil {
		return paging.Result[*domain.Promotion]{}, application.WrapRepositoryError(err)
	}
	return paging.NewResult(rows, p, total), nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.Promotion, error) {
	if !objectid.Valid(id) {
		return nil, application.NewValidation("invalid promotion id")
	}
	p, err := s.promotions.Get(ctx, id)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return p, nil
}
