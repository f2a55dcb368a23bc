package promotion

import (
	"context"
	"strings"
	"time"

	"github.com/Zhima-Mochi/readify/internal/application"
	domain "github.com/Zhima-Mochi/readify/internal/domain/promotion"
	"github.com/Zhima-Mochi/readify/internal/pkg/objectid"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

type LogListInput struct {
	application.ListQuery
	Search        string
	PromotionID   string
	PromotionCode string
	Action        domain.Action
	PerformedBy   string
	From          *time.Time
	To            *time.Time
}

func (s *Service) ListPromotionLogs(ctx context.Context, actor application.Actor, in LogListInput) (_ paging.Result[*domain.Log], err error) {
	ctx, call := s.inst.Start(ctx, "promotion.list_logs", "ListPromotionLogs")
	defer call.End(&err)

	if !actor.IsAdmin() {
		return paging.Result[*domain.Log]{}, application.ErrForbidden
	}
	if in.Action != "" && !in.Action.Valid() {
		return paging.Result[*domain.Log]{}, application.NewValidation("invalid action")
	}
	if in.From != nil && in.To != nil && in.To.Before(*in.From) {
		return paging.Result[*domain.Log]{}, application.NewValidation("to must not be before from")
	}
	p := in.Params()
	rows, total, err := s.logs.List(ctx, domain.LogFilter{
		Search:        strings.TrimSpace(in.Search),
		PromotionID:   in.PromotionID,
		PromotionCode: domain.NormalizeCode(in.PromotionCode),
		Action:        in.Action,
		PerformedBy:   in.PerformedBy,
		From:          in.From,
		To:            in.To,
		Sort:          in.SortBy(domain.LogSortKeys, domain.LogSortCreatedAt),
		Paging:        p,
	})
	if err != nil {
		return paging.Result[*domain.Log]{}, application.WrapRepositoryError(err)
	}
	return paging.NewResult(rows, p, total), nil
}

func (s *Service) GetPromotionLog(ctx context.Context, actor application.Actor, id string) (_ *domain.Log, err error) {
	ctx, call := s.inst.Start(ctx, "promotion.get_log", "GetPromotionLog")
	defer call.End(&err)

	if !actor.IsAdmin() {
		return nil, application.ErrForbidden
	}
	if !objectid.Valid(id) {
		return nil, application.NewValidation("invalid log id")
	}
	l, err := s.logs.Get(ctx, id)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return l, nil
}
