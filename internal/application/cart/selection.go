package cart

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/application"
	domcart "github.com/Zhima-Mochi/readify/internal/domain/cart"

	"go.opentelemetry.io/otel/attribute"
)

// ToggleSelect flips the selection flag of one line.
func (s *Service) ToggleSelect(ctx context.Context, actor application.Actor, bookID string) (_ *domcart.Item, err error) {
	ctx, call := s.inst.Start(ctx, "cart.toggle_select", "ToggleSelect", attribute.String("book.id", bookID))
	defer call.End(&err)

	return s.updateSelection(ctx, actor, bookID, func(it *domcart.Item) { it.Select(!it.IsSelected) })
}

func (s *Service) SetSelection(ctx context.Context, actor application.Actor, bookID string, selected bool) (_ *domcart.Item, err error) {
	ctx, call := s.inst.Start(ctx, "cart.set_selection", "SetSelection",
		attribute.String("book.id", bookID),
		attribute.Bool("cart.selected", selected),
	)
	defer call.End(&err)

	return s.updateSelection(ctx, actor, bookID, func(it *domcart.Item) { it.Select(selected) })
}

func (s *Service) updateSelection(ctx context.Context, actor application.Actor, bookID string, fn func(*domcart.Item)) (*domcart.Item, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if err := checkBookID(bookID); err != nil {
		return nil, err
	}
	it, err := s.carts.Get(ctx, actor.UserID, bookID)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	fn(it)
	if err := s.carts.Update(ctx, it); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return it, nil
}

func (s *Service) SelectAll(ctx context.Context, actor application.Actor) (_ int64, err error) {
	ctx, call := s.inst.Start(ctx, "cart.select_all", "SelectAll")
	defer call.End(&err)

	return s.selectAll(ctx, call, actor, true)
}

func (s *Service) DeselectAll(ctx context.Context, actor application.Actor) (_ int64, err error) {
	ctx, call := s.inst.Start(ctx, "cart.deselect_all", "DeselectAll")
	defer call.End(&err)

	return s.selectAll(ctx, call, actor, false)
}

func (s *Service) selectAll(ctx context.Context, call *application.Call, actor application.Actor, selected bool) (int64, error) {
	if err := requireUser(actor); err != nil {
		return 0, err
	}
	n, err := s.carts.SetSelectionAll(ctx, actor.UserID, selected)
	if err != nil {
		return 0, application.WrapRepositoryError(err)
	}
	call.Field("changed", n)
	return n, nil
}
