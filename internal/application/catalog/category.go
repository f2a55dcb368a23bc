package catalog

import (
	"context"

	"github.com/Zhima-Mochi/readify/internal/application"
	"github.com/Zhima-Mochi/readify/internal/domain/category"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

func (s *Service) CreateCategory(ctx context.Context, actor application.Actor, name, description string) (_ *category.Category, err error) {
	ctx, call := s.inst.Start(ctx, "catalog.create_category", "CreateCategory")
	defer call.End(&err)

	if err = requireStaff(actor); err != nil {
		return nil, err
	}
	c, err := category.New(s.ids.NewID(), name, description)
	if err != nil {
		return nil, err
	}
	if err = s.checkCategoryName(ctx, c.Name, ""); err != nil {
		return nil, err
	}
	if err = s.categories.Insert(ctx, c); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return c, nil
}

func (s *Service) checkCategoryName(ctx context.Context, name, excludeID string) error {
	taken, err := s.categories.NameTaken(ctx, name, excludeID)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	if taken {
		return category.ErrNameExists
	}
	return nil
}

type ListCategoriesInput struct {
	application.ListQuery
	Query string
}

func (s *Service) ListCategories(ctx context.Context, in ListCategoriesInput) (_ paging.Result[*category.Category], err error) {
	ctx, call := s.inst.Start(ctx, "catalog.list_categories", "ListCategories")
	defer call.End(&err)

	p := in.Params()
	rows, total, err := s.categories.List(ctx, category.ListFilter{
		Query:  in.Query,
		Sort:   in.SortBy(category.SortKeys, category.SortCreatedAt),
		Paging: p,
	})
	if err != nil {
		return paging.Result[*category.Category]{}, application.WrapRepositoryError(err)
	}
	return paging.NewResult(rows, p, total), nil
}

func (s *Service) GetCategory(ctx context.Context, id string) (_ *category.Category, err error) {
	ctx, call := s.inst.Start(ctx, "catalog.get_category", "GetCategory")
	defer call.End(&err)

	c, err := s.categories.Get(ctx, id)
	return c, application.WrapRepositoryError(err)
}

type UpdateCategoryInput struct {
	Name        *string
	Description *string
}

func (s *Service) UpdateCategory(ctx context.Context, actor application.Actor, id string, in UpdateCategoryInput) (_ *category.Category, err error) {
	ctx, call := s.inst.Start(ctx, "catalog.update_category", "UpdateCategory")
	defer call.End(&err)

	if err = requireStaff(actor); err != nil {
		return nil, err
	}
	c, err := s.categories.Get(ctx, id)
	if err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	if in.Name != nil {
		if err = c.Rename(*in.Name); err != nil {
			return nil, err
		}
		if err = s.checkCategoryName(ctx, c.Name, c.ID); err != nil {
			return nil, err
		}
	}
	if in.Description != nil {
		c.Describe(*in.Description)
	}
	if err = s.categories.Update(ctx, c); err != nil {
		return nil, application.WrapRepositoryError(err)
	}
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, actor application.Actor, id string) (err error) {
	ctx, call := s.inst.Start(ctx, "catalog.delete_category", "DeleteCategory")
	defer call.End(&err)

	if err = requireStaff(actor); err != nil {
		return err
	}
	c, err := s.categories.Get(ctx, id)
	if err != nil {
		return application.WrapRepositoryError(err)
	}
	if err = c.SoftDelete(); err != nil {
		return err
	}
	return application.WrapRepositoryError(s.categories.Update(ctx, c))
}
