package category

import (
	"context"
	"strings"
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
	"github.com/Zhima-Mochi/readify/internal/pkg/paging"
)

var (
	ErrNotFound      = domain.NewError(domain.ErrNotFound, "CATEGORY_NOT_FOUND", "category: not found")
	ErrNameRequired  = domain.NewError(domain.ErrInvalid, "CATEGORY_NAME_REQUIRED", "category: name is required")
	ErrNameExists    = domain.NewError(domain.ErrConflict, "CATEGORY_NAME_EXISTS", "category: name already exists")
	ErrAlreadyDelete = domain.NewError(domain.ErrInvalid, "CATEGORY_ALREADY_DELETED", "category: already deleted")
)

type Category struct {
	ID          string
	Name        string
	Description string
	IsDeleted   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(id, name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	now := time.Now().UTC()
	return &Category{
		ID:          id,
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (c *Category) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	c.Name = name
	c.touch()
	return nil
}

func (c *Category) Describe(description string) {
	c.Description = strings.TrimSpace(description)
	c.touch()
}

func (c *Category) SoftDelete() error {
	if c.IsDeleted {
		return ErrAlreadyDelete
	}
	c.IsDeleted = true
	c.touch()
	return nil
}

func (c *Category) touch() { c.UpdatedAt = time.Now().UTC() }

const (
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
	SortName      = "name"
)

var SortKeys = []string{SortCreatedAt, SortUpdatedAt, SortName}

type ListFilter struct {
	Query  string
	Sort   paging.Sort
	Paging paging.Params
}

type Repository interface {
	Insert(ctx context.Context, c *Category) error
	Get(ctx context.Context, id string) (*Category, error)
	Update(ctx context.Context, c *Category) error
	// NameTaken compares case-insensitively among non-deleted categories.
	NameTaken(ctx context.Context, name, excludeID string) (bool, error)
	List(ctx context.Context, f ListFilter) ([]*Category, int64, error)
	CountActive(ctx context.Context, ids []string) (int64, error)
}
