// Package paging normalises page/limit/sort query input and shapes paginated results.
package paging

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

type Params struct {
	Page  int
	Limit int
}

// New clamps page to >= 1 and limit to [1, max]. A zero limit becomes def.
func New(page, limit, def, max int) Params {
	if def <= 0 {
		def = DefaultLimit
	}
	if max <= 0 {
		max = MaxLimit
	}
	if page < 1 {
		page = 1
	}
	if limit == 0 {
		limit = def
	}
	if limit < 1 {
		limit = 1
	}
	if limit > max {
		limit = max
	}
	return Params{Page: page, Limit: limit}
}

// Default applies the standard 10/50 bounds.
func Default(page, limit int) Params {
	return New(page, limit, DefaultLimit, MaxLimit)
}

func (p Params) Skip() int64 {
	if p.Page < 1 {
		return 0
	}
	return int64(p.Page-1) * int64(p.Limit)
}

// Sort is a whitelisted field with a direction. The id tiebreak is applied by the store.
type Sort struct {
	Field string
	Desc  bool
}

// ParseOrder reads "asc"/"desc" (any case); anything else yields def.
func ParseOrder(order string, def bool) bool {
	switch order {
	case "asc", "ASC", "Asc":
		return false
	case "desc", "DESC", "Desc":
		return true
	default:
		return def
	}
}

// PickSort returns the requested field if allowed, otherwise def.
func PickSort(field string, allowed []string, def string) string {
	for _, a := range allowed {
		if a == field {
			return field
		}
	}
	return def
}

type Meta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
}

type Result[T any] struct {
	Items []T
	Meta  Meta
}

func NewResult[T any](items []T, p Params, total int64) Result[T] {
	if items == nil {
		items = []T{}
	}
	var pages int64
	if p.Limit > 0 {
		pages = (total + int64(p.Limit) - 1) / int64(p.Limit)
	}
	return Result[T]{
		Items: items,
		Meta:  Meta{Page: p.Page, Limit: p.Limit, Total: total, TotalPages: pages},
	}
}

// Map converts the items of a result, keeping the metadata.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	out := make([]U, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, fn(it))
	}
	return Result[U]{Items: out, Meta: r.Meta}
}

// Window slices an already filtered and sorted slice.
func Window[T any](all []T, p Params) []T {
	start := p.Skip()
	if start >= int64(len(all)) {
		return []T{}
	}
	end := start + int64(p.Limit)
	if end > int64(len(all)) {
		end = int64(len(all))
	}
	return all[start:end]
}
