package inventory

import (
	"time"

	"github.com/Zhima-Mochi/readify/internal/domain"
)

var (
	ErrNotFound          = domain.NewError(domain.ErrNotFound, "STOCK_NOT_FOUND", "inventory: book not found in stock")
	ErrInvalidQuantity   = domain.NewError(domain.ErrInvalid, "STOCK_QUANTITY_INVALID", "inventory: quantity must not be negative")
	ErrInvalidPrice      = domain.NewError(domain.ErrInvalid, "STOCK_PRICE_INVALID", "inventory: price must be greater than zero")
	ErrInsufficientStock = domain.NewError(domain.ErrInvalid, "INSUFFICIENT_STOCK", "inventory: insufficient stock")
	ErrOutOfStock        = domain.NewError(domain.ErrInvalid, "OUT_OF_STOCK", "inventory: book is out of stock")
	ErrExists            = domain.NewError(domain.ErrConflict, "STOCK_EXISTS", "inventory: stock already exists for book")
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusInactive  Status = "inactive"
)

const DefaultLocation = "MAIN"

// Stock is the sellable quantity and selling price of one book.
type Stock struct {
	ID        string
	BookID    string
	Quantity  int
	Price     int64
	Location  string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewStock(id, bookID string, quantity int, price int64, location string) (*Stock, error) {
	if quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}
	if location == "" {
		location = DefaultLocation
	}
	now := time.Now().UTC()
	return &Stock{
		ID:        id,
		BookID:    bookID,
		Quantity:  quantity,
		Price:     price,
		Location:  location,
		Status:    StatusAvailable,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Stock) Deduct(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > s.Quantity {
		return ErrInsufficientStock
	}
	s.Quantity -= quantity
	s.touch()
	return nil
}

func (s *Stock) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	s.Quantity += quantity
	s.touch()
	return nil
}

// Adjust sets absolute quantity and price from a back-office correction.
func (s *Stock) Adjust(quantity int, price int64) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	if price <= 0 {
		return ErrInvalidPrice
	}
	s.Quantity = quantity
	s.Price = price
	s.touch()
	return nil
}

func (s *Stock) Deactivate() {
	s.Quantity = 0
	s.Status = StatusInactive
	s.touch()
}

func (s *Stock) Activate() {
	s.Status = StatusAvailable
	s.touch()
}

// Covers reports whether qty units can be sold from this stock.
func (s *Stock) Covers(qty int) bool {
	return s.Status == StatusAvailable && s.Quantity >= qty
}

func (s *Stock) Clone() *Stock {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func (s *Stock) touch() {
	s.UpdatedAt = time.Now().UTC()
}
