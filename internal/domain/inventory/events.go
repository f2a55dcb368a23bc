package inventory

import "time"

// StockAdjustedEvent is emitted when staff correct quantity or price.
type StockAdjustedEvent struct {
	BookID      string
	OldQuantity int
	NewQuantity int
	Price       int64
	AdjustedBy  string
	OccurredAt  time.Time
}

func (StockAdjustedEvent) EventName() string { return "inventory.stock_adjusted" }

func NewStockAdjustedEvent(s *Stock, oldQty int, by string) StockAdjustedEvent {
	return StockAdjustedEvent{
		BookID:      s.BookID,
		OldQuantity: oldQty,
		NewQuantity: s.Quantity,
		Price:       s.Price,
		AdjustedBy:  by,
		OccurredAt:  time.Now().UTC(),
	}
}
