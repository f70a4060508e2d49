package inventory

import (
	"errors"
	"time"
)

// StockItem models a stock-keeping item. Services carry no on-hand quantity;
// only physical items participate in stock movements.
type StockItem struct {
	ID           string
	SKU          string
	Name         string
	Quantity     float64
	UnitCost     float64
	SellingPrice float64
	IsService    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateItemInput describes a new catalogue entry.
type CreateItemInput struct {
	SKU          string
	Name         string
	Quantity     float64
	UnitCost     float64
	SellingPrice float64
	IsService    bool
	ActorID      string
}

// AdjustmentInput describes a manual stock correction outside the sale and
// purchase flows (e.g. shrinkage count).
type AdjustmentInput struct {
	ItemID  string
	Qty     float64
	Reason  string
	ActorID string
}

// ErrInsufficientStock triggered when a movement would leave a physical item
// with negative quantity.
var ErrInsufficientStock = errors.New("inventory: insufficient stock")

// ErrInvalidQuantity indicates a zero or negative movement quantity.
var ErrInvalidQuantity = errors.New("inventory: quantity must be positive")

// ErrItemNotFound indicates a missing stock item.
var ErrItemNotFound = errors.New("inventory: item not found")

// ErrServiceItem indicates an operation that only applies to physical items.
var ErrServiceItem = errors.New("inventory: item is a service")
