package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one buyer's staged quantity of one product. At most one entry
// exists per (buyer, product).
type Entry struct {
	BuyerID   string    `json:"buyerId"`
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"addedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Line is an entry joined with the live catalog record. Prices here are the
// current catalog prices, not what an order would be charged later.
type Line struct {
	Entry
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Price    decimal.Decimal `json:"price"`
	Images   []string        `json:"images"`
	SellerID string          `json:"sellerId"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// MaxQuantity caps a single cart entry or order line.
const MaxQuantity = 1_000_000

type Store interface {
	// Increment adds delta to the entry, creating it when absent, in one atomic step.
	// A result above MaxQuantity is rejected with a validation error and nothing changes.
	Increment(ctx context.Context, buyerID, productID string, delta int) (Entry, error)
	// SetQuantity sets an absolute quantity on an existing entry.
	SetQuantity(ctx context.Context, buyerID, productID string, qty int) (Entry, error)
	Remove(ctx context.Context, buyerID, productID string) error
	Clear(ctx context.Context, buyerID string) error
	Entries(ctx context.Context, buyerID string) ([]Entry, error)
	Count(ctx context.Context, buyerID string) (int, error)
}
