package cart

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/catalog"
)

type Service struct {
	Store   Store
	Catalog catalog.Lookup
}

// Add stages qty more units of productID. A zero qty means one unit.
func (s *Service) Add(ctx context.Context, buyerID, productID string, qty int) (Entry, error) {
	if productID == "" {
		return Entry{}, apperr.Validation("productId is required")
	}
	if qty == 0 {
		qty = 1
	}
	if qty < 0 {
		return Entry{}, apperr.Validation("quantity must be at least 1")
	}
	if qty > MaxQuantity {
		return Entry{}, apperr.Validation("quantity must not exceed %d", MaxQuantity)
	}
	products, err := s.Catalog.ProductsByIDs(ctx, []string{productID})
	if err != nil {
		return Entry{}, err
	}
	if _, ok := products[productID]; !ok {
		return Entry{}, apperr.NotFound("product not found: %s", productID)
	}
	return s.Store.Increment(ctx, buyerID, productID, qty)
}

// UpdateQuantity sets an absolute quantity. qty <= 0 removes the entry and
// reports removed=true instead of failing.
func (s *Service) UpdateQuantity(ctx context.Context, buyerID, productID string, qty int) (entry Entry, removed bool, err error) {
	if productID == "" {
		return Entry{}, false, apperr.Validation("productId is required")
	}
	if qty <= 0 {
		return Entry{}, true, s.Store.Remove(ctx, buyerID, productID)
	}
	if qty > MaxQuantity {
		return Entry{}, false, apperr.Validation("quantity must not exceed %d", MaxQuantity)
	}
	entry, err = s.Store.SetQuantity(ctx, buyerID, productID, qty)
	return entry, false, err
}

func (s *Service) Remove(ctx context.Context, buyerID, productID string) error {
	return s.Store.Remove(ctx, buyerID, productID)
}

func (s *Service) Clear(ctx context.Context, buyerID string) error {
	return s.Store.Clear(ctx, buyerID)
}

func (s *Service) Count(ctx context.Context, buyerID string) (int, error) {
	return s.Store.Count(ctx, buyerID)
}

// Items returns the cart priced at current catalog values. Entries whose
// product has left the catalog are skipped.
func (s *Service) Items(ctx context.Context, buyerID string) ([]Line, decimal.Decimal, error) {
	entries, err := s.Store.Entries(ctx, buyerID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ProductID)
	}
	products, err := s.Catalog.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}

	lines := make([]Line, 0, len(entries))
	total := decimal.Zero
	for _, e := range entries {
		p, ok := products[e.ProductID]
		if !ok {
			continue
		}
		sub := p.Price.Mul(decimal.NewFromInt(int64(e.Quantity)))
		lines = append(lines, Line{
			Entry:    e,
			Name:     p.Name,
			SKU:      p.SKU,
			Price:    p.Price,
			Images:   p.Images,
			SellerID: p.SellerID,
			Subtotal: sub,
		})
		total = total.Add(sub)
	}
	return lines, total, nil
}
