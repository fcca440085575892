package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/cart"
)

var _ cart.Store = (*CartStore)(nil)

type CartStore struct {
	mu      sync.Mutex
	entries map[string]map[string]cart.Entry // buyer -> product -> entry
	Now     func() time.Time
}

func NewCartStore() *CartStore {
	return &CartStore{entries: map[string]map[string]cart.Entry{}}
}

func (s *CartStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *CartStore) Increment(_ context.Context, buyerID, productID string, delta int) (cart.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	byProduct := s.entries[buyerID]
	if byProduct == nil {
		byProduct = map[string]cart.Entry{}
		s.entries[buyerID] = byProduct
	}
	e, ok := byProduct[productID]
	if !ok {
		e = cart.Entry{BuyerID: buyerID, ProductID: productID, AddedAt: now}
	}
	if delta > cart.MaxQuantity || e.Quantity > cart.MaxQuantity-delta {
		return cart.Entry{}, apperr.Validation("cart quantity for %s would exceed %d", productID, cart.MaxQuantity)
	}
	e.Quantity += delta
	e.UpdatedAt = now
	byProduct[productID] = e
	return e, nil
}

func (s *CartStore) SetQuantity(_ context.Context, buyerID, productID string, qty int) (cart.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[buyerID][productID]
	if !ok {
		return cart.Entry{}, apperr.NotFound("cart item not found: %s", productID)
	}
	e.Quantity = qty
	e.UpdatedAt = s.now()
	s.entries[buyerID][productID] = e
	return e, nil
}

func (s *CartStore) Remove(_ context.Context, buyerID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries[buyerID], productID)
	return nil
}

func (s *CartStore) Clear(_ context.Context, buyerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, buyerID)
	return nil
}

func (s *CartStore) Entries(_ context.Context, buyerID string) ([]cart.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cart.Entry, 0, len(s.entries[buyerID]))
	for _, e := range s.entries[buyerID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].AddedAt.Before(out[j].AddedAt)
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

func (s *CartStore) Count(_ context.Context, buyerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries[buyerID] {
		n += e.Quantity
	}
	return n, nil
}
