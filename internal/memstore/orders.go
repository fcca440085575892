package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

var _ orders.Store = (*OrderStore)(nil)

// OrderStore keeps private copies; callers never share memory with it.
type OrderStore struct {
	mu     sync.Mutex
	orders map[string]*orders.Order
}

func NewOrderStore() *OrderStore {
	return &OrderStore{orders: map[string]*orders.Order{}}
}

func (s *OrderStore) Create(_ context.Context, o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return apperr.Conflict("order already exists: %s", o.ID)
	}
	s.orders[o.ID] = o.Clone()
	return nil
}

func (s *OrderStore) Get(_ context.Context, id string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found: %s", id)
	}
	return o.Clone(), nil
}

func (s *OrderStore) ListByBuyer(_ context.Context, buyerID string) ([]*orders.Order, error) {
	return s.list(func(o *orders.Order) bool { return o.BuyerID == buyerID }), nil
}

func (s *OrderStore) ListAll(_ context.Context) ([]*orders.Order, error) {
	return s.list(func(*orders.Order) bool { return true }), nil
}

func (s *OrderStore) Mutate(_ context.Context, id string, fn func(o *orders.Order) error) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found: %s", id)
	}
	work := cur.Clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	s.orders[id] = work.Clone()
	return work, nil
}

func (s *OrderStore) list(keep func(*orders.Order) bool) []*orders.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*orders.Order{}
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
