// Package memstore holds in-process implementations of the catalog, cart and
// order stores. The API runs on them with STORAGE=memory.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ariefcatur/go-marketplace-orders/internal/catalog"
)

var _ catalog.Lookup = (*Catalog)(nil)

type Catalog struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
}

func NewCatalog(ps ...catalog.Product) *Catalog {
	c := &Catalog{products: map[string]catalog.Product{}}
	for _, p := range ps {
		c.products[p.ID] = p
	}
	return c
}

// LoadCatalog reads a JSON array of products.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	var ps []catalog.Product
	if err := json.Unmarshal(b, &ps); err != nil {
		return nil, fmt.Errorf("decode catalog seed: %w", err)
	}
	return NewCatalog(ps...), nil
}

// Put inserts or replaces a product.
func (c *Catalog) Put(p catalog.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *Catalog) ProductsByIDs(_ context.Context, ids []string) (map[string]catalog.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (c *Catalog) ProductIDsBySeller(_ context.Context, sellerID string) (map[string]struct{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := map[string]struct{}{}
	for id, p := range c.products {
		if p.SellerID == sellerID {
			out[id] = struct{}{}
		}
	}
	return out, nil
}
