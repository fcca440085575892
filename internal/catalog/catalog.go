// Package catalog is the read-only view of the product registry owned by the
// catalog service. Prices and seller ownership are always read live from here.
package catalog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
)

type Product struct {
	ID        string          `json:"id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	SellerID  string          `json:"sellerId"`
	Images    []string        `json:"images"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

type Lookup interface {
	// ProductsByIDs resolves ids in one batch. Missing ids are simply absent from the result.
	ProductsByIDs(ctx context.Context, ids []string) (map[string]Product, error)
	// ProductIDsBySeller returns the seller's current product id set.
	ProductIDsBySeller(ctx context.Context, sellerID string) (map[string]struct{}, error)
}

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) ProductsByIDs(ctx context.Context, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, sku, name, price, seller_id, images, updated_at
		FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, apperr.Storage("query products", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.SellerID, &p.Images, &p.UpdatedAt); err != nil {
			return nil, apperr.Storage("scan product", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("query products", err)
	}
	return out, nil
}

func (r *Repo) ProductIDsBySeller(ctx context.Context, sellerID string) (map[string]struct{}, error) {
	rows, err := r.DB.Query(ctx, `SELECT id FROM products WHERE seller_id=$1`, sellerID)
	if err != nil {
		return nil, apperr.Storage("query seller products", err)
	}
	defer rows.Close()

	out := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Storage("scan seller product", err)
		}
		out[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("query seller products", err)
	}
	return out, nil
}
