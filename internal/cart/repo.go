package cart

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
)

type Repo struct{ DB *pgxpool.Pool }

const entryCols = `buyer_id, product_id, quantity, added_at, updated_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.BuyerID, &e.ProductID, &e.Quantity, &e.AddedAt, &e.UpdatedAt)
	return e, err
}

// Increment relies on the (buyer_id, product_id) primary key: concurrent adds
// for the same pair serialize on the row instead of losing an update. The
// conflict update is skipped when the sum would pass MaxQuantity, which
// surfaces as no returned row.
func (r *Repo) Increment(ctx context.Context, buyerID, productID string, delta int) (Entry, error) {
	if delta > MaxQuantity {
		return Entry{}, apperr.Validation("quantity must not exceed %d", MaxQuantity)
	}
	e, err := scanEntry(r.DB.QueryRow(ctx, `
		INSERT INTO cart_items (buyer_id, product_id, quantity, added_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		ON CONFLICT (buyer_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
		WHERE cart_items.quantity + EXCLUDED.quantity <= $4
		RETURNING `+entryCols, buyerID, productID, delta, MaxQuantity))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, apperr.Validation("cart quantity for %s would exceed %d", productID, MaxQuantity)
	}
	if err != nil {
		return Entry{}, apperr.Storage("upsert cart item", err)
	}
	return e, nil
}

func (r *Repo) SetQuantity(ctx context.Context, buyerID, productID string, qty int) (Entry, error) {
	e, err := scanEntry(r.DB.QueryRow(ctx, `
		UPDATE cart_items SET quantity=$3, updated_at=now()
		WHERE buyer_id=$1 AND product_id=$2
		RETURNING `+entryCols, buyerID, productID, qty))
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, apperr.NotFound("cart item not found: %s", productID)
	}
	if err != nil {
		return Entry{}, apperr.Storage("update cart item", err)
	}
	return e, nil
}

func (r *Repo) Remove(ctx context.Context, buyerID, productID string) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE buyer_id=$1 AND product_id=$2`, buyerID, productID); err != nil {
		return apperr.Storage("delete cart item", err)
	}
	return nil
}

func (r *Repo) Clear(ctx context.Context, buyerID string) error {
	if _, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE buyer_id=$1`, buyerID); err != nil {
		return apperr.Storage("clear cart", err)
	}
	return nil
}

func (r *Repo) Entries(ctx context.Context, buyerID string) ([]Entry, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+entryCols+` FROM cart_items WHERE buyer_id=$1 ORDER BY added_at, product_id`, buyerID)
	if err != nil {
		return nil, apperr.Storage("query cart", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, apperr.Storage("scan cart item", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("query cart", err)
	}
	return out, nil
}

func (r *Repo) Count(ctx context.Context, buyerID string) (int, error) {
	var n int
	if err := r.DB.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM cart_items WHERE buyer_id=$1`, buyerID).Scan(&n); err != nil {
		return 0, apperr.Storage("count cart", err)
	}
	return n, nil
}
