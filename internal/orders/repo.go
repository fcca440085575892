package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, buyer_id, total_amount, overall_status, shipping_address, payment_method,
	payment_status, order_notes, tracking_number, estimated_delivery, actual_delivery, created_at, updated_at`

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.BuyerID, &o.TotalAmount, &o.OverallStatus, &o.ShippingAddress, &o.PaymentMethod,
		&o.PaymentStatus, &o.OrderNotes, &o.TrackingNumber, &o.EstimatedDelivery, &o.ActualDelivery, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create persists the order and its items atomically.
func (r *Repo) Create(ctx context.Context, o *Order) error {
	err := postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO orders (id, buyer_id, total_amount, overall_status, shipping_address, payment_method,
				payment_status, order_notes, tracking_number, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
			o.ID, o.BuyerID, o.TotalAmount, o.OverallStatus, o.ShippingAddress, o.PaymentMethod,
			o.PaymentStatus, o.OrderNotes, o.TrackingNumber, o.CreatedAt); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for i, it := range o.Items {
			batch.Queue(`
				INSERT INTO order_items (id, order_id, position, product_id, quantity, price, status, status_updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				it.ID, o.ID, i, it.ProductID, it.Quantity, it.Price, it.Status, it.StatusUpdatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return apperr.Storage("insert order", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	return getOrder(ctx, r.DB, id, false)
}

func (r *Repo) ListByBuyer(ctx context.Context, buyerID string) ([]*Order, error) {
	return listOrders(ctx, r.DB, `SELECT `+orderCols+` FROM orders WHERE buyer_id=$1 ORDER BY created_at DESC, id`, buyerID)
}

// ListAll loads every order with its items, newest first.
func (r *Repo) ListAll(ctx context.Context) ([]*Order, error) {
	return listOrders(ctx, r.DB, `SELECT `+orderCols+` FROM orders ORDER BY created_at DESC, id`)
}

// Mutate locks the order row, applies fn and writes back the mutable fields.
// When fn returns an error nothing is written.
func (r *Repo) Mutate(ctx context.Context, id string, fn func(o *Order) error) (*Order, error) {
	var out *Order
	err := postgres.WithTx(ctx, r.DB, func(tx pgx.Tx) error {
		o, err := getOrder(ctx, tx, id, true)
		if err != nil {
			return err
		}
		before := o.Clone()
		if err := fn(o); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE orders SET overall_status=$2, payment_status=$3, tracking_number=$4,
				estimated_delivery=$5, actual_delivery=$6, updated_at=$7
			WHERE id=$1`,
			o.ID, o.OverallStatus, o.PaymentStatus, o.TrackingNumber, o.EstimatedDelivery, o.ActualDelivery, o.UpdatedAt); err != nil {
			return apperr.Storage("update order", err)
		}
		for i, it := range o.Items {
			prev := before.Items[i]
			if it.Status == prev.Status && it.StatusUpdatedAt.Equal(prev.StatusUpdatedAt) {
				continue
			}
			if _, err := tx.Exec(ctx, `UPDATE order_items SET status=$2, status_updated_at=$3 WHERE id=$1`,
				it.ID, it.Status, it.StatusUpdatedAt); err != nil {
				return apperr.Storage("update order item", err)
			}
		}
		out = o
		return nil
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return nil, err
		}
		return nil, apperr.Storage("mutate order", err)
	}
	return out, nil
}

func getOrder(ctx context.Context, q querier, id string, forUpdate bool) (*Order, error) {
	sql := `SELECT ` + orderCols + ` FROM orders WHERE id=$1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("order not found: %s", id)
	}
	if err != nil {
		return nil, apperr.Storage("get order", err)
	}
	if err := loadItems(ctx, q, map[string]*Order{o.ID: o}); err != nil {
		return nil, err
	}
	return o, nil
}

func listOrders(ctx context.Context, q querier, sql string, args ...any) ([]*Order, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Storage("list orders", err)
	}
	var out []*Order
	byID := map[string]*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, apperr.Storage("scan order", err)
		}
		out = append(out, o)
		byID[o.ID] = o
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list orders", err)
	}
	if err := loadItems(ctx, q, byID); err != nil {
		return nil, err
	}
	return out, nil
}

func loadItems(ctx context.Context, q querier, byID map[string]*Order) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	rows, err := q.Query(ctx, `
		SELECT order_id, id, product_id, quantity, price, status, status_updated_at
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`, ids)
	if err != nil {
		return apperr.Storage("query order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var it OrderItem
		if err := rows.Scan(&orderID, &it.ID, &it.ProductID, &it.Quantity, &it.Price, &it.Status, &it.StatusUpdatedAt); err != nil {
			return apperr.Storage("scan order item", err)
		}
		o := byID[orderID]
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return apperr.Storage("query order items", err)
	}
	return nil
}
