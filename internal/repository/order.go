package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/varejo/shop-api/internal/domain/order"
	"github.com/varejo/shop-api/internal/domain/product"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, items, payment_id, payment_method,
			payment_amount, payment_status, payment_currency, payment_created_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	adjustStockSQL = `UPDATE products SET quantity = quantity - $1, sold = sold + $1
		WHERE id = $2`

	orderColumns = `o.id, o.user_id, o.items, o.payment_id, o.payment_method,
		o.payment_amount, o.payment_status, o.payment_currency, o.payment_created_at,
		o.status, o.created_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = $1`

	getOrderByUserSQL = `SELECT ` + orderColumns + `, u.id, u.first_name, u.last_name, u.email
		FROM orders o JOIN users u ON u.id = o.user_id
		WHERE o.user_id = $1 ORDER BY o.created_at DESC LIMIT 1`

	listOrdersSQL = `SELECT ` + orderColumns + `, u.id, u.first_name, u.last_name, u.email
		FROM orders o JOIN users u ON u.id = o.user_id
		ORDER BY o.created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET status = $3, payment_status = $3
		WHERE id = $1 AND status = $2
		RETURNING id, user_id, items, payment_id, payment_method, payment_amount,
			payment_status, payment_currency, payment_created_at, status, created_at`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Line
// item snapshots are stored as a JSONB document.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Checkout persists the order, applies the inventory adjustments as one
// batch, and deletes the owning user's cart, all inside one transaction.
// A failure at any step rolls back the whole checkout.
func (r *OrderRepository) Checkout(ctx context.Context, o *order.Order, adjustments []product.StockAdjustment) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning checkout tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON,
		o.Payment.ID, o.Payment.Method, o.Payment.Amount, string(o.Payment.Status),
		o.Payment.Currency, o.Payment.CreatedAt,
		string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	b := &pgx.Batch{}
	for _, adj := range adjustments {
		b.Queue(adjustStockSQL, adj.Count, adj.ProductID)
	}
	br := tx.SendBatch(ctx, b)
	for range adjustments {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("adjusting stock for order %q: %w", o.ID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing stock batch for order %q: %w", o.ID, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE user_id = $1`, o.UserID); err != nil {
		return fmt.Errorf("clearing cart for order %q: %w", o.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing checkout for order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns an order by its identifier, or order.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// GetByUser returns the user's most recent order with the customer
// resolved, or order.ErrNotFound.
func (r *OrderRepository) GetByUser(ctx context.Context, userID string) (*order.AdminView, error) {
	rows, err := r.pool.Query(ctx, getOrderByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting order for user %q: %w", userID, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanAdminView)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order for user %q: %w", userID, err)
	}
	return &v, nil
}

// ListAll returns every order, newest first, with customers resolved.
func (r *OrderRepository) ListAll(ctx context.Context) ([]order.AdminView, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanAdminView)
}

// UpdateStatus conditionally moves the order (and its payment sub-record)
// to a new status. No matched row means the order is missing or its status
// changed concurrently; both surface as order.ErrNotFound.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to order.Status) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, updateOrderStatusSQL, id, string(from), string(to))
	if err != nil {
		return nil, fmt.Errorf("updating status of order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("updating status of order %q: %w", id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		itemsJSON     []byte
		amount        decimal.Decimal
		paymentStatus string
		status        string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON,
		&o.Payment.ID, &o.Payment.Method, &amount, &paymentStatus,
		&o.Payment.Currency, &o.Payment.CreatedAt,
		&status, &o.CreatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling order items: %w", err)
	}
	o.Payment.Amount = amount
	o.Payment.Status = order.Status(paymentStatus)
	o.Status = order.Status(status)
	return o, nil
}

func scanAdminView(row pgx.CollectableRow) (order.AdminView, error) {
	var (
		v             order.AdminView
		itemsJSON     []byte
		amount        decimal.Decimal
		paymentStatus string
		status        string
	)
	err := row.Scan(
		&v.Order.ID, &v.Order.UserID, &itemsJSON,
		&v.Order.Payment.ID, &v.Order.Payment.Method, &amount, &paymentStatus,
		&v.Order.Payment.Currency, &v.Order.Payment.CreatedAt,
		&status, &v.Order.CreatedAt,
		&v.Customer.ID, &v.Customer.FirstName, &v.Customer.LastName, &v.Customer.Email,
	)
	if err != nil {
		return order.AdminView{}, err
	}
	if err := json.Unmarshal(itemsJSON, &v.Order.Items); err != nil {
		return order.AdminView{}, fmt.Errorf("unmarshaling order items: %w", err)
	}
	v.Order.Payment.Amount = amount
	v.Order.Payment.Status = order.Status(paymentStatus)
	v.Order.Status = order.Status(status)
	return v, nil
}
