package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/varejo/shop-api/internal/domain/cart"
)

const (
	// Replacement is a single upsert keyed by user_id, so two concurrent
	// replacements serialize on the row instead of racing a delete
	// against an insert. The stored discount is always dropped: it was
	// computed for the old items.
	replaceCartSQL = `INSERT INTO carts (id, user_id, items, subtotal, discounted_total, updated_at)
		VALUES ($1, $2, $3, $4, NULL, now())
		ON CONFLICT (user_id) DO UPDATE
		SET items = EXCLUDED.items, subtotal = EXCLUDED.subtotal,
		    discounted_total = NULL, updated_at = now()`

	getCartByUserSQL = `SELECT id, user_id, items, subtotal, discounted_total, updated_at
		FROM carts WHERE user_id = $1`

	deleteCartByUserSQL = `DELETE FROM carts WHERE user_id = $1
		RETURNING id, user_id, items, subtotal, discounted_total, updated_at`

	setDiscountedTotalSQL = `UPDATE carts SET discounted_total = $2 WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Line
// items are stored as a JSONB document.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Replace upserts the user's cart in a single statement.
func (r *CartRepository) Replace(ctx context.Context, c *cart.Cart) error {
	itemsJSON, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshaling cart items: %w", err)
	}

	_, err = r.pool.Exec(ctx, replaceCartSQL, c.ID, c.UserID, itemsJSON, c.Subtotal)
	if err != nil {
		return fmt.Errorf("replacing cart for user %q: %w", c.UserID, err)
	}
	return nil
}

// GetByUser returns the user's cart, or cart.ErrNotFound.
func (r *CartRepository) GetByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, getCartByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart for user %q: %w", userID, err)
	}
	return &c, nil
}

// DeleteByUser removes the user's cart and returns it; (nil, nil) when the
// user has none.
func (r *CartRepository) DeleteByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, deleteCartByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("deleting cart for user %q: %w", userID, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("deleting cart for user %q: %w", userID, err)
	}
	return &c, nil
}

// SetDiscountedTotal persists a computed discount onto the user's cart.
func (r *CartRepository) SetDiscountedTotal(ctx context.Context, userID string, total decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, setDiscountedTotalSQL, userID, total)
	if err != nil {
		return fmt.Errorf("storing discounted total for user %q: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

func scanCart(row pgx.CollectableRow) (cart.Cart, error) {
	var (
		c          cart.Cart
		itemsJSON  []byte
		subtotal   decimal.Decimal
		discounted *decimal.Decimal
	)
	if err := row.Scan(&c.ID, &c.UserID, &itemsJSON, &subtotal, &discounted, &c.UpdatedAt); err != nil {
		return cart.Cart{}, err
	}
	if err := json.Unmarshal(itemsJSON, &c.Items); err != nil {
		return cart.Cart{}, fmt.Errorf("unmarshaling cart items: %w", err)
	}
	c.Subtotal = subtotal
	c.DiscountedTotal = discounted
	return c, nil
}
