package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/varejo/shop-api/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT id, code, percent, description, created_at
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	createCouponSQL = `INSERT INTO coupons (id, code, percent, description)
		VALUES ($1, $2, $3, $4)`

	listCouponsSQL = `SELECT id, code, percent, description, created_at
		FROM coupons ORDER BY created_at DESC`

	deleteCouponSQL = `DELETE FROM coupons WHERE id = $1`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns coupon.ErrInvalidCoupon when no matching coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &rule, nil
}

// Create persists a new coupon rule after validating its percentage bound.
func (r *CouponRepository) Create(ctx context.Context, rule *coupon.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx, createCouponSQL,
		rule.ID, rule.Code, rule.Percent, rule.Description,
	)
	if err != nil {
		return fmt.Errorf("creating coupon %q: %w", rule.Code, err)
	}
	return nil
}

// List returns all coupon rules, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCouponRule)
}

// Delete removes a coupon rule by id.
func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrInvalidCoupon
	}
	return nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule    coupon.Rule
		percent decimal.Decimal
	)
	err := row.Scan(&rule.ID, &rule.Code, &percent, &rule.Description, &rule.CreatedAt)
	rule.Percent = percent
	return rule, err
}
