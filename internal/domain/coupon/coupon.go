package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidCoupon is returned when a coupon code is not found.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrInvalidPercent is returned when a rule's discount percentage is
	// outside the (0, 100] range.
	ErrInvalidPercent = errors.New("discount percent must be greater than 0 and at most 100")
)

// Rule defines a named percentage discount. Rules are immutable once
// created; checkout only reads them.
type Rule struct {
	ID          string
	Code        string
	Percent     decimal.Decimal
	Description string
	CreatedAt   time.Time
}

// Validate checks the rule's discount percentage bound.
func (r *Rule) Validate() error {
	if !r.Percent.IsPositive() || r.Percent.GreaterThan(hundred) {
		return ErrInvalidPercent
	}
	return nil
}

// Repository provides lookup and administration of coupon rules.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	Create(ctx context.Context, rule *Rule) error
	List(ctx context.Context) ([]Rule, error)
	Delete(ctx context.Context, id string) error
}
