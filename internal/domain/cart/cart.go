package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/varejo/shop-api/internal/domain/product"
)

// ErrNotFound is returned when a user has no active cart.
var ErrNotFound = errors.New("cart not found")

// Item is one cart line. UnitPrice is captured from the catalog at the
// moment the item is added, never taken from client input.
type Item struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Cart is the single active cart of one user. Subtotal is always
// Σ(quantity × unit price) over Items; DiscountedTotal is set only after a
// coupon has been applied and is cleared whenever the items change.
type Cart struct {
	ID              string
	UserID          string
	Items           []Item
	Subtotal        decimal.Decimal
	DiscountedTotal *decimal.Decimal
	UpdatedAt       time.Time
}

// ResolvedCart pairs a cart with the full product records its lines
// reference, in line order.
type ResolvedCart struct {
	Cart     *Cart
	Products []product.Product
}

// Repository defines persistence operations for carts. Replace must be a
// single atomic upsert keyed by user id so that concurrent replacements
// for the same user serialize instead of racing a delete against an insert.
type Repository interface {
	Replace(ctx context.Context, c *Cart) error
	GetByUser(ctx context.Context, userID string) (*Cart, error)
	// DeleteByUser removes the user's cart and returns it. A missing cart
	// is not an error; (nil, nil) is returned.
	DeleteByUser(ctx context.Context, userID string) (*Cart, error)
	SetDiscountedTotal(ctx context.Context, userID string, total decimal.Decimal) error
}

// Cache is an optional read cache for carts. Get returns (nil, nil) on a
// miss; implementations must never fail a request over a cache error.
type Cache interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Set(ctx context.Context, c *Cart) error
	Invalidate(ctx context.Context, userID string) error
}
