package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/varejo/shop-api/internal/domain/product"
)

var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrPaymentRequired is returned when checkout is attempted without
	// confirming the cash-on-delivery payment method.
	ErrPaymentRequired = errors.New("cash on delivery confirmation required")
)

// PaymentMethodCOD is the only supported payment method.
const PaymentMethodCOD = "COD"

// Currency for all payments.
const Currency = "brl"

// Item is a line of the order's immutable snapshot, copied from the cart
// at checkout time.
type Item struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Payment is the payment-tracking sub-record embedded in an order.
type Payment struct {
	ID        string
	Method    string
	Amount    decimal.Decimal
	Status    Status
	Currency  string
	CreatedAt time.Time
}

// Order is an immutable snapshot of a cart at the moment of purchase.
// Only Status and Payment.Status change after creation, and only through
// the transition table in status.go.
type Order struct {
	ID        string
	UserID    string
	Items     []Item
	Payment   Payment
	Status    Status
	CreatedAt time.Time
}

// Customer is the resolved owner of an order in administrative listings.
type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

// AdminView pairs an order with its resolved customer.
type AdminView struct {
	Order    Order
	Customer Customer
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Checkout atomically persists the order, applies the inventory
	// adjustments, and deletes the owning user's cart, all in a single
	// transaction.
	Checkout(ctx context.Context, o *Order, adjustments []product.StockAdjustment) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// GetByUser returns the user's most recent order.
	GetByUser(ctx context.Context, userID string) (*AdminView, error)
	ListAll(ctx context.Context) ([]AdminView, error)
	// UpdateStatus sets both the order status and the payment sub-record
	// status, conditioned on the current status still being from. It
	// returns ErrNotFound when no row matches (missing order or a
	// concurrent status change).
	UpdateStatus(ctx context.Context, id string, from, to Status) (*Order, error)
}
