package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item with its inventory counters.
type Product struct {
	ID       string
	Title    string
	Slug     string
	Category string
	Price    decimal.Decimal
	Quantity int
	Sold     int
}

// StockAdjustment records how many units of one product were ordered.
// Applying it decrements the product's quantity and increments its sold
// counter by Count.
type StockAdjustment struct {
	ProductID string
	Count     int
}

// Repository defines persistence operations for the product catalog.
// Stock adjustments are applied by the order repository inside the
// checkout transaction.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	Create(ctx context.Context, p *Product) error
}
