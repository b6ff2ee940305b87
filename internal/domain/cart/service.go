package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/varejo/shop-api/internal/domain/coupon"
	"github.com/varejo/shop-api/internal/domain/product"
)

// InvalidQuantityError indicates a submitted line has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// SetItem is a client-submitted cart line: a product reference and a count.
// Prices are deliberately absent; they are re-fetched server-side.
type SetItem struct {
	ProductID string
	Quantity  int
}

// Service implements the cart operations: wholesale replacement, retrieval
// with product resolution, emptying, and coupon application.
type Service struct {
	carts    Repository
	products product.Repository
	coupons  coupon.Repository
	cache    Cache
}

// NewService creates a cart Service with the required dependencies.
func NewService(
	carts Repository,
	products product.Repository,
	coupons coupon.Repository,
	cache Cache,
) *Service {
	return &Service{
		carts:    carts,
		products: products,
		coupons:  coupons,
		cache:    cache,
	}
}

// SetCart replaces the user's cart with the submitted items. Unit prices
// are looked up from the catalog in one batched query, so stale or forged
// client prices never reach the stored cart. Any previously applied
// discount is dropped with the old cart.
func (s *Service) SetCart(ctx context.Context, userID string, items []SetItem) (*Cart, error) {
	ids := make([]string, len(items))
	for i, it := range items {
		if it.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: it.ProductID}
		}
		ids[i] = it.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	lines := make([]Item, len(items))
	subtotal := decimal.Zero
	for i, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", it.ProductID, product.ErrNotFound)
		}
		lines[i] = Item{
			ProductID: p.ID,
			Title:     p.Title,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
		}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	c := &Cart{
		ID:       uuid.New().String(),
		UserID:   userID,
		Items:    lines,
		Subtotal: subtotal.Round(2),
	}
	if err := s.carts.Replace(ctx, c); err != nil {
		return nil, fmt.Errorf("replace cart: %w", err)
	}
	s.invalidate(ctx, userID)

	return c, nil
}

// GetCart returns the user's cart with its products resolved, or
// (nil, nil) when the user has no cart.
func (s *Service) GetCart(ctx context.Context, userID string) (*ResolvedCart, error) {
	c, err := s.cachedCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}

	ids := make([]string, len(c.Items))
	for i, it := range c.Items {
		ids[i] = it.ProductID
	}
	products, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve cart products: %w", err)
	}
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	resolved := make([]product.Product, len(c.Items))
	for i, it := range c.Items {
		// A product deleted after it was carted resolves to its snapshot data.
		p, ok := byID[it.ProductID]
		if !ok {
			p = product.Product{ID: it.ProductID, Title: it.Title, Price: it.UnitPrice}
		}
		resolved[i] = p
	}

	return &ResolvedCart{Cart: c, Products: resolved}, nil
}

// EmptyCart deletes the user's cart and returns it. Deleting an absent
// cart is a no-op returning (nil, nil).
func (s *Service) EmptyCart(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.carts.DeleteByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("delete cart: %w", err)
	}
	s.invalidate(ctx, userID)
	return c, nil
}

// ApplyCoupon computes the discounted total for the user's cart under the
// named coupon, persists it on the cart for a later checkout, and returns
// it. The cart items themselves are never modified.
func (s *Service) ApplyCoupon(ctx context.Context, userID, code string) (decimal.Decimal, error) {
	rule, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return decimal.Zero, err
	}

	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}

	discounted := coupon.ApplyPercent(c.Subtotal, rule.Percent)
	if err := s.carts.SetDiscountedTotal(ctx, userID, discounted); err != nil {
		return decimal.Zero, fmt.Errorf("store discounted total: %w", err)
	}
	s.invalidate(ctx, userID)

	return discounted, nil
}

// cachedCart reads through the cache; a cache failure degrades to a
// repository read. Absence is (nil, nil).
func (s *Service) cachedCart(ctx context.Context, userID string) (*Cart, error) {
	if c, err := s.cache.Get(ctx, userID); err != nil {
		zctx.From(ctx).Debug("Cart cache read failed", zap.Error(err))
	} else if c != nil {
		return c, nil
	}

	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	if err := s.cache.Set(ctx, c); err != nil {
		zctx.From(ctx).Debug("Cart cache write failed", zap.Error(err))
	}
	return c, nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		zctx.From(ctx).Debug("Cart cache invalidation failed", zap.Error(err))
	}
}
