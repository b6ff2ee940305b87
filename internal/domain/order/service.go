package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/varejo/shop-api/internal/domain/cart"
	"github.com/varejo/shop-api/internal/domain/product"
)

// Service is the checkout orchestrator: it converts a cart into an order
// snapshot, decrements inventory, and manages order status afterwards.
type Service struct {
	carts  cart.Repository
	orders Repository
	cache  cart.Cache
	now    func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(carts cart.Repository, orders Repository, cache cart.Cache) *Service {
	return &Service{
		carts:  carts,
		orders: orders,
		cache:  cache,
		now:    time.Now,
	}
}

// PlaceOrder converts the user's cart into an immutable order. The final
// amount is the cart's stored discounted total when useCoupon is set and a
// coupon was previously applied, otherwise the plain subtotal. Order
// creation, the batched inventory decrement, and the cart deletion commit
// or fail together.
func (s *Service) PlaceOrder(ctx context.Context, userID string, codConfirmed, useCoupon bool) (*Order, error) {
	if !codConfirmed {
		return nil, ErrPaymentRequired
	}

	c, err := s.carts.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	final := c.Subtotal
	if useCoupon && c.DiscountedTotal != nil {
		final = *c.DiscountedTotal
	}

	items := make([]Item, len(c.Items))
	adjustments := make([]product.StockAdjustment, len(c.Items))
	for i, line := range c.Items {
		items[i] = Item{
			ProductID: line.ProductID,
			Title:     line.Title,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		adjustments[i] = product.StockAdjustment{
			ProductID: line.ProductID,
			Count:     line.Quantity,
		}
	}

	now := s.now()
	o := &Order{
		ID:     uuid.New().String(),
		UserID: userID,
		Items:  items,
		Payment: Payment{
			ID:        uuid.New().String(),
			Method:    PaymentMethodCOD,
			Amount:    final,
			Status:    StatusPaymentConfirmed,
			Currency:  Currency,
			CreatedAt: now,
		},
		Status:    StatusPaymentConfirmed,
		CreatedAt: now,
	}

	if err := s.orders.Checkout(ctx, o, adjustments); err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		zctx.From(ctx).Debug("Cart cache invalidation failed", zap.Error(err))
	}

	zctx.From(ctx).Info("Order placed",
		zap.String("order_id", o.ID),
		zap.String("user_id", userID),
		zap.String("amount", final.StringFixed(2)),
	)
	return o, nil
}

// GetByUser returns the calling user's most recent order.
func (s *Service) GetByUser(ctx context.Context, userID string) (*AdminView, error) {
	return s.orders.GetByUser(ctx, userID)
}

// ListAll returns every order with its customer resolved.
func (s *Service) ListAll(ctx context.Context) ([]AdminView, error) {
	return s.orders.ListAll(ctx)
}

// UpdateStatus moves the order through the fulfillment state machine,
// keeping the payment sub-record's status in step. Illegal transitions
// fail with InvalidTransitionError.
func (s *Service) UpdateStatus(ctx context.Context, orderID, status string) (*Order, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(to) {
		return nil, &InvalidTransitionError{From: o.Status, To: to}
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, o.Status, to)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	return updated, nil
}
