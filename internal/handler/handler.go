// Package handler exposes the shop's domain services over a JSON REST API.
// Wire field names follow the storefront client contract, which is
// Portuguese in places (carrinho, cupom, contagem).
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/varejo/shop-api/internal/domain/cart"
	"github.com/varejo/shop-api/internal/domain/coupon"
	"github.com/varejo/shop-api/internal/domain/order"
	"github.com/varejo/shop-api/internal/domain/product"
	"github.com/varejo/shop-api/internal/domain/user"
	"github.com/varejo/shop-api/pkg/token"
)

// TokenVerifier validates access tokens presented by clients. Implemented
// by token.Manager.
type TokenVerifier interface {
	Verify(tokenString string) (*token.Claims, error)
}

// Handler ties the domain services to the HTTP routes.
type Handler struct {
	users    *user.Service
	carts    *cart.Service
	orders   *order.Service
	products product.Repository
	coupons  coupon.Repository

	accounts user.Repository
	verifier TokenVerifier
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	users *user.Service,
	carts *cart.Service,
	orders *order.Service,
	products product.Repository,
	coupons coupon.Repository,
	accounts user.Repository,
	verifier TokenVerifier,
) *Handler {
	return &Handler{
		users:    users,
		carts:    carts,
		orders:   orders,
		products: products,
		coupons:  coupons,
		accounts: accounts,
		verifier: verifier,
	}
}

// Routes builds the API route tree.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Route("/user", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.Post("/admin-login", h.adminLogin)

			r.Group(func(r chi.Router) {
				r.Use(h.authenticate)

				r.Post("/cart", h.setCart)
				r.Get("/cart", h.getCart)
				r.Delete("/empty-cart", h.emptyCart)
				r.Post("/cart/applycoupon", h.applyCoupon)
				r.Post("/cart/cash-order", h.placeOrder)
				r.Get("/get-orders", h.getOwnOrder)

				r.Group(func(r chi.Router) {
					r.Use(h.adminOnly)

					r.Get("/getallorders", h.listAllOrders)
					r.Get("/getorderbyuser/{userID}", h.getOrderByUser)
					r.Put("/order/update-order/{orderID}", h.updateOrderStatus)
					r.Put("/block-user/{userID}", h.blockUser)
					r.Put("/unblock-user/{userID}", h.unblockUser)
				})
			})
		})

		r.Route("/cupom", func(r chi.Router) {
			r.Use(h.authenticate, h.adminOnly)

			r.Post("/", h.createCoupon)
			r.Get("/", h.listCoupons)
			r.Delete("/{couponID}", h.deleteCoupon)
		})

		r.Route("/produtos", func(r chi.Router) {
			r.Get("/", h.listProducts)
			r.Get("/{productID}", h.getProduct)

			r.Group(func(r chi.Router) {
				r.Use(h.authenticate, h.adminOnly)
				r.Post("/", h.createProduct)
			})
		})
	})

	return r
}

// uuidParam extracts the named URL parameter, reporting whether it is a
// well-formed UUID. Identifier columns are UUID-typed, so a malformed id
// must be rejected before it reaches a query.
func uuidParam(r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
