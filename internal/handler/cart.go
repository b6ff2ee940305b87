package handler

import (
	"encoding/json"
	"net/http"

	"github.com/varejo/shop-api/internal/domain/cart"
)

type setCartRequest struct {
	Items []setCartItem `json:"carrinho"`
}

type setCartItem struct {
	ProductID string `json:"_id"`
	Quantity  int    `json:"contagem"`
}

type applyCouponRequest struct {
	Code string `json:"cupom"`
}

type cartItemResponse struct {
	ProductID string `json:"_id"`
	Title     string `json:"titulo"`
	Quantity  int    `json:"contagem"`
	UnitPrice string `json:"preco"`
}

type cartResponse struct {
	ID              string             `json:"_id"`
	Items           []cartItemResponse `json:"carrinho"`
	Subtotal        string             `json:"carrinhoTotal"`
	DiscountedTotal *string            `json:"totalDpsDesconto,omitempty"`
	Products        []productResponse  `json:"produtos,omitempty"`
}

func toCartResponse(c *cart.Cart) *cartResponse {
	items := make([]cartItemResponse, len(c.Items))
	for i, it := range c.Items {
		items[i] = cartItemResponse{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		}
	}
	resp := &cartResponse{
		ID:       c.ID,
		Items:    items,
		Subtotal: c.Subtotal.StringFixed(2),
	}
	if c.DiscountedTotal != nil {
		s := c.DiscountedTotal.StringFixed(2)
		resp.DiscountedTotal = &s
	}
	return resp
}

func (h *Handler) setCart(w http.ResponseWriter, r *http.Request) {
	var req setCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	items := make([]cart.SetItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = cart.SetItem{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	c, err := h.carts.SetCart(r.Context(), currentUser(r.Context()).ID, items)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.carts.GetCart(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if resolved == nil {
		// The storefront renders an empty cart from a null body.
		writeJSON(w, http.StatusOK, nil)
		return
	}

	resp := toCartResponse(resolved.Cart)
	resp.Products = make([]productResponse, len(resolved.Products))
	for i, p := range resolved.Products {
		resp.Products[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) emptyCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.EmptyCart(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	if c == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	var req applyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	total, err := h.carts.ApplyCoupon(r.Context(), currentUser(r.Context()).ID, req.Code)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"discountedTotal": total.StringFixed(2),
	})
}
