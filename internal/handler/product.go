package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/varejo/shop-api/internal/domain/product"
)

type productResponse struct {
	ID       string `json:"_id"`
	Title    string `json:"titulo"`
	Slug     string `json:"slug"`
	Category string `json:"categoria"`
	Price    string `json:"preco"`
	Quantity int    `json:"quantidade"`
	Sold     int    `json:"vendido"`
}

type createProductRequest struct {
	Title    string          `json:"titulo"`
	Slug     string          `json:"slug"`
	Category string          `json:"categoria"`
	Price    decimal.Decimal `json:"preco"`
	Quantity int             `json:"quantidade"`
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:       p.ID,
		Title:    p.Title,
		Slug:     p.Slug,
		Category: p.Category,
		Price:    p.Price.StringFixed(2),
		Quantity: p.Quantity,
		Sold:     p.Sold,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*p))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" {
		writeErrorMessage(w, http.StatusBadRequest, "titulo is required")
		return
	}
	if req.Price.IsNegative() {
		writeErrorMessage(w, http.StatusBadRequest, "preco must not be negative")
		return
	}

	p := &product.Product{
		ID:       uuid.New().String(),
		Title:    req.Title,
		Slug:     req.Slug,
		Category: req.Category,
		Price:    req.Price,
		Quantity: req.Quantity,
	}
	if err := h.products.Create(r.Context(), p); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(*p))
}
