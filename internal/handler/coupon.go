package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/varejo/shop-api/internal/domain/coupon"
)

type createCouponRequest struct {
	Code        string          `json:"cupom"`
	Percent     decimal.Decimal `json:"desconto"`
	Description string          `json:"descricao"`
}

type couponResponse struct {
	ID          string `json:"_id"`
	Code        string `json:"cupom"`
	Percent     string `json:"desconto"`
	Description string `json:"descricao"`
}

func toCouponResponse(r coupon.Rule) couponResponse {
	return couponResponse{
		ID:          r.ID,
		Code:        r.Code,
		Percent:     r.Percent.String(),
		Description: r.Description,
	}
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		writeErrorMessage(w, http.StatusBadRequest, "cupom is required")
		return
	}

	rule := &coupon.Rule{
		ID:          uuid.New().String(),
		Code:        code,
		Percent:     req.Percent,
		Description: req.Description,
	}
	if err := h.coupons.Create(r.Context(), rule); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCouponResponse(*rule))
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	rules, err := h.coupons.List(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	resp := make([]couponResponse, len(rules))
	for i, rule := range rules {
		resp[i] = toCouponResponse(rule)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	couponID, ok := uuidParam(r, "couponID")
	if !ok {
		writeErrorMessage(w, http.StatusBadRequest, "invalid coupon id")
		return
	}
	if err := h.coupons.Delete(r.Context(), couponID); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "sucesso"})
}
