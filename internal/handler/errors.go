package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/varejo/shop-api/internal/domain/cart"
	"github.com/varejo/shop-api/internal/domain/coupon"
	"github.com/varejo/shop-api/internal/domain/order"
	"github.com/varejo/shop-api/internal/domain/product"
	"github.com/varejo/shop-api/internal/domain/user"
	"github.com/varejo/shop-api/pkg/token"
)

// errorResponse is the uniform error body.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

// writeError maps domain errors onto HTTP statuses. Anything unmapped is a
// 500 with a generic body; the real error only goes to the log.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		zctx.From(ctx).Error("Request failed", zap.Error(err))
		writeErrorMessage(w, status, "internal server error")
		return
	}
	writeErrorMessage(w, status, err.Error())
}

func statusOf(err error) int {
	var (
		vErr  *user.ValidationError
		iqErr *cart.InvalidQuantityError
		usErr *order.UnknownStatusError
		itErr *order.InvalidTransitionError
	)
	switch {
	case errors.As(err, &vErr),
		errors.As(err, &iqErr),
		errors.Is(err, order.ErrPaymentRequired),
		errors.Is(err, coupon.ErrInvalidPercent):
		return http.StatusBadRequest
	case errors.Is(err, user.ErrInvalidCredentials),
		errors.Is(err, token.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, user.ErrNotAdmin),
		errors.Is(err, user.ErrBlocked):
		return http.StatusForbidden
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, cart.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, user.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, coupon.ErrInvalidCoupon),
		errors.As(err, &usErr),
		errors.As(err, &itErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
