package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/varejo/shop-api/internal/domain/order"
)

type placeOrderRequest struct {
	COD       bool `json:"COD"`
	UseCoupon bool `json:"cupomAplicado"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type paymentResponse struct {
	ID        string    `json:"_id"`
	Method    string    `json:"metodo"`
	Amount    string    `json:"valorBS"`
	Status    string    `json:"status"`
	Currency  string    `json:"moeda"`
	CreatedAt time.Time `json:"criadoEm"`
}

type orderItemResponse struct {
	ProductID string `json:"_id"`
	Title     string `json:"titulo"`
	Quantity  int    `json:"contagem"`
	UnitPrice string `json:"preco"`
}

type orderResponse struct {
	ID        string              `json:"_id"`
	Items     []orderItemResponse `json:"produtos"`
	Payment   paymentResponse     `json:"pagamento"`
	Status    string              `json:"status"`
	CreatedAt time.Time           `json:"criadoEm"`
}

type adminOrderResponse struct {
	orderResponse
	Customer userResponse `json:"comprador"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Title:     it.Title,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		}
	}
	return orderResponse{
		ID:    o.ID,
		Items: items,
		Payment: paymentResponse{
			ID:        o.Payment.ID,
			Method:    o.Payment.Method,
			Amount:    o.Payment.Amount.StringFixed(2),
			Status:    string(o.Payment.Status),
			Currency:  o.Payment.Currency,
			CreatedAt: o.Payment.CreatedAt,
		},
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
	}
}

func toAdminOrderResponse(v order.AdminView) adminOrderResponse {
	return adminOrderResponse{
		orderResponse: toOrderResponse(&v.Order),
		Customer: userResponse{
			ID:        v.Customer.ID,
			FirstName: v.Customer.FirstName,
			LastName:  v.Customer.LastName,
			Email:     v.Customer.Email,
		},
	}
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	_, err := h.orders.PlaceOrder(r.Context(), currentUser(r.Context()).ID, req.COD, req.UseCoupon)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "sucesso"})
}

func (h *Handler) getOwnOrder(w http.ResponseWriter, r *http.Request) {
	v, err := h.orders.GetByUser(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(&v.Order))
}

func (h *Handler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	views, err := h.orders.ListAll(r.Context())
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	resp := make([]adminOrderResponse, len(views))
	for i, v := range views {
		resp[i] = toAdminOrderResponse(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getOrderByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(r, "userID")
	if !ok {
		writeErrorMessage(w, http.StatusBadRequest, "invalid user id")
		return
	}

	v, err := h.orders.GetByUser(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAdminOrderResponse(*v))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(r, "orderID")
	if !ok {
		writeErrorMessage(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	o, err := h.orders.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}
