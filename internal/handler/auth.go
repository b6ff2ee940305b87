package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/varejo/shop-api/internal/domain/user"
)

type registerRequest struct {
	FirstName string `json:"primeiroNome"`
	LastName  string `json:"segundoNome"`
	Email     string `json:"email"`
	Phone     string `json:"celular"`
	Password  string `json:"senha"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

type userResponse struct {
	ID        string `json:"_id"`
	FirstName string `json:"primeiroNome"`
	LastName  string `json:"segundoNome"`
	Email     string `json:"email"`
	Phone     string `json:"celular"`
	Role      string `json:"role"`
}

type loginResponse struct {
	userResponse
	Token string `json:"token"`
}

func toUserResponse(u *user.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      string(u.Role),
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := h.users.Register(r.Context(), user.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
	})
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r, h.users.Login)
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r, h.users.AdminLogin)
}

func (h *Handler) blockUser(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

func (h *Handler) unblockUser(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, blocked bool) {
	id, ok := uuidParam(r, "userID")
	if !ok {
		writeErrorMessage(w, http.StatusBadRequest, "invalid user id")
		return
	}

	u, err := h.accounts.SetBlocked(r.Context(), id, blocked)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) handleLogin(
	w http.ResponseWriter,
	r *http.Request,
	login func(ctx context.Context, email, password string) (*user.User, string, error),
) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, tok, err := login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		userResponse: toUserResponse(u),
		Token:        tok,
	})
}
