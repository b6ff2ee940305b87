package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/varejo/shop-api/internal/domain/user"
)

type contextKey struct{ name string }

var userContextKey = &contextKey{"user"}

// currentUser returns the authenticated account stored by authenticate.
func currentUser(ctx context.Context) *user.User {
	u, _ := ctx.Value(userContextKey).(*user.User)
	return u
}

// authenticate resolves the Bearer token into a full account record and
// stores it in the request context. Blocked accounts are rejected even
// when their token is still valid.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			writeErrorMessage(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := h.verifier.Verify(raw)
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}

		u, err := h.accounts.GetByID(r.Context(), claims.Subject)
		if err != nil {
			// The account behind a valid token is gone; treat as expired.
			writeErrorMessage(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if u.Blocked {
			writeError(r.Context(), w, user.ErrBlocked)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, u)
		ctx = zctx.With(ctx, zap.String("user_id", u.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminOnly rejects authenticated non-admin users. It must run after
// authenticate.
func (h *Handler) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := currentUser(r.Context())
		if u == nil || u.Role != user.RoleAdmin {
			writeError(r.Context(), w, user.ErrNotAdmin)
			return
		}
		next.ServeHTTP(w, r)
	})
}
