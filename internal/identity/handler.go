// Package identity exposes the authenticated principal.
package identity

import (
	"net/http"

	"github.com/bissquit/sellerdesk/internal/domain"
	"github.com/bissquit/sellerdesk/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// Principal is the caller resolved from the access token.
type Principal struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Handler handles HTTP requests for the identity module.
type Handler struct{}

// NewHandler creates a new identity handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/me", h.Me)
}

// Me handles GET /me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	httputil.Success(w, http.StatusOK, Principal{
		UserID: httputil.GetUserID(r.Context()),
		Role:   httputil.GetRole(r.Context()),
	})
}
