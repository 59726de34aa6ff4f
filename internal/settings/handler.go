package settings

import (
	"encoding/json"
	"net/http"

	"github.com/bissquit/sellerdesk/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrSettingsNotFound, Status: http.StatusNotFound, Message: "telegram settings not found"},
}

// Handler handles HTTP requests for seller settings.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new settings handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers settings routes (require auth).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/me/telegram", func(r chi.Router) {
		r.Get("/", h.GetTelegram)
		r.Put("/", h.PutTelegram)
		r.Delete("/", h.DeleteTelegram)
	})
}

// TelegramSettingsRequest represents request body for saving Telegram settings.
type TelegramSettingsRequest struct {
	ChatID  string `json:"chat_id" validate:"required,max=64"`
	Enabled *bool  `json:"enabled"`
}

// GetTelegram handles GET /me/telegram.
func (h *Handler) GetTelegram(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.GetTelegram(r.Context(), httputil.GetUserID(r.Context()))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, settings)
}

// PutTelegram handles PUT /me/telegram.
func (h *Handler) PutTelegram(w http.ResponseWriter, r *http.Request) {
	var req TelegramSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	settings, err := h.service.SaveTelegram(r.Context(), httputil.GetUserID(r.Context()), req.ChatID, enabled)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, settings)
}

// DeleteTelegram handles DELETE /me/telegram.
func (h *Handler) DeleteTelegram(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteTelegram(r.Context(), httputil.GetUserID(r.Context())); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
