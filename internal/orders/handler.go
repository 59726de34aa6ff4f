package orders

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bissquit/sellerdesk/internal/notifications"
	"github.com/bissquit/sellerdesk/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// TopicHeader carries the WooCommerce webhook topic.
const TopicHeader = "X-WC-Webhook-Topic"

const maxBodySize = 1 << 20

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrInvalidOrder, Status: http.StatusBadRequest, Message: "invalid order payload"},
	{Error: notifications.ErrInvalidJob, Status: http.StatusBadRequest, Message: "invalid order payload"},
	{Error: notifications.ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "notification store unavailable"},
}

// Handler handles storefront webhooks.
type Handler struct {
	service *Service
}

// NewHandler creates a new orders handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers webhook routes (public).
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/woocommerce/{userID}", h.ReceiveWebhook)
}

// ReceiveWebhook handles POST /webhooks/woocommerce/{userID}.
func (h *Handler) ReceiveWebhook(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := uuid.Parse(userID); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "failed to read body")
		return
	}

	// WooCommerce confirms a new webhook with a form-encoded ping.
	if isPing(r, body) {
		httputil.Success(w, http.StatusOK, Result{Status: StatusPong})
		return
	}

	result, err := h.service.HandleEvent(r.Context(), userID, r.Header.Get(TopicHeader), body)
	if err != nil {
		if errors.Is(err, ErrInvalidOrder) {
			httputil.ValidationError(w, err)
			return
		}
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusAccepted, result)
}

func isPing(r *http.Request, body []byte) bool {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		return true
	}
	return r.Header.Get(TopicHeader) == "" && bytes.HasPrefix(body, []byte("webhook_id="))
}
