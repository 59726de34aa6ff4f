package notifications

import (
	"net/http"

	"github.com/bissquit/sellerdesk/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrJobNotFound, Status: http.StatusNotFound, Message: "notification job not found"},
	{Error: ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "notification store unavailable"},
	{Error: ErrQueueClosed, Status: http.StatusServiceUnavailable, Message: "notification queue is shutting down"},
}

// Handler handles HTTP requests for the notification queue.
type Handler struct {
	queue *Queue
}

// NewHandler creates a new notifications handler.
func NewHandler(queue *Queue) *Handler {
	return &Handler{queue: queue}
}

// RegisterAdminRoutes registers queue inspection routes (require admin role).
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/queue", func(r chi.Router) {
		r.Get("/stats", h.GetStats)
		r.Post("/process", h.ProcessQueue)
		r.Get("/jobs/{id}", h.GetJob)
	})
}

// RegisterTriggerRoutes registers the external trigger route (require cron secret).
func (h *Handler) RegisterTriggerRoutes(r chi.Router) {
	r.Post("/cron/process-queue", h.ProcessQueue)
}

// GetStats handles GET /admin/queue/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.GetStats(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, stats)
}

// ProcessQueue handles POST /admin/queue/process and POST /cron/process-queue.
func (h *Handler) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	report, err := h.queue.ProcessQueue(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, report)
}

// GetJob handles GET /admin/queue/jobs/{id}.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, job)
}
