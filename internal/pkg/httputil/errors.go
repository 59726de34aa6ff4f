package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/sellerdesk/internal/pkg/ctxlog"
)

// ErrorMapping translates a sentinel error into a response.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // falls back to err.Error()
}

// HandleError writes the response of the first mapping matching err.
// Unmapped errors become 500; mapped server-side failures are logged as warnings.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	log := ctxlog.FromContext(ctx)

	for _, m := range mappings {
		if !errors.Is(err, m.Error) {
			continue
		}
		msg := m.Message
		if msg == "" {
			msg = err.Error()
		}
		if m.Status >= http.StatusInternalServerError {
			log.Warn("request failed", "status", m.Status, "error", err)
		}
		Error(w, m.Status, msg)
		return
	}

	log.Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
