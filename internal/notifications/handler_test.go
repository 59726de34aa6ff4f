package notifications

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/sellerdesk/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openAPISpecPath = "../../api/openapi/openapi.yaml"

func newTestRouter(q *Queue) chi.Router {
	h := NewHandler(q)
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/admin", h.RegisterAdminRoutes)
		h.RegisterTriggerRoutes(r)
	})
	return r
}

func serve(t *testing.T, v *testutil.OpenAPIValidator, router http.Handler, method, path string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	resp := rec.Result()
	v.ValidateRequestResponse(t, req, resp)
	return resp
}

func TestHandler_GetStats(t *testing.T) {
	v := testutil.NewOpenAPIValidator(t, openAPISpecPath)
	q := newTestQueue(t, NewMemoryStore(), &mockLookup{}, &mockSender{})
	ctx := t.Context()

	require.NoError(t, q.Enqueue(ctx, NewJob("user-1", testPayload("1"))))
	require.NoError(t, q.Enqueue(ctx, NewJob("user-1", testPayload("2"))))

	resp := serve(t, v, newTestRouter(q), http.MethodGet, "/api/v1/admin/queue/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data QueueStats `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &body)
	assert.Equal(t, QueueStats{Pending: 2}, body.Data)
}

func TestHandler_ProcessQueue(t *testing.T) {
	v := testutil.NewOpenAPIValidator(t, openAPISpecPath)
	q := newTestQueue(t, NewMemoryStore(), &mockLookup{chats: map[string]string{"user-1": "chat-1"}}, &mockSender{})
	ctx := t.Context()

	require.NoError(t, q.Enqueue(ctx, NewJob("user-1", testPayload("1"))))
	require.NoError(t, q.Enqueue(ctx, NewJob("user-2", testPayload("2"))))

	for _, path := range []string{"/api/v1/admin/queue/process", "/api/v1/cron/process-queue"} {
		t.Run(path, func(t *testing.T) {
			resp := serve(t, v, newTestRouter(q), http.MethodPost, path)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var body struct {
				Data PassReport `json:"data"`
			}
			testutil.DecodeJSON(t, resp, &body)
			assert.Equal(t, QueueStats{Delivered: 1, Failed: 1, Abandoned: 1, TotalProcessed: 2}, body.Data.Stats)
		})
	}
}

func TestHandler_ProcessQueue_StoreUnavailable(t *testing.T) {
	v := testutil.NewOpenAPIValidator(t, openAPISpecPath)
	store := &failingStore{MemoryStore: NewMemoryStore(), listErr: errors.New("connection refused")}
	q := newTestQueue(t, store, &mockLookup{}, &mockSender{})

	resp := serve(t, v, newTestRouter(q), http.MethodPost, "/api/v1/admin/queue/process")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body map[string]map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "notification store unavailable", body["error"]["message"])
}

func TestHandler_GetJob(t *testing.T) {
	v := testutil.NewOpenAPIValidator(t, openAPISpecPath)
	q := newTestQueue(t, NewMemoryStore(), &mockLookup{}, &mockSender{})

	job := NewJob("user-1", testPayload("1"))
	require.NoError(t, q.Enqueue(t.Context(), job))

	t.Run("found", func(t *testing.T) {
		resp := serve(t, v, newTestRouter(q), http.MethodGet, "/api/v1/admin/queue/jobs/"+job.ID)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Data Job `json:"data"`
		}
		testutil.DecodeJSON(t, resp, &body)
		assert.Equal(t, job.ID, body.Data.ID)
		assert.Equal(t, JobStatePending, body.Data.State)
		assert.Equal(t, "1", body.Data.Payload.OrderID)
	})

	t.Run("not found", func(t *testing.T) {
		resp := serve(t, v, newTestRouter(q), http.MethodGet, "/api/v1/admin/queue/jobs/unknown")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
