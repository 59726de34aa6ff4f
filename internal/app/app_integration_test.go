//go:build integration

package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bissquit/sellerdesk/internal/config"
	"github.com/bissquit/sellerdesk/internal/notifications"
	"github.com/bissquit/sellerdesk/internal/orders"
	"github.com/bissquit/sellerdesk/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	openAPISpecPath = "api/openapi/openapi.yaml"
	testJWTSecret   = "integration-test-jwt-secret"
	testCronSecret  = "integration-cron-secret"
)

const orderBody = `{
	"id": 4242,
	"number": "4242",
	"status": "processing",
	"currency": "EUR",
	"total": "59.90",
	"date_created_gmt": "2024-05-01T09:30:00",
	"billing": {"first_name": "Ada", "last_name": "Lovelace", "email": "ada@example.com"},
	"line_items": [{"name": "Notebook", "quantity": 1, "price": 59.9}]
}`

type testEnv struct {
	app    *App
	server *httptest.Server
	client *testutil.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	_, dsn := testutil.NewTestDB(t)

	hash, err := bcrypt.GenerateFromPassword([]byte(testCronSecret), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Server.MetricsPort = "0"
	cfg.Database.URL = dsn
	cfg.Database.ConnectAttempts = 3
	cfg.Log = config.LogConfig{Level: "error", Format: "text"}
	cfg.Auth.JWTSecret = testJWTSecret
	cfg.Auth.CronSecretHash = string(hash)
	// Passes are driven by the tests.
	cfg.Notifications.SchedulerEnabled = false
	require.NoError(t, cfg.Validate())

	application, err := New(&cfg)
	require.NoError(t, err)

	server := httptest.NewServer(application.Router())
	t.Cleanup(func() {
		server.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = application.Shutdown(ctx)
	})

	validator, err := testutil.LoadOpenAPIValidator(openAPISpecPath)
	require.NoError(t, err)
	client := testutil.NewClientWithValidator(server.URL, validator)
	client.SetT(t)

	return &testEnv{app: application, server: server, client: client}
}

func TestMain(m *testing.M) {
	// http.ServeFile in the router resolves the OpenAPI document relative to the repository root.
	if err := os.Chdir("../.."); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestApp_WebhookToQueuePass(t *testing.T) {
	env := newTestEnv(t)
	sellerID := uuid.NewString()
	sellerToken := testutil.SupabaseToken(t, testJWTSecret, sellerID, "")
	adminToken := testutil.SupabaseToken(t, testJWTSecret, uuid.NewString(), "admin")

	seller := env.client.WithToken(sellerToken)
	resp, err := seller.PUT("/api/v1/me/telegram", map[string]interface{}{"chat_id": "100200300"})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	webhook := env.client.WithHeader(orders.TopicHeader, orders.TopicOrderCreated)
	resp, err = webhook.PostRaw("/api/v1/webhooks/woocommerce/"+sellerID, "application/json", []byte(orderBody))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted struct {
		Data orders.Result `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &accepted)
	require.Equal(t, orders.StatusAccepted, accepted.Data.Status)

	admin := env.client.WithToken(adminToken)
	resp, err = admin.GET("/api/v1/admin/queue/stats")
	require.NoError(t, err)
	var stats struct {
		Data notifications.QueueStats `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &stats)
	assert.Equal(t, notifications.QueueStats{Pending: 1}, stats.Data)

	// Telegram is disabled, so the pass abandons the job on its first attempt.
	cron := env.client.WithHeader("X-Cron-Secret", testCronSecret)
	resp, err = cron.POST("/api/v1/cron/process-queue", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report struct {
		Data notifications.PassReport `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &report)
	assert.Equal(t, 1, report.Data.Attempted)
	assert.Equal(t, 1, report.Data.Abandoned)
	assert.Equal(t, notifications.QueueStats{Failed: 1, Abandoned: 1, TotalProcessed: 1}, report.Data.Stats)

	resp, err = admin.GET("/api/v1/admin/queue/jobs/" + accepted.Data.JobID)
	require.NoError(t, err)
	var job struct {
		Data notifications.Job `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &job)
	assert.Equal(t, notifications.JobStateAbandoned, job.Data.State)
	assert.Equal(t, 1, job.Data.AttemptCount)
	assert.Contains(t, job.Data.LastError, "disabled")
	assert.Equal(t, "Ada Lovelace", job.Data.Payload.CustomerName)
}

func TestApp_AccessControl(t *testing.T) {
	env := newTestEnv(t)
	client := env.client.WithoutValidation()
	sellerToken := testutil.SupabaseToken(t, testJWTSecret, uuid.NewString(), "")

	tests := []struct {
		name     string
		client   *testutil.Client
		method   string
		path     string
		wantCode int
	}{
		{"settings without token", client, http.MethodGet, "/api/v1/me/telegram", http.StatusUnauthorized},
		{"admin as seller", client.WithToken(sellerToken), http.MethodGet, "/api/v1/admin/queue/stats", http.StatusForbidden},
		{"cron without secret", client, http.MethodPost, "/api/v1/cron/process-queue", http.StatusUnauthorized},
		{"cron with wrong secret", client.WithHeader("X-Cron-Secret", "nope"), http.MethodPost, "/api/v1/cron/process-queue", http.StatusUnauthorized},
		{"webhook invalid user", client, http.MethodPost, "/api/v1/webhooks/woocommerce/not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				resp *http.Response
				err  error
			)
			if tt.method == http.MethodGet {
				resp, err = tt.client.GET(tt.path)
			} else {
				resp, err = tt.client.POST(tt.path, map[string]interface{}{})
			}
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.wantCode, resp.StatusCode)
		})
	}
}

func TestApp_HealthAndVersion(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := env.client.GET(path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	resp, err := env.client.GET("/version")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err = env.client.WithoutValidation().GET("/api/openapi.yaml")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()
}
