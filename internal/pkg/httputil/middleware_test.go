package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/sellerdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type mockValidator struct {
	userID string
	role   domain.Role
	err    error
}

func (m *mockValidator) ValidateToken(_ context.Context, _ string) (string, domain.Role, error) {
	return m.userID, m.role, m.err
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	Success(w, http.StatusOK, map[string]string{
		"user_id": GetUserID(r.Context()),
		"role":    string(GetRole(r.Context())),
	})
}

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		validator  *mockValidator
		wantStatus int
	}{
		{"missing header", "", &mockValidator{}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", &mockValidator{}, http.StatusUnauthorized},
		{"invalid token", "Bearer bad", &mockValidator{err: errors.New("expired")}, http.StatusUnauthorized},
		{"valid token", "Bearer good", &mockValidator{userID: "u1", role: domain.RoleSeller}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			AuthMiddleware(tt.validator)(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		role       domain.Role
		wantStatus int
	}{
		{"seller denied", domain.RoleSeller, http.StatusForbidden},
		{"admin allowed", domain.RoleAdmin, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer token")
			rec := httptest.NewRecorder()

			chain := AuthMiddleware(&mockValidator{userID: "u1", role: tt.role})(
				RequireRole(domain.RoleAdmin)(http.HandlerFunc(okHandler)),
			)
			chain.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCronSecretMiddleware(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name       string
		hash       string
		secret     string
		wantStatus int
	}{
		{"disabled", "", "s3cret", http.StatusForbidden},
		{"missing secret", string(hash), "", http.StatusUnauthorized},
		{"wrong secret", string(hash), "guess", http.StatusUnauthorized},
		{"valid secret", string(hash), "s3cret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/cron/process-queue", nil)
			if tt.secret != "" {
				req.Header.Set(CronSecretHeader, tt.secret)
			}
			rec := httptest.NewRecorder()

			CronSecretMiddleware(tt.hash)(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"https://dash.example.com"})(http.HandlerFunc(okHandler))

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://dash.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "https://dash.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestHandleError(t *testing.T) {
	errNotFound := errors.New("not found")
	mappings := []ErrorMapping{{Error: errNotFound, Status: http.StatusNotFound}}

	rec := httptest.NewRecorder()
	HandleError(context.Background(), rec, errors.Join(errNotFound, errors.New("ctx")), mappings)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	HandleError(context.Background(), rec, errors.New("boom"), mappings)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":{"message":"internal error"}}`, rec.Body.String())
}
