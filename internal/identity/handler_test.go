package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/sellerdesk/internal/domain"
	"github.com/bissquit/sellerdesk/internal/identity/supabase"
	"github.com/bissquit/sellerdesk/internal/pkg/httputil"
	"github.com/bissquit/sellerdesk/internal/testutil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func TestHandler_Me(t *testing.T) {
	v := testutil.NewOpenAPIValidator(t, "../../api/openapi/openapi.yaml")
	validator, err := supabase.NewValidator(supabase.Config{JWTSecret: testSecret, Audience: supabase.DefaultAudience})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httputil.AuthMiddleware(validator))
		NewHandler().RegisterProtectedRoutes(r)
	})

	tests := []struct {
		name     string
		role     string
		wantRole domain.Role
	}{
		{"seller", "", domain.RoleSeller},
		{"admin", "admin", domain.RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
			req.Header.Set("Authorization", "Bearer "+testutil.SupabaseToken(t, testSecret, "user-42", tt.role))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			resp := rec.Result()
			v.ValidateRequestResponse(t, req, resp)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			var body struct {
				Data Principal `json:"data"`
			}
			testutil.DecodeJSON(t, resp, &body)
			assert.Equal(t, Principal{UserID: "user-42", Role: tt.wantRole}, body.Data)
		})
	}

	t.Run("missing token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		resp := rec.Result()
		v.ValidateRequestResponse(t, req, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
