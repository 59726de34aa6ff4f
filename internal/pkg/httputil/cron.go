package httputil

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// CronSecretHeader carries the shared secret of external schedulers.
const CronSecretHeader = "X-Cron-Secret"

// CronSecretMiddleware admits requests whose X-Cron-Secret matches the bcrypt hash.
// With an empty hash every request is rejected.
func CronSecretMiddleware(secretHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secretHash == "" {
				Error(w, http.StatusForbidden, "cron trigger is disabled")
				return
			}

			secret := r.Header.Get(CronSecretHeader)
			if secret == "" {
				Error(w, http.StatusUnauthorized, "missing cron secret")
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(secret)); err != nil {
				Error(w, http.StatusUnauthorized, "invalid cron secret")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
