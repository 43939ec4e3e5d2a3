package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/josephasare/virtual-card-service/internal/application"
	"github.com/josephasare/virtual-card-service/internal/interfaces/rest"
)

// AdminKey guards the admin surface with a shared key sent in the
// X-Admin-Key header.
func AdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-Admin-Key")
			if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
				rest.WriteError(w, application.NewUnauthorizedError())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
