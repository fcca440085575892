package httpx

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/auth"
)

// Authenticate requires a valid bearer token and stores its identity in the
// request context.
func Authenticate(v *auth.Verifier, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, r, log, apperr.Unauthenticated("missing bearer token"))
				return
			}
			id, err := v.Parse(strings.TrimSpace(token))
			if err != nil {
				writeError(w, r, log, apperr.Unauthenticated("invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func RequireRole(role auth.Role, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, r, log, apperr.Unauthenticated("missing identity"))
				return
			}
			if id.Role != role {
				writeError(w, r, log, apperr.Forbidden("%s role required", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// callerID returns the authenticated user id. A buyer id supplied by the
// client must name the same user.
func callerID(r *http.Request, supplied string) (string, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return "", apperr.Unauthenticated("missing identity")
	}
	if supplied != "" && supplied != id.UserID {
		return "", apperr.Forbidden("buyerId does not match the authenticated user")
	}
	return id.UserID, nil
}
