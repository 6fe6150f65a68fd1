// ABOUTME: HTTP middleware for token authentication on API endpoints
// ABOUTME: Extracts the bearer token and adds the auth context to the request

package auth

import (
	"net/http"
	"strings"

	"github.com/loomboard/loom/internal/store"
)

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// RequireAuth creates middleware that runs the token guard and attaches the
// AuthContext to the request context. Any failure yields an opaque 401; the
// specific failing check is never revealed to the client.
func (a *Authorizer) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
		if errMsg != "" {
			writeAuthError(w)
			return
		}

		authCtx, err := a.Authenticate(r.Context(), token)
		if err != nil {
			writeAuthError(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
	})
}

// RequireRoleHTTP creates middleware that runs the role guard against the
// authenticated token's role claim. Must be used after RequireAuth.
func (a *Authorizer) RequireRoleHTTP(role store.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := FromContext(r.Context())
			if err := a.RequireRole(authCtx, role); err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized_error","message":"insufficient permissions"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"authentication_error","message":"authentication failed"}`))
}
