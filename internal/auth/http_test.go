// ABOUTME: Tests for the HTTP auth middleware
// ABOUTME: Covers bearer extraction, opaque 401s, and role-gated routes

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomboard/loom/internal/store"
)

func TestRequireAuth_AttachesContext(t *testing.T) {
	authz, tokens, mock := setupAuthorizer(t)
	user := createUser(t, mock, "alice", store.RoleUser)

	token, err := tokens.Issue(user.ID, user.PasswordHash, user.Roles)
	require.NoError(t, err)

	var seen *AuthContext
	handler := authz.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "alice", seen.UserID)
}

func TestRequireAuth_Rejections(t *testing.T) {
	authz, _, _ := setupAuthorizer(t)

	handler := authz.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer garbage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			// Identical body for every failure mode
			assert.JSONEq(t, `{"error":"authentication_error","message":"authentication failed"}`, rec.Body.String())
		})
	}
}

func TestRequireRoleHTTP(t *testing.T) {
	authz, tokens, mock := setupAuthorizer(t)
	user := createUser(t, mock, "alice", store.RoleUser)

	token, err := tokens.Issue(user.ID, user.PasswordHash, user.Roles)
	require.NoError(t, err)

	adminOnly := authz.RequireAuth(authz.RequireRoleHTTP(store.RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)

	// Authenticated but lacking the role: 403, not 401
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAuth_ShortCircuitsBeforeRoleGuard(t *testing.T) {
	authz, _, _ := setupAuthorizer(t)

	expired := NewTokenService(testSecret, -time.Minute)
	token, err := expired.Issue("alice", "h", []store.Role{store.RoleAdmin})
	require.NoError(t, err)

	adminOnly := authz.RequireAuth(authz.RequireRoleHTTP(store.RoleAdmin)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not run")
		})))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	adminOnly.ServeHTTP(rec, req)

	// The token guard fails first; the role guard never runs
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
