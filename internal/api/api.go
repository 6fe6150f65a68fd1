// ABOUTME: HTTP API surface for loom: route wiring, login, and health
// ABOUTME: Protected routes compose the auth middleware guards before handlers run

package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/loomboard/loom/internal/auth"
	"github.com/loomboard/loom/internal/cache"
	"github.com/loomboard/loom/internal/store"
)

// Server wires the stores, guards, and optional cache into HTTP handlers.
type Server struct {
	store  store.Store
	authz  *auth.Authorizer
	tokens *auth.TokenService
	cache  *cache.Cache
	logger *slog.Logger
}

// New creates an API server. The cache may be nil, in which case reads
// always go to the store.
func New(st store.Store, authz *auth.Authorizer, tokens *auth.TokenService, c *cache.Cache) *Server {
	return &Server{
		store:  st,
		authz:  authz,
		tokens: tokens,
		cache:  c,
		logger: slog.Default().With("component", "api"),
	}
}

// Routes returns the route tree. Every mutating route sits behind the token
// guard; user management additionally requires the admin role.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Public
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/login", s.handleLogin)

	authed := func(h http.HandlerFunc) http.Handler {
		return s.authz.RequireAuth(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return s.authz.RequireAuth(s.authz.RequireRoleHTTP(store.RoleAdmin)(h))
	}

	// Messages
	mux.Handle("GET /api/posts", authed(s.handleListPosts))
	mux.Handle("POST /api/messages", authed(s.handleCreateMessage))
	mux.Handle("PUT /api/messages/{id}", authed(s.handleEditMessage))
	mux.Handle("DELETE /api/messages/{id}", authed(s.handleDeleteMessage))
	mux.Handle("PUT /api/messages/{id}/like", authed(s.handleAddLike))
	mux.Handle("PUT /api/messages/{id}/unlike", authed(s.handleRemoveLike))

	// User management (admin only)
	mux.Handle("POST /api/users", admin(s.handleCreateUser))
	mux.Handle("GET /api/users/{id}", admin(s.handleGetUser))
	mux.Handle("PATCH /api/users/{id}", admin(s.handleUpdateUser))
	mux.Handle("DELETE /api/users/{id}", admin(s.handleDeleteUser))
	mux.Handle("PUT /api/users/{id}/roles/{role}", admin(s.handleAddRole))
	mux.Handle("DELETE /api/users/{id}/roles/{role}", admin(s.handleRemoveRole))

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type loginRequest struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// handleLogin checks credentials and issues a token. An unknown user and a
// wrong password produce the same response, so accounts can't be enumerated.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, validationError("malformed request body"))
		return
	}
	if err := validateID(req.UserID); err != nil {
		writeError(w, err)
		return
	}
	if req.Password == "" || len(req.Password) > maxInputLength {
		writeError(w, validationError("password is required"))
		return
	}

	user, err := s.store.GetUser(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, auth.ErrAuthentication)
			return
		}
		writeError(w, err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, auth.ErrAuthentication)
		return
	}

	token, err := s.tokens.Issue(user.ID, user.PasswordHash, user.Roles)
	if err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
	})
}
