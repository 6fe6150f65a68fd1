// ABOUTME: Admin-only user management handlers
// ABOUTME: Passwords are hashed here; the store never sees plaintext

package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/loomboard/loom/internal/auth"
	"github.com/loomboard/loom/internal/store"
)

type createUserRequest struct {
	ID       string   `json:"id"`
	Password string   `json:"password"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Roles    []string `json:"roles"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, validationError("malformed request body"))
		return
	}
	if err := validateID(req.ID); err != nil {
		writeError(w, err)
		return
	}
	if req.Password == "" || len(req.Password) > maxInputLength {
		writeError(w, validationError("password is required"))
		return
	}

	roles := make([]store.Role, 0, len(req.Roles))
	for _, raw := range req.Roles {
		role, err := store.ParseRole(raw)
		if err != nil {
			writeError(w, validationError(err.Error()))
			return
		}
		roles = append(roles, role)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := s.store.CreateUser(r.Context(), &store.User{
		ID:           req.ID,
		PasswordHash: hash,
		Email:        req.Email,
		Name:         req.Name,
		Roles:        roles,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("user created", "id", created.ID, "roles", created.Roles)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Password *string `json:"password"`
	Email    *string `json:"email"`
	Name     *string `json:"name"`
}

// handleUpdateUser applies a partial profile update. Absent fields are left
// alone; an explicit empty string clears the field.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, validationError("malformed request body"))
		return
	}

	update := store.UserUpdate{Email: req.Email, Name: req.Name}
	if req.Password != nil {
		if *req.Password == "" || len(*req.Password) > maxInputLength {
			writeError(w, validationError("password must be non-empty"))
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			writeError(w, err)
			return
		}
		update.PasswordHash = &hash
	}

	updated, err := s.store.UpdateUser(r.Context(), r.PathValue("id"), update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := s.store.DeleteUser(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("user deleted", "id", id)
	if deleted == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func (s *Server) handleAddRole(w http.ResponseWriter, r *http.Request) {
	s.handleRoleChange(w, r, s.store.AddRole)
}

func (s *Server) handleRemoveRole(w http.ResponseWriter, r *http.Request) {
	s.handleRoleChange(w, r, s.store.RemoveRole)
}

// handleRoleChange applies an idempotent role-set mutation. Granting a held
// role or revoking an absent one succeeds without effect.
func (s *Server) handleRoleChange(w http.ResponseWriter, r *http.Request, mutate func(ctx context.Context, id string, role store.Role) error) {
	role, err := store.ParseRole(r.PathValue("role"))
	if err != nil {
		writeError(w, validationError(err.Error()))
		return
	}

	if err := mutate(r.Context(), r.PathValue("id"), role); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
