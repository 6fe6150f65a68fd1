// ABOUTME: Message handlers: post listing, create, edit, delete, likes
// ABOUTME: Ownership and role guards run before any mutation touches the store

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/loomboard/loom/internal/auth"
	"github.com/loomboard/loom/internal/store"
)

const postsCacheTTL = 15 * time.Second

func postsCacheKey(limit, offset int) string {
	return fmt.Sprintf("posts:limit=%d:offset=%d", limit, offset)
}

// handleListPosts returns the top-level posts page. Comments never appear
// here; clients walk reply sets through individual message reads.
func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseListParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	key := postsCacheKey(limit, offset)
	var posts []*store.Message
	if s.cache.Get(r.Context(), key, &posts) {
		writeJSON(w, http.StatusOK, posts)
		return
	}

	posts, err = s.store.ListPosts(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	s.cache.Set(r.Context(), key, posts, postsCacheTTL)
	writeJSON(w, http.StatusOK, posts)
}

type createMessageRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parent_id"`
}

// handleCreateMessage creates a post or a comment. Top-level posts need the
// poster role; replies need an existing parent but no extra role, so any
// authenticated user can join a thread.
func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustFromContext(r.Context())

	var req createMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, validationError("malformed request body"))
		return
	}
	if err := validateContent(req.Content); err != nil {
		writeError(w, err)
		return
	}

	var msg *store.Message
	if req.ParentID == "" {
		if err := s.authz.RequireRole(authCtx, store.RolePoster); err != nil {
			writeError(w, err)
			return
		}
		msg = store.NewPost(authCtx.UserID, req.Content)
	} else {
		if _, err := s.store.GetMessage(r.Context(), req.ParentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, validationError("parent message does not exist"))
				return
			}
			writeError(w, err)
			return
		}
		msg = store.NewComment(authCtx.UserID, req.Content, req.ParentID)
	}

	created, err := s.store.CreateMessage(r.Context(), msg)
	if err != nil {
		writeError(w, err)
		return
	}

	s.cache.DelPattern(r.Context(), "posts:*")
	s.logger.Info("message created", "id", created.ID, "kind", created.Kind, "owner", created.OwnerID)
	writeJSON(w, http.StatusCreated, created)
}

type editMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustFromContext(r.Context())
	id := r.PathValue("id")

	var req editMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, validationError("malformed request body"))
		return
	}
	if err := validateContent(req.Content); err != nil {
		writeError(w, err)
		return
	}

	if err := s.authz.RequireOwner(r.Context(), authCtx, id); err != nil {
		writeError(w, err)
		return
	}

	updated, err := s.store.EditMessage(r.Context(), id, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}

	s.cache.DelPattern(r.Context(), "posts:*")
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteMessage removes a message and its whole reply subtree. Only
// the root must be owned by the caller; replies by other users go with it.
func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustFromContext(r.Context())
	id := r.PathValue("id")

	if err := s.authz.RequireOwner(r.Context(), authCtx, id); err != nil {
		writeError(w, err)
		return
	}

	deleted, err := s.store.DeleteMessage(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	s.cache.DelPattern(r.Context(), "posts:*")
	s.logger.Info("message deleted", "id", id, "owner", authCtx.UserID)
	if deleted == nil {
		// Lost a race with another delete; the outcome is the same.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

func (s *Server) handleAddLike(w http.ResponseWriter, r *http.Request) {
	s.handleLike(w, r, s.store.AddLike)
}

func (s *Server) handleRemoveLike(w http.ResponseWriter, r *http.Request) {
	s.handleLike(w, r, s.store.RemoveLike)
}

// handleLike applies an idempotent like-set mutation for the caller.
// Repeating either direction is not an error.
func (s *Server) handleLike(w http.ResponseWriter, r *http.Request, mutate func(ctx context.Context, id, userID string) error) {
	authCtx := auth.MustFromContext(r.Context())
	id := r.PathValue("id")

	if err := mutate(r.Context(), id, authCtx.UserID); err != nil {
		writeError(w, err)
		return
	}

	s.cache.DelPattern(r.Context(), "posts:*")
	w.WriteHeader(http.StatusNoContent)
}
