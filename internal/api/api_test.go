// ABOUTME: End-to-end handler tests over the in-memory store
// ABOUTME: Exercises auth flow, guards, message lifecycle, and user management

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomboard/loom/internal/auth"
	"github.com/loomboard/loom/internal/store"
)

var testSecret = []byte("test-secret-at-least-32-bytes-long!")

func newTestServer(t *testing.T) (http.Handler, *store.MockStore) {
	t.Helper()
	st := store.NewMockStore()
	tokens := auth.NewTokenService(testSecret, time.Hour)
	authz := auth.NewAuthorizer(tokens, st, st)
	return New(st, authz, tokens, nil).Routes(), st
}

func createUser(t *testing.T, st *store.MockStore, id, password string, roles ...store.Role) {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	_, err = st.CreateUser(context.Background(), &store.User{
		ID:           id,
		PasswordHash: hash,
		Roles:        roles,
	})
	require.NoError(t, err)
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler, id, password string) string {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/api/login", "", map[string]string{
		"user_id": id, "password": password,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp loginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) *store.Message {
	t.Helper()
	var msg store.Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	return &msg
}

func TestLogin(t *testing.T) {
	h, st := newTestServer(t)
	createUser(t, st, "alice", "hunter22", store.RoleUser)

	t.Run("valid credentials", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/api/login", "", map[string]string{
			"user_id": "alice", "password": "hunter22",
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp loginResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, int64(3600), resp.ExpiresIn)
	})

	t.Run("wrong password and unknown user are indistinguishable", func(t *testing.T) {
		wrongPass := doRequest(t, h, http.MethodPost, "/api/login", "", map[string]string{
			"user_id": "alice", "password": "nope",
		})
		unknownUser := doRequest(t, h, http.MethodPost, "/api/login", "", map[string]string{
			"user_id": "nobody", "password": "hunter22",
		})

		assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
		assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
		assert.Equal(t, wrongPass.Body.String(), unknownUser.Body.String())
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/api/login", "", map[string]string{"user_id": "alice"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h, _ := newTestServer(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/posts"},
		{http.MethodPost, "/api/messages"},
		{http.MethodPut, "/api/messages/m1"},
		{http.MethodDelete, "/api/messages/m1"},
		{http.MethodPut, "/api/messages/m1/like"},
		{http.MethodPost, "/api/users"},
	} {
		rec := doRequest(t, h, route.method, route.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", route.method, route.path)
	}
}

func TestCreateMessage(t *testing.T) {
	h, st := newTestServer(t)
	createUser(t, st, "poster", "pw123456", store.RoleUser, store.RolePoster)
	createUser(t, st, "reader", "pw123456", store.RoleUser)

	posterToken := login(t, h, "poster", "pw123456")
	readerToken := login(t, h, "reader", "pw123456")

	t.Run("top-level post needs poster role", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/api/messages", readerToken,
			map[string]string{"content": "hello"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var postID string
	t.Run("poster creates post", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/api/messages", posterToken,
			map[string]string{"content": "first post"})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		msg := decodeMessage(t, rec)
		assert.Equal(t, store.MessageKindPost, msg.Kind)
		assert.Equal(t, "poster", msg.OwnerID)
		assert.NotEmpty(t, msg.ID)
		postID = msg.ID
	})

	t.Run("any user can reply", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/api/messages", readerToken,
			map[string]string{"content": "a reply", "parent_id": postID})
		require.Equal(t, http.StatusCreated, rec.Code)

		msg := decodeMessage(t, rec)
		assert.Equal(t, store.MessageKindComment, msg.Kind)
		assert.Equal(t, postID, msg.ParentID)
	})

	t.Run("reply to missing parent rejected", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/api/messages", readerToken,
			map[string]string{"content": "orphan", "parent_id": "no-such-id"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty content rejected", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/api/messages", posterToken,
			map[string]string{"content": ""})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized content rejected", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/api/messages", posterToken,
			map[string]string{"content": string(make([]byte, maxInputLength+1))})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEditMessage_Ownership(t *testing.T) {
	h, st := newTestServer(t)
	createUser(t, st, "owner", "pw123456", store.RoleUser, store.RolePoster)
	createUser(t, st, "intruder", "pw123456", store.RoleUser, store.RolePoster)

	ownerToken := login(t, h, "owner", "pw123456")
	intruderToken := login(t, h, "intruder", "pw123456")

	rec := doRequest(t, h, http.MethodPost, "/api/messages", ownerToken,
		map[string]string{"content": "original"})
	require.Equal(t, http.StatusCreated, rec.Code)
	postID := decodeMessage(t, rec).ID

	t.Run("non-owner is rejected before any change", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPut, "/api/messages/"+postID, intruderToken,
			map[string]string{"content": "hijacked"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		msg, err := st.GetMessage(context.Background(), postID)
		require.NoError(t, err)
		assert.Equal(t, "original", msg.Content)
	})

	t.Run("owner edits", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPut, "/api/messages/"+postID, ownerToken,
			map[string]string{"content": "revised"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "revised", decodeMessage(t, rec).Content)
	})

	t.Run("missing message is 404", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPut, "/api/messages/no-such-id", ownerToken,
			map[string]string{"content": "whatever"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDeleteMessage_Cascade(t *testing.T) {
	h, st := newTestServer(t)
	createUser(t, st, "owner", "pw123456", store.RoleUser, store.RolePoster)
	createUser(t, st, "replier", "pw123456", store.RoleUser)

	ownerToken := login(t, h, "owner", "pw123456")
	replierToken := login(t, h, "replier", "pw123456")

	rec := doRequest(t, h, http.MethodPost, "/api/messages", ownerToken,
		map[string]string{"content": "root"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rootID := decodeMessage(t, rec).ID

	rec = doRequest(t, h, http.MethodPost, "/api/messages", replierToken,
		map[string]string{"content": "reply", "parent_id": rootID})
	require.Equal(t, http.StatusCreated, rec.Code)
	replyID := decodeMessage(t, rec).ID

	rec = doRequest(t, h, http.MethodPost, "/api/messages", replierToken,
		map[string]string{"content": "nested reply", "parent_id": replyID})
	require.Equal(t, http.StatusCreated, rec.Code)
	nestedID := decodeMessage(t, rec).ID

	t.Run("replier cannot delete the root", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodDelete, "/api/messages/"+rootID, replierToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner delete removes the whole subtree", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodDelete, "/api/messages/"+rootID, ownerToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "root", decodeMessage(t, rec).Content)

		ctx := context.Background()
		for _, id := range []string{rootID, replyID, nestedID} {
			_, err := st.GetMessage(ctx, id)
			assert.ErrorIs(t, err, store.ErrNotFound, "message %s should be gone", id)
		}
	})
}

func TestLikes_Idempotent(t *testing.T) {
	h, st := newTestServer(t)
	createUser(t, st, "poster", "pw123456", store.RoleUser, store.RolePoster)
	createUser(t, st, "fan", "pw123456", store.RoleUser)

	posterToken := login(t, h, "poster", "pw123456")
	fanToken := login(t, h, "fan", "pw123456")

	rec := doRequest(t, h, http.MethodPost, "/api/messages", posterToken,
		map[string]string{"content": "likeable"})
	require.Equal(t, http.StatusCreated, rec.Code)
	postID := decodeMessage(t, rec).ID

	likePath := fmt.Sprintf("/api/messages/%s/like", postID)
	for i := 0; i < 2; i++ {
		rec := doRequest(t, h, http.MethodPut, likePath, fanToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	msg, err := st.GetMessage(context.Background(), postID)
	require.NoError(t, err)
	assert.Equal(t, []string{"fan"}, msg.Likes)

	unlikePath := fmt.Sprintf("/api/messages/%s/unlike", postID)
	for i := 0; i < 2; i++ {
		rec := doRequest(t, h, http.MethodPut, unlikePath, fanToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	msg, err = st.GetMessage(context.Background(), postID)
	require.NoError(t, err)
	assert.Empty(t, msg.Likes)

	t.Run("like on missing message is 404", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPut, "/api/messages/no-such-id/like", fanToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListPosts(t *testing.T) {
	h, st := newTestServer(t)
	createUser(t, st, "poster", "pw123456", store.RoleUser, store.RolePoster)
	token := login(t, h, "poster", "pw123456")

	var postIDs []string
	for i := 0; i < 5; i++ {
		rec := doRequest(t, h, http.MethodPost, "/api/messages", token,
			map[string]string{"content": fmt.Sprintf("post %d", i)})
		require.Equal(t, http.StatusCreated, rec.Code)
		postIDs = append(postIDs, decodeMessage(t, rec).ID)
	}
	// A comment must never show up in the listing.
	rec := doRequest(t, h, http.MethodPost, "/api/messages", token,
		map[string]string{"content": "reply", "parent_id": postIDs[0]})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("insertion order with pagination", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/api/posts?limit=2&offset=1", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var posts []*store.Message
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&posts))
		require.Len(t, posts, 2)
		assert.Equal(t, "post 1", posts[0].Content)
		assert.Equal(t, "post 2", posts[1].Content)
	})

	t.Run("default page excludes comments", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/api/posts", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var posts []*store.Message
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&posts))
		assert.Len(t, posts, 5)
	})

	t.Run("bad pagination params", func(t *testing.T) {
		for _, query := range []string{"limit=0", "limit=1001", "limit=abc", "offset=-1"} {
			rec := doRequest(t, h, http.MethodGet, "/api/posts?"+query, token, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		}
	})
}

func TestUserManagement(t *testing.T) {
	h, st := newTestServer(t)
	createUser(t, st, "root", "pw123456", store.RoleUser, store.RoleAdmin)
	createUser(t, st, "pleb", "pw123456", store.RoleUser)

	adminToken := login(t, h, "root", "pw123456")
	plebToken := login(t, h, "pleb", "pw123456")

	t.Run("non-admin is rejected", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/api/users", plebToken,
			map[string]interface{}{"id": "x", "password": "pw123456"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin creates user", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/api/users", adminToken, map[string]interface{}{
			"id": "carol", "password": "pw123456", "email": "carol@example.com",
			"name": "Carol", "roles": []string{"user"},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "password", "hash must never serialize")

		user, err := st.GetUser(context.Background(), "carol")
		require.NoError(t, err)
		assert.True(t, auth.CheckPassword(user.PasswordHash, "pw123456"))
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/api/users", adminToken,
			map[string]interface{}{"id": "carol", "password": "other"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPost, "/api/users", adminToken, map[string]interface{}{
			"id": "dave", "password": "pw123456", "roles": []string{"superuser"},
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("partial update", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodPatch, "/api/users/carol", adminToken,
			map[string]string{"name": "Caroline"})
		require.Equal(t, http.StatusOK, rec.Code)

		user, err := st.GetUser(context.Background(), "carol")
		require.NoError(t, err)
		assert.Equal(t, "Caroline", user.Name)
		assert.Equal(t, "carol@example.com", user.Email)
	})

	t.Run("grant and revoke roles idempotently", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			rec := doRequest(t, h, http.MethodPut, "/api/users/carol/roles/post_user", adminToken, nil)
			assert.Equal(t, http.StatusNoContent, rec.Code)
		}
		user, err := st.GetUser(context.Background(), "carol")
		require.NoError(t, err)
		assert.Equal(t, []store.Role{store.RoleUser, store.RolePoster}, user.Roles)

		rec := doRequest(t, h, http.MethodDelete, "/api/users/carol/roles/post_user", adminToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = doRequest(t, h, http.MethodPut, "/api/users/carol/roles/bogus", adminToken, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("role revocation invalidates live tokens", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodDelete, "/api/users/pleb/roles/user", adminToken, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doRequest(t, h, http.MethodGet, "/api/posts", plebToken, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("delete user twice", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodDelete, "/api/users/carol", adminToken, nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(t, h, http.MethodDelete, "/api/users/carol", adminToken, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("get missing user is 404", func(t *testing.T) {
		rec := doRequest(t, h, http.MethodGet, "/api/users/carol", adminToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t)
	rec := doRequest(t, h, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
