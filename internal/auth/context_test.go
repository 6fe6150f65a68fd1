// ABOUTME: Tests for AuthContext propagation via context.Context
// ABOUTME: Covers WithAuth/FromContext round trips and the Must variant

package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomboard/loom/internal/store"
)

func TestContext_RoundTrip(t *testing.T) {
	authCtx := &AuthContext{UserID: "alice", Roles: []store.Role{store.RoleUser}}

	ctx := WithAuth(context.Background(), authCtx)
	got := FromContext(ctx)

	require.NotNil(t, got)
	assert.Equal(t, "alice", got.UserID)
}

func TestContext_Missing(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
}

func TestContext_MustPanicsWhenMissing(t *testing.T) {
	assert.Panics(t, func() {
		MustFromContext(context.Background())
	})
}

func TestHasRole(t *testing.T) {
	authCtx := &AuthContext{Roles: []store.Role{store.RoleUser, store.RolePoster}}

	assert.True(t, authCtx.HasRole(store.RoleUser))
	assert.True(t, authCtx.HasRole(store.RolePoster))
	assert.False(t, authCtx.HasRole(store.RoleAdmin))
}
