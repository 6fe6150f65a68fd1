// ABOUTME: Access-control guards composing token verification, role, and ownership checks
// ABOUTME: Guards short-circuit; the first failure aborts the request

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/loomboard/loom/internal/store"
)

// ErrAuthentication is returned for every token-guard failure: missing or
// malformed token, bad signature, expiry, unknown subject, or a role claim
// the user no longer holds. The cause is deliberately not distinguished so
// callers can't enumerate users or probe which check failed.
var ErrAuthentication = errors.New("authentication failed")

// ErrUnauthorized is returned when a valid identity lacks the required role
// or does not own the target message.
var ErrUnauthorized = errors.New("unauthorized")

// Authorizer answers the three access-control questions gating every
// protected operation: is the token valid, does the caller hold a required
// role, and does the caller own the target message.
type Authorizer struct {
	tokens   *TokenService
	users    store.UserStore
	messages store.MessageStore
	logger   *slog.Logger
}

// NewAuthorizer creates an Authorizer over the given token service and
// stores.
func NewAuthorizer(tokens *TokenService, users store.UserStore, messages store.MessageStore) *Authorizer {
	return &Authorizer{
		tokens:   tokens,
		users:    users,
		messages: messages,
		logger:   slog.Default().With("component", "auth"),
	}
}

// Authenticate is the token guard. It verifies the raw token, loads the
// live user record, and requires the token's role claim to be a subset of
// the roles the user currently holds, so a claim minted before a revocation
// stops working immediately. The stale role snapshot in the token is never
// trusted on its own.
func (a *Authorizer) Authenticate(ctx context.Context, rawToken string) (*AuthContext, error) {
	claims, err := a.tokens.Verify(rawToken)
	if err != nil {
		a.logger.Debug("token verification failed", "error", err)
		return nil, ErrAuthentication
	}

	user, err := a.users.GetUser(ctx, claims.SubjectID)
	if err != nil {
		a.logger.Debug("token subject lookup failed", "subject", claims.SubjectID, "error", err)
		return nil, ErrAuthentication
	}

	if !roleSubset(claims.Roles, user.Roles) {
		a.logger.Debug("token role claim exceeds current roles", "subject", claims.SubjectID)
		return nil, ErrAuthentication
	}

	return &AuthContext{UserID: user.ID, Roles: claims.Roles}, nil
}

// RequireRole is the role guard: the token role claim must include role.
func (a *Authorizer) RequireRole(authCtx *AuthContext, role store.Role) error {
	if authCtx == nil || !authCtx.HasRole(role) {
		return ErrUnauthorized
	}
	return nil
}

// RequireOwner is the ownership guard: the target message must be owned by
// the authenticated caller. An absent message surfaces as store.ErrNotFound.
func (a *Authorizer) RequireOwner(ctx context.Context, authCtx *AuthContext, messageID string) error {
	if authCtx == nil {
		return ErrUnauthorized
	}

	msg, err := a.messages.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.OwnerID != authCtx.UserID {
		a.logger.Debug("ownership check failed", "user", authCtx.UserID, "message", messageID)
		return ErrUnauthorized
	}
	return nil
}

// roleSubset reports whether every role in claimed is present in current.
func roleSubset(claimed, current []store.Role) bool {
	held := make(map[store.Role]struct{}, len(current))
	for _, r := range current {
		held[r] = struct{}{}
	}
	for _, r := range claimed {
		if _, ok := held[r]; !ok {
			return false
		}
	}
	return true
}
