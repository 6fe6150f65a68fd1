// Package auth provides authentication and authorization for loom.
//
// # Tokens
//
// Bearer tokens are HS256-signed JWTs issued by TokenService:
//
//	tokens := auth.NewTokenService(secret, ttl)
//	token, err := tokens.Issue(userID, passwordHash, roles)
//	claims, err := tokens.Verify(token)
//
// Claims carry the subject ID, a snapshot of the subject's roles, the
// credential hash, and the expiry. Verification is stateless: there is no
// session store, and the TTL bounds the blast radius of a leaked token.
//
// # Guards
//
// Authorizer composes three guards evaluated before a protected operation:
//
//   - Token guard (Authenticate): verifies the token, loads the live user,
//     and requires the role claim to be a subset of the user's current
//     roles. Any failure collapses into ErrAuthentication; the caller is
//     never told which check failed.
//   - Role guard (RequireRole): the role claim must include the required
//     role, else ErrUnauthorized.
//   - Ownership guard (RequireOwner): the target message's owner must be
//     the authenticated subject, else ErrUnauthorized.
//
// Guards short-circuit: middleware ordering means the first failing guard
// aborts the request and later guards never run.
//
// # HTTP Middleware
//
// RequireAuth extracts the bearer token, runs the token guard, and attaches
// an AuthContext to the request context (WithAuth/FromContext).
// RequireRoleHTTP layers the role guard on top. Ownership is checked inside
// handlers because it needs the target message ID from the request path.
//
// # Passwords
//
// HashPassword/CheckPassword wrap bcrypt. The hash is treated as an opaque
// one-way credential everywhere else in the system.
package auth
