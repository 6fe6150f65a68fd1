// ABOUTME: JWT token issuance and verification for authenticating API requests
// ABOUTME: Uses HS256 signing with configurable secret and TTL

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/loomboard/loom/internal/store"
)

// Token errors
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
)

// Claims is the decoded content of a verified token.
type Claims struct {
	SubjectID    string
	Roles        []store.Role
	PasswordHash string
	ExpiresAt    time.Time
}

// TokenService issues and verifies signed, time-limited bearer tokens.
// Tokens are self-contained; there is no server-side session state, and the
// TTL bounds how long a leaked token stays usable.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a token service with the given signing secret and
// token lifetime.
func NewTokenService(secret []byte, ttl time.Duration) *TokenService {
	return &TokenService{secret: secret, ttl: ttl}
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed token embedding the subject, a snapshot of its
// roles, and the credential hash. Expiry is issue time plus the configured
// TTL. The role snapshot is never trusted on its own: the token guard
// re-checks it against the live user record on every request.
func (s *TokenService) Issue(subjectID, passwordHash string, roles []store.Role) (string, error) {
	now := time.Now()

	roleStrings := make([]string, len(roles))
	for i, r := range roles {
		roleStrings[i] = string(r)
	}

	claims := jwt.MapClaims{
		"sub":   subjectID,
		"roles": roleStrings,
		"pwd":   passwordHash,
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates the token signature and expiry and returns the decoded
// claims. Returns ErrTokenExpired for a token past its expiry instant and
// ErrTokenInvalid for anything else that fails verification.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	sub, ok := mapClaims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}

	pwd, _ := mapClaims["pwd"].(string)

	exp, err := mapClaims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: exp", ErrMissingClaim)
	}

	var roles []store.Role
	if raw, ok := mapClaims["roles"].([]interface{}); ok {
		for _, r := range raw {
			name, ok := r.(string)
			if !ok {
				return nil, fmt.Errorf("%w: roles", ErrTokenInvalid)
			}
			roles = append(roles, store.Role(name))
		}
	}

	return &Claims{
		SubjectID:    sub,
		Roles:        roles,
		PasswordHash: pwd,
		ExpiresAt:    exp.Time,
	}, nil
}
