// Package auth verifies the caller's bearer token. The user id is taken from
// the token only, never from the request body.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleAuthenticated is the role claim of signed-in users
const RoleAuthenticated = "authenticated"

// ErrUnauthenticated is returned for any missing, malformed or invalid token
var ErrUnauthenticated = errors.New("unauthenticated")

// AuthContext is the verified caller identity
type AuthContext struct {
	UserID string
	Email  string
	Role   string
}

// Claims defines the data carried by the access token
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 access tokens signed with the project secret
type Verifier struct {
	secret []byte
	leeway time.Duration
}

// NewVerifier creates a verifier for secret
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), leeway: 30 * time.Second}
}

// Verify checks an Authorization header value ("Bearer <token>")
func (v *Verifier) Verify(authorization string) (AuthContext, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return AuthContext{}, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return AuthContext{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return AuthContext{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}
	if claims.Subject == "" {
		return AuthContext{}, fmt.Errorf("%w: token has no subject", ErrUnauthenticated)
	}
	if claims.Role != "" && claims.Role != RoleAuthenticated {
		return AuthContext{}, fmt.Errorf("%w: role %q is not allowed", ErrUnauthenticated, claims.Role)
	}

	return AuthContext{UserID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
}

// GenerateToken signs a user token. Used by tests and local tooling.
func GenerateToken(secret, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: email,
		Role:  RoleAuthenticated,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
