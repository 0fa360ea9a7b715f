package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims carried by catalog access tokens
type Claims struct {
	Email  string `json:"email,omitempty"`
	UserID string `json:"userId,omitempty"`
	jwt.RegisteredClaims
}

// Gate decides whether a request may run a mutating operation
type Gate interface {
	Authorize(r *http.Request) (*Claims, error)
}

// JWTGate accepts requests bearing an HS256 token signed with its key
type JWTGate struct {
	key    []byte
	parser *jwt.Parser
}

// NewJWTGate creates a gate verifying tokens with key. An empty key denies
// every request.
func NewJWTGate(key string) *JWTGate {
	return &JWTGate{
		key: []byte(key),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Authorize verifies the Authorization header of r
func (g *JWTGate) Authorize(r *http.Request) (*Claims, error) {
	if len(g.key) == 0 {
		return nil, fmt.Errorf("%w: no signing key configured", ErrInvalidToken)
	}

	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	parsed, err := g.parser.ParseWithClaims(strings.TrimSpace(token), claims, func(t *jwt.Token) (interface{}, error) {
		return g.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

type claimsKey struct{}

// WithClaims stores verified claims in ctx
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims, if any
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}

// Caller names the caller for logs: the user id, else email, else sub
func (c *Claims) Caller() string {
	switch {
	case c.UserID != "":
		return c.UserID
	case c.Email != "":
		return c.Email
	default:
		return c.RegisteredClaims.Subject
	}
}
