// Package auth issues and verifies the bearer tokens that grant access to
// protected documentation scopes.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
)

var (
	// ErrUnauthorized reports a missing, malformed or expired token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden reports a valid token that does not grant the scope.
	ErrForbidden = errors.New("forbidden")
	// ErrNoSecret reports an authority configured without a signing secret.
	ErrNoSecret = errors.New("jwt secret is not configured")
)

// Claims are the JWT claims of a portal token.
type Claims struct {
	Scopes []string `json:"scopes"`
	jwt.StandardClaims
}

// Allows reports whether the token grants scope.
func (c *Claims) Allows(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope || s == "*" {
			return true
		}
	}
	return false
}

// Authority signs and checks HS256 tokens.
type Authority struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewAuthority(secret, issuer string, ttl time.Duration) (*Authority, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNoSecret
	}
	return &Authority{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue mints a token for subject granting scopes. A non-positive ttl uses
// the authority's default lifetime.
func (a *Authority) Issue(subject string, scopes []string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	if ttl <= 0 {
		ttl = a.ttl
	}

	now := a.now()
	claims := Claims{
		Scopes: append([]string(nil), scopes...),
		StandardClaims: jwt.StandardClaims{
			Subject:   subject,
			Issuer:    a.issuer,
			IssuedAt:  now.Unix(),
			NotBefore: now.Unix(),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a signed token.
func (a *Authority) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, ErrUnauthorized
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrUnauthorized, claims.Issuer)
	}
	return claims, nil
}

// Authorize checks an Authorization header value against scope.
func (a *Authority) Authorize(header, scope string) (*Claims, error) {
	raw, ok := BearerToken(header)
	if !ok {
		return nil, fmt.Errorf("%w: missing bearer token", ErrUnauthorized)
	}

	claims, err := a.Verify(raw)
	if err != nil {
		return nil, err
	}
	if !claims.Allows(scope) {
		return claims, fmt.Errorf("%w: token does not grant scope %q", ErrForbidden, scope)
	}
	return claims, nil
}

// BearerToken extracts the token of a "Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
