// Package identity turns bearer credentials into durable user records. Two
// credential kinds are supported: self-issued HS256 session tokens and
// third-party RS256 identity tokens verified against the provider's
// published signing keys.
package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	e "github.com/quizhive/quizhive/internal/quizhive/errors"
)

// Signer mints and verifies the service's own session tokens. The owner
// claim tags a token as self-issued so the resolver can pick a verification
// path before verifying anything.
type Signer struct {
	secret string
	issuer string
	ttl    time.Duration
}

func NewSigner(secret, issuer string, ttl time.Duration) *Signer {
	return &Signer{secret: secret, issuer: issuer, ttl: ttl}
}

// Issuer returns the tag written into the owner claim.
func (s *Signer) Issuer() string {
	return s.issuer
}

// Issue mints a session token for the given subject email.
func (s *Signer) Issue(email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   email,
		"owner": s.issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks signature and expiry and returns the subject email.
func (s *Signer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", e.ErrInvalidCredential, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: invalid token claims", e.ErrInvalidCredential)
	}

	email, _ := claims["sub"].(string)
	if email == "" {
		return "", fmt.Errorf("%w: missing subject", e.ErrInvalidCredential)
	}
	return email, nil
}
