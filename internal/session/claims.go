package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims is what the backend puts in its access tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int    `json:"user_id"`
	TokenType string `json:"token_type,omitempty"`
	IsStaff   bool   `json:"is_staff,omitempty"`
}

// Expiry returns the zero time when the token carries no exp claim.
func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Inspect decodes token claims without verifying the signature. The result is
// for display; it says nothing about whether the server accepts the token.
func Inspect(token string) (Claims, error) {
	var claims Claims
	if token == "" {
		return claims, errors.New("no access token")
	}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, errors.Wrap(err, "decode access token")
	}
	return claims, nil
}
