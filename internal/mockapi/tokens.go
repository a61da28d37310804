package mockapi

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/najibrashidabdi/newkaabe/internal/session"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

var errBadToken = errors.New("Given token not valid for any token type")

type tokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func (t tokenIssuer) issue(u *user, kind string) (string, error) {
	ttl := t.accessTTL
	if kind == tokenRefresh {
		ttl = t.refreshTTL
	}
	now := t.now()
	claims := session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:    u.ID,
		TokenType: kind,
		IsStaff:   u.Staff,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

func (t tokenIssuer) pair(u *user) (tokenPair, error) {
	access, err := t.issue(u, tokenAccess)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, err := t.issue(u, tokenRefresh)
	if err != nil {
		return tokenPair{}, err
	}
	return tokenPair{Access: access, Refresh: refresh}, nil
}

// parse verifies signature, expiry and token type.
func (t tokenIssuer) parse(raw, kind string) (session.Claims, error) {
	var claims session.Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return session.Claims{}, errors.Wrap(errBadToken, err.Error())
	}
	if claims.TokenType != kind {
		return session.Claims{}, errBadToken
	}
	return claims, nil
}
