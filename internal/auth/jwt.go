// Package auth issues and validates the HS256 bearer tokens that identify
// users on both the REST API (Authorization header) and the websocket upgrade
// (token query parameter). Token issuance normally happens in the external
// identity service; GenerateToken exists for the local token endpoint and for
// tests.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails signature, expiry, or
// claim validation. Callers close the socket (or reject the request) without
// distinguishing further; the client must obtain a fresh token.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the application claims embedded in every token.
type Claims struct {
	UserID   uint   `json:"uid"`
	Role     string `json:"role"`
	FullName string `json:"name"`
	jwt.RegisteredClaims
}

// GenerateToken signs a token for the given identity, valid for ttl.
func GenerateToken(secret []byte, userID uint, role, fullName string, ttl time.Duration) (string, error) {
	if userID == 0 {
		return "", errors.New("user ID cannot be zero")
	}
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Role:     role,
		FullName: fullName,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ValidateToken parses and verifies a token string, returning its claims.
// Only HMAC-signed tokens are accepted; anything else, including expired or
// malformed tokens, yields ErrInvalidToken.
func ValidateToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
