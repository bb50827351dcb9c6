package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that fail validation
var ErrInvalidToken = errors.New("stream: invalid viewer token")

// TokenAuth issues and validates HS256 viewer tokens
type TokenAuth struct {
	secretKey string
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewTokenAuth creates a new TokenAuth with the given secret key and token TTL
func NewTokenAuth(secretKey string, tokenTTL time.Duration) *TokenAuth {
	return &TokenAuth{
		secretKey: secretKey,
		tokenTTL:  tokenTTL,
		now:       time.Now,
	}
}

// Issue generates a token for the named viewer and returns its expiry
func (a *TokenAuth) Issue(viewer string) (string, time.Time, error) {
	if viewer == "" {
		return "", time.Time{}, fmt.Errorf("viewer name is required")
	}
	now := a.now()
	expires := now.Add(a.tokenTTL)
	claims := jwt.MapClaims{
		"viewer": viewer,
		"exp":    expires.Unix(),
		"iat":    now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.secretKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign viewer token: %w", err)
	}
	return signed, expires, nil
}

// Verify validates a token and returns the viewer name it was issued to
func (a *TokenAuth) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Verify exact signing method to prevent algorithm confusion attacks
		if token.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.secretKey), nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	viewer, ok := claims["viewer"].(string)
	if !ok || viewer == "" {
		return "", fmt.Errorf("%w: missing viewer claim", ErrInvalidToken)
	}
	return viewer, nil
}
