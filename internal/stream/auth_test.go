package stream

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenAuth_IssueAndVerify(t *testing.T) {
	auth := NewTokenAuth("secret", time.Hour)

	token, expires, err := auth.Issue("ada")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	viewer, err := auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "ada", viewer)
}

func TestTokenAuth_IssueRequiresViewer(t *testing.T) {
	_, _, err := NewTokenAuth("secret", time.Hour).Issue("")
	assert.Error(t, err)
}

func TestTokenAuth_Rejects(t *testing.T) {
	auth := NewTokenAuth("secret", time.Hour)

	other, _, err := NewTokenAuth("other", time.Hour).Issue("ada")
	require.NoError(t, err)

	expiredAuth := NewTokenAuth("secret", time.Minute)
	expiredAuth.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, err := expiredAuth.Issue("ada")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"viewer": "ada"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noViewer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": other,
		"expired":      expired,
		"alg none":     none,
		"no viewer":    noViewer,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := auth.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
