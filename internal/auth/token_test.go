package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	s := NewSigner("secret", time.Hour)
	token, err := s.Sign("user-1", "ada@example.com")
	require.NoError(t, err)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := NewSigner("secret", time.Hour).Sign("user-1", "")
	require.NoError(t, err)

	_, err = NewSigner("other", time.Hour).Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsExpired(t *testing.T) {
	s := NewSigner("secret", time.Minute)
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := s.Sign("user-1", "")
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "user-1", Issuer: issuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewSigner("secret", time.Hour).Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
