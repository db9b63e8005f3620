package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestRoundTrip(t *testing.T) {
	id := uuid.New()
	token, err := GenerateToken(id, "ada@example.com", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestParseTokenRejects(t *testing.T) {
	id := uuid.New()

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateToken(id, "", secret, time.Hour)
		require.NoError(t, err)
		_, err = ParseToken(token, "other")
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := GenerateToken(id, "", secret, -time.Minute)
		require.NoError(t, err)
		_, err = ParseToken(token, secret)
		assert.Error(t, err)
	})

	t.Run("no expiry", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: id.String()},
		}).SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = ParseToken(token, secret)
		assert.Error(t, err)
	})

	t.Run("subject not a uuid", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "service-account",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString([]byte(secret))
		require.NoError(t, err)
		_, err = ParseToken(token, secret)
		assert.Error(t, err)
	})

	t.Run("alg none", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   id.String(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = ParseToken(token, secret)
		assert.Error(t, err)
	})
}
