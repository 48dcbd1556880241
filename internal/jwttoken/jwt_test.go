package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-signing-key"
const testIssuer = "idp.example"

func mint(t *testing.T, mutate func(*Claims)) string {
	t.Helper()
	claims := Claims{
		UID:           "uid-123",
		Email:         "jo@example.org",
		EmailVerified: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "uid-123",
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        "jti-1",
		},
	}
	if mutate != nil {
		mutate(&claims)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testKey))
	require.NoError(t, err)
	return token
}

func TestValidateToken(t *testing.T) {
	v := NewValidator(testKey, testIssuer)

	t.Run("valid token yields claims", func(t *testing.T) {
		claims, err := v.ValidateToken(mint(t, nil))
		require.NoError(t, err)
		assert.Equal(t, "uid-123", claims.UID)
		assert.Equal(t, "jo@example.org", claims.Email)
		assert.True(t, claims.EmailVerified)
		assert.Equal(t, "jti-1", claims.JTI)
	})

	t.Run("falls back to subject when uid claim absent", func(t *testing.T) {
		claims, err := v.ValidateToken(mint(t, func(c *Claims) { c.UID = "" }))
		require.NoError(t, err)
		assert.Equal(t, "uid-123", claims.UID)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		token := mint(t, func(c *Claims) {
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
		})
		_, err := v.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("rejects wrong issuer", func(t *testing.T) {
		token := mint(t, func(c *Claims) { c.Issuer = "someone-else" })
		_, err := v.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("rejects token signed with another key", func(t *testing.T) {
		other := NewValidator("other-key", testIssuer)
		_, err := other.ValidateToken(mint(t, nil))
		require.Error(t, err)
	})

	t.Run("rejects token with no subject", func(t *testing.T) {
		token := mint(t, func(c *Claims) {
			c.UID = ""
			c.Subject = ""
		})
		_, err := v.ValidateToken(token)
		require.Error(t, err)
	})
}
