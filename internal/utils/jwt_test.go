package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := JWTManager{Secret: []byte("s3cret"), Issuer: "codeauth", AccessTokenTTL: time.Hour}

	token, ttl, err := m.IssueAccessToken("user-1", "session-1")
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)

	claims, err := m.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "session-1", claims.SessionID)
	assert.Equal(t, "codeauth", claims.Issuer)
}

func TestJWTManager_Rejects(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	m := JWTManager{Secret: []byte("s3cret"), Issuer: "codeauth", AccessTokenTTL: time.Minute, Now: func() time.Time { return now }}
	token, _, err := m.IssueAccessToken("user-1", "session-1")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other := m
		other.Secret = []byte("different")
		_, err := other.ParseAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("wrong issuer", func(t *testing.T) {
		other := m
		other.Issuer = "someone-else"
		_, err := other.ParseAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("expired", func(t *testing.T) {
		later := m
		later.Now = func() time.Time { return now.Add(2 * time.Minute) }
		_, err := later.ParseAccessToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{UserID: "user-1", SessionID: "session-1"})
		raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = m.ParseAccessToken(raw)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("missing session", func(t *testing.T) {
		bare, _, err := m.IssueAccessToken("user-1", "")
		require.NoError(t, err)
		_, err = m.ParseAccessToken(bare)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestJWTManager_EmptySecret(t *testing.T) {
	_, _, err := JWTManager{}.IssueAccessToken("u", "s")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIsNumericCode(t *testing.T) {
	assert.True(t, IsNumericCode("012345", 6))
	assert.False(t, IsNumericCode("12345", 6))
	assert.False(t, IsNumericCode("12345a", 6))
	assert.False(t, IsNumericCode("１２３４５６", 6))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail("  A@X.Com\t"))
}
