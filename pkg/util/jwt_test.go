package util

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-testing"

func issue(t *testing.T, userID uint, accessExpiry time.Duration) *TokenPair {
	t.Helper()
	tokens, err := GenerateTokenPair(userID, "shopper@example.com", "user", testSecret, accessExpiry, 7*24*time.Hour)
	require.NoError(t, err)
	return tokens
}

func TestGenerateTokenPair_Claims(t *testing.T) {
	tokens := issue(t, 42, 15*time.Minute)

	assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)
	assert.Equal(t, int64(15*60), tokens.ExpiresIn)

	access, err := ValidateToken(tokens.AccessToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, uint(42), access.UserID)
	assert.Equal(t, "shopper@example.com", access.Email)
	assert.Equal(t, "user", access.Role)
	assert.Equal(t, TokenTypeAccess, access.TokenType)
	assert.Equal(t, "42", access.Subject)
	assert.True(t, access.IssuedAt.Before(access.ExpiresAt.Time))

	refresh, err := ValidateToken(tokens.RefreshToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, refresh.TokenType)
	assert.True(t, refresh.ExpiresAt.After(access.ExpiresAt.Time))
}

func TestValidateToken_Rejects(t *testing.T) {
	tokens := issue(t, 1, 15*time.Minute)

	parts := strings.Split(tokens.AccessToken, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{name: "Empty", token: "", secret: testSecret},
		{name: "Garbage", token: "not.a.token", secret: testSecret},
		{name: "Wrong secret", token: tokens.AccessToken, secret: "another-secret"},
		{name: "Tampered payload", token: tampered, secret: testSecret},
		{name: "Unsigned", token: unsigned, secret: testSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := ValidateToken(tt.token, tt.secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Nil(t, claims)
		})
	}
}

func TestValidateToken_Expired(t *testing.T) {
	tokens := issue(t, 1, -time.Minute)

	claims, err := ValidateToken(tokens.AccessToken, testSecret)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)

	_, err = ValidateToken(tokens.RefreshToken, testSecret)
	assert.NoError(t, err, "refresh token outlives the access token")
}
