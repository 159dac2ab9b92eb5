package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
)

func jwtTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "Storefront Backend"},
		JWT: config.JWTConfig{
			Secret:             "test-secret-key-that-is-long-enough-123",
			AccessTokenExpiry:  time.Hour,
			RefreshTokenExpiry: 24 * time.Hour,
		},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	jm := NewJWTManager(jwtTestConfig())

	token, err := jm.GenerateAccessToken(42, "user@example.com", true)
	require.NoError(t, err)

	claims, err := jm.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "access", claims.TokenType)
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	jm := NewJWTManager(jwtTestConfig())

	token, err := jm.GenerateRefreshToken(42, "user@example.com")
	require.NoError(t, err)

	claims, err := jm.ValidateRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "refresh", claims.TokenType)
	// Admin status never rides on refresh tokens.
	assert.False(t, claims.IsAdmin)
}

func TestTokenTypeMismatchRejected(t *testing.T) {
	jm := NewJWTManager(jwtTestConfig())

	access, err := jm.GenerateAccessToken(42, "user@example.com", false)
	require.NoError(t, err)
	refresh, err := jm.GenerateRefreshToken(42, "user@example.com")
	require.NoError(t, err)

	_, err = jm.ValidateRefreshToken(access)
	assert.Error(t, err)
	_, err = jm.ValidateAccessToken(refresh)
	assert.Error(t, err)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	jm := NewJWTManager(jwtTestConfig())
	token, err := jm.GenerateAccessToken(42, "user@example.com", false)
	require.NoError(t, err)

	otherCfg := jwtTestConfig()
	otherCfg.JWT.Secret = "a-completely-different-secret-key-456"
	other := NewJWTManager(otherCfg)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	jm := NewJWTManager(jwtTestConfig())
	_, err := jm.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc123", ExtractTokenFromHeader("Bearer abc123"))
	assert.Empty(t, ExtractTokenFromHeader("abc123"))
	assert.Empty(t, ExtractTokenFromHeader(""))
	assert.Empty(t, ExtractTokenFromHeader("Bearer "))
}
