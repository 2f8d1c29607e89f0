package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	manager := NewJWTManager("test-secret-key-at-least-32-chars!!", time.Hour)

	token, err := manager.GenerateAccessToken(7, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.OperatorID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "neohq", claims.Issuer)
}

func TestValidateAccessTokenWrongSecret(t *testing.T) {
	manager := NewJWTManager("test-secret-key-at-least-32-chars!!", time.Hour)
	other := NewJWTManager("another-secret-key-at-least-32-char", time.Hour)

	token, err := manager.GenerateAccessToken(1, "admin")
	require.NoError(t, err)

	_, err = other.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessTokenExpired(t *testing.T) {
	manager := NewJWTManager("test-secret-key-at-least-32-chars!!", -time.Minute)

	token, err := manager.GenerateAccessToken(1, "admin")
	require.NoError(t, err)

	_, err = manager.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", ExtractTokenFromHeader("Bearer abc.def.ghi"))
	assert.Equal(t, "", ExtractTokenFromHeader("abc.def.ghi"))
	assert.Equal(t, "", ExtractTokenFromHeader(""))
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPasswordWithDefaultConfig("s3cretPass")
	require.NoError(t, err)

	ok, err := VerifyPasswordWithDefaultConfig("s3cretPass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPasswordWithDefaultConfig("wrongPass", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}
