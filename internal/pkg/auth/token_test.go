package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewTokenService("test-secret", time.Minute)

	token, err := svc.GenerateToken(42, "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a", time.Minute).GenerateToken(1, "user")
	require.NoError(t, err)

	_, err = NewTokenService("secret-b", time.Minute).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewTokenService("test-secret", time.Minute)
	svc.expiresIn = -time.Minute

	token, err := svc.GenerateToken(1, "user")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestGenerateTokenRequiresUserID(t *testing.T) {
	_, err := NewTokenService("test-secret", time.Minute).GenerateToken(0, "user")
	assert.Error(t, err)
}
