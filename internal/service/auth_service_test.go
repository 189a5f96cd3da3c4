package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parisxmas/lodgeforms/internal/auth"
)

func TestAuthService_Disabled(t *testing.T) {
	s := NewAuthService("", "", "")
	assert.False(t, s.Enabled())

	_, err := s.Login("admin", "pw")
	assert.ErrorIs(t, err, ErrAdminDisabled)
}

func TestAuthService_Login(t *testing.T) {
	hash, err := auth.HashPassword("lodge-pass")
	require.NoError(t, err)
	s := NewAuthService("warden", hash, "jwt-secret")
	require.True(t, s.Enabled())

	tok, err := s.Login("warden", "lodge-pass")
	require.NoError(t, err)
	claims, err := auth.ValidateToken("jwt-secret", tok)
	require.NoError(t, err)
	assert.Equal(t, "warden", claims.Subject)

	_, err = s.Login("warden", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Login("intruder", "lodge-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
