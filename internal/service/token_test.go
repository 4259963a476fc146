package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret-that-is-long-enough-123", time.Hour)
	userID := uuid.New()

	token, exp, err := tm.GenerateAccess(userID, "buyer")
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	parsedID, role, err := tm.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, userID, parsedID)
	assert.Equal(t, "buyer", role)
}

func TestTokenManager_WrongSecret(t *testing.T) {
	issuer := NewTokenManager("first-secret-first-secret-first-secret", time.Hour)
	verifier := NewTokenManager("second-secret-second-secret-second", time.Hour)

	token, _, err := issuer.GenerateAccess(uuid.New(), "provider")
	require.NoError(t, err)

	_, _, err = verifier.ParseAccess(token)
	assert.Error(t, err)
}

func TestTokenManager_Expired(t *testing.T) {
	tm := NewTokenManager("test-secret-that-is-long-enough-123", -time.Minute)

	token, _, err := tm.GenerateAccess(uuid.New(), "buyer")
	require.NoError(t, err)

	_, _, err = tm.ParseAccess(token)
	assert.Error(t, err)
}
