package cli

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/offer-escrow/internal/service"
)

func TestParseSteps(t *testing.T) {
	steps, err := parseSteps(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, steps)

	steps, err = parseSteps([]string{"3"})
	require.NoError(t, err)
	assert.Equal(t, 3, steps)

	_, err = parseSteps([]string{"0"})
	assert.Error(t, err)
	_, err = parseSteps([]string{"abc"})
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("JWT_SECRET", "test-secret-test-secret-test-secret")
	userID := uuid.New()

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"token", userID.String(), "--role", "buyer"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	token := bytes.TrimSpace(out.Bytes())
	parsedID, role, err := service.NewTokenManager("test-secret-test-secret-test-secret", 0).ParseAccess(string(token))
	require.NoError(t, err)
	assert.Equal(t, userID, parsedID)
	assert.Equal(t, "buyer", role)
	assert.Contains(t, errOut.String(), "expires at")
}

func TestTokenCommand_InvalidUserID(t *testing.T) {
	rootCmd.SetArgs([]string{"token", "not-a-uuid"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	assert.Error(t, rootCmd.Execute())
}
