package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/takutakahashi/pushnotify/pkg/auth"
)

func TestHelpersInit(t *testing.T) {
	var commandNames []string
	for _, c := range HelpersCmd.Commands() {
		commandNames = append(commandNames, c.Use)
	}

	assert.Contains(t, commandNames, "generate-vapid")
	assert.Contains(t, commandNames, "generate-token")
}

func TestSchedulerInit(t *testing.T) {
	var commandNames []string
	for _, c := range SchedulerCmd.Commands() {
		commandNames = append(commandNames, c.Use)
	}

	assert.ElementsMatch(t, []string{"tick", "run"}, commandNames)
}

func TestGenerateVAPID(t *testing.T) {
	var out bytes.Buffer
	generateVAPIDCmd.SetOut(&out)

	require.NoError(t, runGenerateVAPID(generateVAPIDCmd, nil))

	var keys map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &keys))
	assert.NotEmpty(t, keys["publicKey"])
	assert.NotEmpty(t, keys["privateKey"])
	assert.NotContains(t, keys["publicKey"], "=")
}

func TestGenerateToken(t *testing.T) {
	t.Setenv("PUSHNOTIFY_AUTH_JWT_SECRET", "")
	userID, email, secret, issuer, expiresIn = "alice", "alice@example.com", "test-secret", "", 0
	envFile = ""
	t.Cleanup(func() { userID, email, secret = "", "", "" })

	var out bytes.Buffer
	generateTokenCmd.SetOut(&out)
	require.NoError(t, runGenerateToken(generateTokenCmd, nil))

	tokens, err := auth.NewTokenService("test-secret", "pushnotify", 0)
	require.NoError(t, err)
	user, err := tokens.ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "alice", user.UserID)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	t.Setenv("PUSHNOTIFY_AUTH_JWT_SECRET", "")
	userID, secret, issuer, expiresIn = "alice", "", "", 0
	envFile = ""
	t.Cleanup(func() { userID = "" })

	assert.Error(t, runGenerateToken(generateTokenCmd, nil))
}

func TestSchedulerTick(t *testing.T) {
	t.Setenv("PUSHNOTIFY_AUTH_JWT_SECRET", "test-secret")
	envFile, cfgFile = "", ""

	var out bytes.Buffer
	schedulerTickCmd.SetOut(&out)
	require.NoError(t, runSchedulerTick(schedulerTickCmd, nil))

	assert.JSONEq(t, `{"processed":0,"failed":0,"skipped":0}`, strings.TrimSpace(out.String()))
}
