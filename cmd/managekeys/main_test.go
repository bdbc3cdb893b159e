package main

import (
	"bytes"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generatedKey = regexp.MustCompile(`Generated new API key: (cyber_\S+)`)

func setupKeyFile(t *testing.T) {
	t.Helper()
	t.Setenv("APIKEY_BACKEND", "file")
	t.Setenv("MCP_API_KEYS_FILE", filepath.Join(t.TempDir(), "mcp_api_keys.json"))
}

func runCmd(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Usage(t *testing.T) {
	setupKeyFile(t)

	code, _, stderr := runCmd()
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage:")

	code, _, stderr = runCmd("rotate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, `unknown command "rotate"`)

	code, stdout, _ := runCmd("help")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "managekeys generate NAME [--user-id N]")
}

func TestRun_KeyLifecycle(t *testing.T) {
	setupKeyFile(t)

	code, stdout, _ := runCmd("list")
	require.Equal(t, 0, code)
	assert.Equal(t, "No API keys found.\n", stdout)

	code, stdout, _ = runCmd("generate", "My LLM Client")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Name: My LLM Client")
	assert.Contains(t, stdout, "Type: System key")
	assert.Contains(t, stdout, "you won't be able to see it again!")
	m := generatedKey.FindStringSubmatch(stdout)
	require.Len(t, m, 2)
	systemKey := m[1]

	code, stdout, _ = runCmd("generate", "User API Key", "--user-id", "123")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "User ID: 123")

	code, stdout, _ = runCmd("generate", "--user-id", "7", "Flag First")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Name: Flag First")
	assert.Contains(t, stdout, "User ID: 7")

	code, _, stderr := runCmd("generate", "--user-id", "7")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "generate requires a NAME")

	code, stdout, _ = runCmd("revoke", systemKey)
	require.Equal(t, 0, code)
	assert.Equal(t, "✅ API key revoked successfully\n", stdout)

	code, stdout, _ = runCmd("revoke", "cyber_unknown")
	assert.Equal(t, 1, code)
	assert.Equal(t, "❌ API key not found\n", stdout)

	code, _, _ = runCmd("revoke")
	assert.Equal(t, 2, code)

	code, stdout, _ = runCmd("list")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "Found 3 API key(s):")
	assert.Contains(t, stdout, "My LLM Client\n   Status: 🔴 Revoked\n   System key")
	assert.Contains(t, stdout, "User API Key\n   Status: 🟢 Active\n   User ID: 123")
	assert.Contains(t, stdout, "Last used: Never")
	assert.NotContains(t, stdout, systemKey, "raw keys are never listed")
}
