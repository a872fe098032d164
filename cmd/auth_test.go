package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalundhe/voiceguard/core/llm"
)

// isolateCredentials points the credentials file at a temp home and hides
// any keys set in the environment.
func isolateCredentials(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, p := range llm.KnownProviders() {
		t.Setenv(llm.GetEnvKeyName(p), "")
	}
	t.Cleanup(func() {
		apiKey = ""
		credentialsFile = ""
	})
	return home
}

func testCommand(in string) (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader(in))
	return cmd, &out
}

func TestIsValidProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     bool
	}{
		{"anthropic", true},
		{"openai", true},
		{"google", true},
		{"invalid", false},
		{"ANTHROPIC", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			got := isValidProvider(tt.provider)
			if got != tt.want {
				t.Errorf("isValidProvider(%q) = %v, want %v", tt.provider, got, tt.want)
			}
		})
	}
}

func TestAuthSetStatusRemove(t *testing.T) {
	isolateCredentials(t)

	apiKey = "sk-test"
	cmd, out := testCommand("")
	require.NoError(t, runAuthSet(cmd, []string{"Anthropic"}))
	assert.Contains(t, out.String(), "Credentials saved for anthropic")
	assert.True(t, llm.HasCredentials("anthropic"))

	cmd, out = testCommand("")
	require.NoError(t, runAuthStatus(cmd, nil))
	assert.Regexp(t, `anthropic:\s+configured`, out.String())
	assert.Regexp(t, `openai:\s+not configured`, out.String())

	cmd, out = testCommand("")
	require.NoError(t, runAuthRemove(cmd, []string{"anthropic"}))
	assert.Contains(t, out.String(), "Credentials removed for anthropic")
	assert.False(t, llm.HasCredentials("anthropic"))

	cmd, out = testCommand("")
	require.NoError(t, runAuthRemove(cmd, []string{"anthropic"}))
	assert.Contains(t, out.String(), "No credentials found for anthropic")
}

func TestAuthSetReadsKeyFromInput(t *testing.T) {
	isolateCredentials(t)

	cmd, out := testCommand("  sk-from-stdin  \n")
	require.NoError(t, runAuthSet(cmd, []string{"openai"}))
	assert.Contains(t, out.String(), "Enter API key for openai")

	key, err := llm.ResolveAPIKey("openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-from-stdin", key)

	cmd, _ = testCommand("\n")
	assert.Error(t, runAuthSet(cmd, []string{"openai"}))
}

func TestAuthRejectsUnknownProvider(t *testing.T) {
	isolateCredentials(t)

	cmd, _ := testCommand("")
	err := runAuthSet(cmd, []string{"chroma"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid: anthropic, google, openai")

	assert.Error(t, runAuthRemove(cmd, []string{"chroma"}))
}

func TestAuthCredentialsFileIsGoogleOnly(t *testing.T) {
	isolateCredentials(t)

	credentialsFile = "/tmp/sa.json"
	cmd, _ := testCommand("")
	assert.Error(t, runAuthSet(cmd, []string{"anthropic"}))
}

func TestSaveGoogleCredentialsFile(t *testing.T) {
	home := isolateCredentials(t)

	src := filepath.Join(t.TempDir(), "service-account.json")
	content := `{"type": "service_account", "project_id": "test"}`
	require.NoError(t, os.WriteFile(src, []byte(content), 0600))

	var out bytes.Buffer
	require.NoError(t, saveGoogleCredentialsFile(&out, src))

	dest := filepath.Join(home, ".voiceguard", "google-credentials.json")
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.Contains(t, out.String(), dest)

	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestSaveGoogleCredentialsFileNotExists(t *testing.T) {
	isolateCredentials(t)

	var out bytes.Buffer
	assert.Error(t, saveGoogleCredentialsFile(&out, "/nonexistent/path/credentials.json"))
}
