package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfigDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	body := fmt.Sprintf(`language: en
logger:
  level: error
storage:
  driver: file
  dir: %s
auth:
  delay: 0s
payment:
  delay: 0s
`, filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.yaml"), []byte(body), 0o600))
	return dir
}

func execute(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--env", "test", "--config-dir", dir}, args...))

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestCLI_WalletJourney(t *testing.T) {
	dir := testConfigDir(t)

	steps := []struct {
		name     string
		args     []string
		stdout   string
		stderr   string
		reported bool
	}{
		{name: "language", args: []string{"language", "en"}, stdout: "Language set to en."},
		{name: "anonymous", args: []string{"whoami"}, stdout: "Not signed in."},
		{name: "claim requires login", args: []string{"claim", "daily"}, stderr: "Please login to continue.", reported: true},
		{name: "register", args: []string{"register", "--name", "Taro", "--email", "taro@example.com", "--password", "secret"}, stdout: "500 tokens added to your wallet!"},
		{name: "balance", args: []string{"balance"}, stdout: "Balance: 500 tokens"},
		{name: "daily", args: []string{"claim", "daily"}, stdout: "+10 tokens claimed!"},
		{name: "daily again", args: []string{"claim", "daily"}, stderr: "You have already claimed daily.", reported: true},
		{name: "partner", args: []string{"claim", "partner_visit", "--partner", "@anime_soul"}, stdout: "+20 tokens for visiting @anime_soul!"},
		{name: "buy", args: []string{"buy", "tokens-1000"}, stdout: "1000 tokens added to your wallet!"},
		{name: "unknown package", args: []string{"buy", "tokens-7"}, stderr: "Unknown package", reported: true},
		{name: "unknown content", args: []string{"unlock", "999"}, stderr: "Unknown content", reported: true},
		{name: "history", args: []string{"history"}, stdout: "Registration Bonus"},
		{name: "whoami", args: []string{"whoami"}, stdout: "Signed in as taro@example.com."},
		{name: "logout", args: []string{"logout"}, stdout: "You have been logged out."},
		{name: "balance kept", args: []string{"balance"}, stdout: "Balance: 1530 tokens"},
	}

	for _, step := range steps {
		stdout, stderr, err := execute(t, dir, step.args...)
		if step.reported {
			require.ErrorIs(t, err, errReported, step.name)
		} else {
			require.NoError(t, err, "%s: %s", step.name, stderr)
		}
		assert.Contains(t, stdout, step.stdout, step.name)
		assert.Contains(t, stderr, step.stderr, step.name)
	}
}

func TestCLI_RegisterPasswordMismatch(t *testing.T) {
	dir := testConfigDir(t)

	answers := []string{"secret", "different"}
	prev := readPassword
	readPassword = func() (string, error) {
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}
	t.Cleanup(func() { readPassword = prev })

	_, _, err := execute(t, dir, "language", "en")
	require.NoError(t, err)

	stdout, _, err := execute(t, dir, "register", "--name", "Taro", "--email", "taro@example.com")
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stdout, "Passwords do not match!")

	stdout, _, err = execute(t, dir, "whoami")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Not signed in.")
}

func TestCLI_ContentListing(t *testing.T) {
	dir := testConfigDir(t)

	stdout, _, err := execute(t, dir, "content", "--free")
	require.NoError(t, err)
	assert.Contains(t, stdout, "free")

	stdout, _, err = execute(t, dir, "packages")
	require.NoError(t, err)
	assert.Contains(t, stdout, "tokens-5000")
	assert.Contains(t, stdout, "best value")
}

func TestCLI_InvalidArgs(t *testing.T) {
	dir := testConfigDir(t)

	_, _, err := execute(t, dir, "social")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errReported)

	_, _, err = execute(t, dir, "language", "en")
	require.NoError(t, err)

	_, stderr, err := execute(t, dir, "social", "myspace")
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "Invalid input")
}
