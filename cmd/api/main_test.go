package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return cmd.Execute()
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	cmd := newRootCommand()
	flag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue)
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.toml")
}

func TestRootCommand_RequiresJWTSecret(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("JWT_SECRET", "")

	path := filepath.Join(dir, "theone.toml")
	content := `
[database]
driver = "sqlite3"
path = ":memory:"

[log]
level = "error"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	err := execute(t, "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestRootCommand_RejectsArguments(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.Error(t, execute(t, "serve"))
}
