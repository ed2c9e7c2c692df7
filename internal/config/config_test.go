package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 10*time.Second, cfg.Client.RemoteTimeout.Duration)
	assert.Equal(t, 24*time.Hour, cfg.Server.TokenTTL.Duration)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.toml")
	content := `
[server]
addr = ":9090"
jwt_secret = "from-file"

[database]
driver = "sqlite3"
path = "file.db"

[client]
remote_timeout = "3s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "from-env", cfg.Server.JWTSecret, "env overrides file")
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "file.db", cfg.Database.DSN())
	assert.Equal(t, 3*time.Second, cfg.Client.RemoteTimeout.Duration)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REMOTE_TIMEOUT", "soon")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REMOTE_TIMEOUT")
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("THEONE_USER=neo\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("THEONE_USER") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "neo", cfg.Client.LocalUser)
}

func TestDatabaseConfig_DSN_MySQL(t *testing.T) {
	c := DatabaseConfig{Driver: "mysql", User: "u", Pass: "p", Host: "db", Port: "3306", Name: "todo"}
	assert.Equal(t, "u:p@tcp(db:3306)/todo?parseTime=true&clientFoundRows=true", c.DSN())
}
