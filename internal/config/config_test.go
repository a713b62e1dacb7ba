package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	t.Setenv(EnvSMTPPassword, "")
	t.Setenv(EnvDB, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.Retention())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	t.Setenv(EnvSMTPPassword, "")
	t.Setenv(EnvDB, "")
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := DefaultConfig()
	cfg.Server.Addr = "0.0.0.0:9000"
	cfg.SMTP.Host = "smtp.example.edu"
	cfg.Backup.Schedule = "@daily"
	cfg.Appearance.Theme = "catppuccin-mocha"
	require.NoError(t, Save(path, cfg))
	assert.True(t, Exists(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[auth]
jwt_secret = "from-file"

[database]
path = "/srv/file.db"
`), 0o600))

	t.Setenv(EnvJWTSecret, "from-env")
	t.Setenv(EnvSMTPPassword, "mailpw")
	t.Setenv(EnvDB, "/srv/env.db")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, "mailpw", cfg.SMTP.Password)
	assert.Equal(t, "/srv/env.db", cfg.DBPath())
	// Untouched sections keep defaults.
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
}

func TestLoadBadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\naddr ="), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	t.Setenv(EnvDB, "")

	assert.Equal(t, "/xdg/config/oafund/config.toml", ConfigPath())
	cfg := DefaultConfig()
	assert.Equal(t, "/xdg/data/oafund/oafund.db", cfg.DBPath())
	assert.Equal(t, "/xdg/data/oafund/uploads", cfg.UploadDir())
	assert.Equal(t, "/xdg/data/oafund/backups", cfg.BackupDir())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.NoError(t, LoadDotEnv(), "missing .env is fine")

	t.Setenv("OAFUND_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("OAFUND_TEST_DOTENV"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OAFUND_TEST_DOTENV=hello\n"), 0o600))
	require.NoError(t, LoadDotEnv())
	assert.Equal(t, "hello", os.Getenv("OAFUND_TEST_DOTENV"))
}
