package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	t.Parallel()
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_url: https://example.org/api
timeout: 3s
interactive: false
seed_admin:
  username: ops
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://example.org/api", cfg.BaseURL)
	require.Equal(t, 3*time.Second, cfg.Timeout)
	require.False(t, cfg.Interactive)
	require.Equal(t, "ops", cfg.SeedAdmin.Username)
	require.Equal(t, "admin", cfg.SeedAdmin.Password)
	require.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: https://file.example/api\n"), 0o600))
	t.Setenv("SMPORTAL_BASE_URL", "http://env.example/api")
	t.Setenv("SMPORTAL_SEED_ADMIN__PASSWORD", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://env.example/api", cfg.BaseURL)
	require.Equal(t, "from-env", cfg.SeedAdmin.Password)
}

func TestLoad_BadYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("base_url: [unterminated"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sub", "config.yml")
	cfg := DefaultConfig()
	cfg.BaseURL = "https://saved.example/api"
	cfg.Timeout = 42 * time.Second
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	cases := map[string]func(*Config){
		"relative url": func(c *Config) { c.BaseURL = "/api" },
		"ftp url":      func(c *Config) { c.BaseURL = "ftp://x/api" },
		"neg timeout":  func(c *Config) { c.Timeout = -time.Second },
		"bad level":    func(c *Config) { c.LogLevel = "loud" },
		"no listen":    func(c *Config) { c.ListenAddr = "" },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		require.Error(t, cfg.Validate(), name)
	}
}
