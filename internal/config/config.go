// Package config loads client and dev-server settings.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. SMPORTAL_BASE_URL.
const EnvPrefix = "SMPORTAL_"

// Admin is the account the dev server creates at startup.
type Admin struct {
	Username string `koanf:"username" yaml:"username"`
	Password string `koanf:"password" yaml:"password"`
	Name     string `koanf:"name" yaml:"name"`
}

// Config holds every setting.
type Config struct {
	BaseURL     string        `koanf:"base_url" yaml:"base_url"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout"`
	LogLevel    string        `koanf:"log_level" yaml:"log_level"` // CLI only
	Interactive bool          `koanf:"interactive" yaml:"interactive"`
	ListenAddr  string        `koanf:"listen_addr" yaml:"listen_addr"`
	SeedAdmin   Admin         `koanf:"seed_admin" yaml:"seed_admin"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "http://localhost:8080/api",
		Timeout:     15 * time.Second,
		LogLevel:    "warn",
		Interactive: true,
		ListenAddr:  ":8080",
		SeedAdmin:   Admin{Username: "admin", Password: "admin", Name: "Administrator"},
	}
}

// Dir returns the per-user configuration directory.
func Dir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "smportal")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "smportal")
}

// DefaultPath is the config file used when none is given.
func DefaultPath() string { return filepath.Join(Dir(), "config.yml") }

// Load starts from defaults, overlays the YAML file at path if it exists,
// then overlays SMPORTAL_* environment variables. Nested keys use a double
// underscore: SMPORTAL_SEED_ADMIN__PASSWORD.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return cfg, nil
}

// Save writes c as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base_url %q: must be an absolute http(s) URL", c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q: must be one of debug, info, warn, error", c.LogLevel)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	return nil
}
