// Package config loads application configuration from defaults, an optional
// ~/.rookery/config.yaml, and ROOKERY_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the resolved application configuration.
type Config struct {
	// CacheRoot is the private directory holding the global cache and
	// managed clones.
	CacheRoot string `mapstructure:"cache_root"`

	Marketplace Marketplace `mapstructure:"marketplace"`

	Git Git `mapstructure:"git"`
}

// Marketplace configures the hosted marketplace backend.
type Marketplace struct {
	BaseURL string `mapstructure:"base_url"`
	Token   string `mapstructure:"token"`
}

// Git configures credentials passed through to version-control remotes.
type Git struct {
	Username   string `mapstructure:"username"`
	Token      string `mapstructure:"token"`
	SSHKeyPath string `mapstructure:"ssh_key_path"`
}

// Dir returns the application's private directory, ~/.rookery.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".rookery"), nil
}

// Load resolves the configuration. A missing config file is fine; malformed
// config is not.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetDefault("cache_root", filepath.Join(dir, "cache"))
	v.SetDefault("marketplace.base_url", "https://marketplace.rookery.dev")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("ROOKERY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
