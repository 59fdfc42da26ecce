// Package config loads the client configuration from a YAML file and ADT_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/fr0ster/mcp-abap-adt-clients-sub007/pkg/transport"
)

// Config is everything needed to talk to one ABAP system.
type Config struct {
	BaseURL  string `mapstructure:"base_url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Client   string `mapstructure:"client"`
	Language string `mapstructure:"language"`

	// LockRegistryDir is where held-lock records are persisted for crash
	// recovery.
	LockRegistryDir string `mapstructure:"lock_registry_dir"`

	Timeouts TimeoutConfig `mapstructure:"timeouts"`
}

type TimeoutConfig struct {
	Default time.Duration `mapstructure:"default"`
	CSRF    time.Duration `mapstructure:"csrf"`
	Long    time.Duration `mapstructure:"long"`
}

// Transport converts the timeout section to the transport's timeout classes.
func (t TimeoutConfig) Transport() transport.Timeouts {
	timeouts := transport.DefaultTimeouts()
	if t.Default > 0 {
		timeouts.Default = t.Default
	}
	if t.CSRF > 0 {
		timeouts.CSRF = t.CSRF
	}
	if t.Long > 0 {
		timeouts.Long = t.Long
	}
	return timeouts
}

// Load reads the configuration. When path is empty, $HOME/.adt/config.yaml
// is tried; a missing file is fine as long as the environment supplies the
// required values. Environment variables use the ADT_ prefix
// (ADT_BASE_URL, ADT_USERNAME, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".adt"))
			v.SetConfigName("config")
		}
	}

	v.SetEnvPrefix("ADT")
	v.AutomaticEnv()
	for _, key := range []string{
		"base_url", "username", "password", "client", "language", "lock_registry_dir",
	} {
		// AutomaticEnv alone does not pick up keys never mentioned in the
		// config file; bind them explicitly.
		_ = v.BindEnv(key)
	}

	v.SetDefault("language", "EN")
	v.SetDefault("lock_registry_dir", defaultRegistryDir())

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; an explicit path must load.
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if path != "" || (!notFound && !os.IsNotExist(err)) {
			return nil, fmt.Errorf("could not read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode configuration: %w", err)
	}
	return &cfg, nil
}

// RequireBaseURL validates that a system to talk to is configured. Commands
// that only read local state skip this check.
func (c *Config) RequireBaseURL() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is not configured (set it in the config file or via ADT_BASE_URL)")
	}
	return nil
}

func defaultRegistryDir() string {
	return filepath.Join(os.TempDir(), "adt", "locks")
}
