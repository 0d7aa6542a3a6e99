// Package config loads and validates scrim.yml plus the environment
// overrides used at boot.
package config

import (
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Environment variable names recognized at boot. Environment always wins
// over file values.
const (
	EnvAPIKey     = "GEMINI_API_KEY"
	EnvStoreURL   = "SCRIM_STORE_URL"
	EnvStoreKey   = "SCRIM_STORE_KEY"
	EnvListenAddr = "SCRIM_LISTEN_ADDR"
)

// ScrimConfig represents the top-level scrim.yml configuration.
type ScrimConfig struct {
	Version    string       `yaml:"version"`
	Instance   string       `yaml:"instance,omitempty"`
	ListenAddr string       `yaml:"listen_addr,omitempty"`
	Store      StoreConfig  `yaml:"store,omitempty"`
	Models     ModelsConfig `yaml:"models,omitempty"`

	// APIKey comes from the environment only; it never lives in the file.
	APIKey string `yaml:"-"`
}

// StoreConfig points at the external store.
type StoreConfig struct {
	URL string `yaml:"url,omitempty"`
	Key string `yaml:"key,omitempty"`
}

// ModelsConfig selects the oracle model per tier.
type ModelsConfig struct {
	Fast    string `yaml:"fast,omitempty"`
	Quality string `yaml:"quality,omitempty"`
}

// Default returns the configuration used when no scrim.yml exists.
func Default() *ScrimConfig {
	return &ScrimConfig{
		Version:    "1.0",
		Instance:   "default",
		ListenAddr: ":8080",
		Store:      StoreConfig{URL: "redis://localhost:6379"},
	}
}

// Validate performs strict validation on the configuration.
func (c *ScrimConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}
	if c.Instance == "" {
		return fmt.Errorf("instance name cannot be empty")
	}
	if c.Store.URL == "" {
		return fmt.Errorf("store URL cannot be empty")
	}
	if _, err := c.RedisOptions(); err != nil {
		return err
	}
	return nil
}

// Load reads and validates a scrim.yml. A missing file yields the defaults.
// Environment overrides are applied either way.
func Load(path string) (*ScrimConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if cfg.Instance == "" {
			cfg.Instance = "default"
		}
		if cfg.ListenAddr == "" {
			cfg.ListenAddr = ":8080"
		}
	}

	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays the recognized environment variables.
func (c *ScrimConfig) ApplyEnv() {
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvStoreURL); v != "" {
		c.Store.URL = v
	}
	if v := os.Getenv(EnvStoreKey); v != "" {
		c.Store.Key = v
	}
	if v := os.Getenv(EnvListenAddr); v != "" {
		c.ListenAddr = v
	}
}

// RedisOptions translates the store config into go-redis connection options.
func (c *ScrimConfig) RedisOptions() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.Store.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid store URL %q: %w", c.Store.URL, err)
	}
	if c.Store.Key != "" {
		opts.Password = c.Store.Key
	}
	return opts, nil
}
