// Package config provides configuration loading and structs for artcollector.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ARTCOLLECTOR_"

// Catalog sources.
const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug" env:"DEBUG"`
	Server  ServerConfig  `yaml:"server"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Catalog CatalogConfig `yaml:"catalog"`
}

// ServerConfig holds HTTP server and session settings.
type ServerConfig struct {
	Host        string        `yaml:"host" env:"SERVER_HOST"`
	Port        int           `yaml:"port" env:"SERVER_PORT"`
	SessionTTL  time.Duration `yaml:"session_ttl"`
	MaxSessions int           `yaml:"max_sessions"`
}

// APIConfig holds settings for the remote collection API.
type APIConfig struct {
	BaseURL           string        `yaml:"base_url" env:"API_BASE_URL"`
	APIKey            string        `yaml:"api_key" env:"API_KEY"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	PageSize          int           `yaml:"page_size"`
	ResultCacheSize   int           `yaml:"result_cache_size"`
	ResultCacheTTL    time.Duration `yaml:"result_cache_ttl"`
}

// StorageConfig holds the reference-list cache database settings.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" env:"DATABASE_PATH"`
	// DiskCache enables persisting reference lists between runs. Nil means true.
	DiskCache *bool `yaml:"disk_cache"`
}

// DiskCacheOrDefault returns whether reference lists are cached on disk; defaults to true when unset.
func (s *StorageConfig) DiskCacheOrDefault() bool {
	if s.DiskCache != nil {
		return *s.DiskCache
	}
	return true
}

// CatalogConfig selects where records come from.
type CatalogConfig struct {
	// Source is "remote" (HTTP API) or "local" (indexed collection file).
	Source         string `yaml:"source" env:"CATALOG_SOURCE"`
	CollectionPath string `yaml:"collection_path" env:"COLLECTION_PATH"`
	// IndexPath is where the local bleve index lives; empty keeps it in memory.
	IndexPath string `yaml:"index_path"`
	// Watch reloads the collection when its file changes. Nil means true.
	Watch *bool `yaml:"watch"`
}

// WatchOrDefault returns whether the collection file is watched; defaults to true when unset.
func (c *CatalogConfig) WatchOrDefault() bool {
	if c.Watch != nil {
		return *c.Watch
	}
	return true
}

// Load reads and parses the config file at path, applies environment overrides,
// expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Catalog.CollectionPath != "" {
		cfg.Catalog.CollectionPath = expandPath(cfg.Catalog.CollectionPath, configDir)
	}
	if cfg.Catalog.IndexPath != "" {
		cfg.Catalog.IndexPath = expandPath(cfg.Catalog.IndexPath, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnv overlays ARTCOLLECTOR_* environment variables onto cfg.
// Unset variables leave the file values alone.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

// Validate checks cross-field constraints after defaults are applied.
func (c *Config) Validate() error {
	switch c.Catalog.Source {
	case SourceRemote:
	case SourceLocal:
		if c.Catalog.CollectionPath == "" {
			return fmt.Errorf("catalog.collection_path is required for the local source")
		}
	default:
		return fmt.Errorf("unknown catalog source %q", c.Catalog.Source)
	}
	return nil
}

// Save writes the config to path. Used by "artcollector init".
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}

// FromEnv builds a config from defaults and environment overrides alone, for
// running without a config file.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
