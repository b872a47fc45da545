package config

import "time"

// DefaultBaseURL is the public collection API.
const DefaultBaseURL = "https://api.harvardartmuseums.org"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.SessionTTL == 0 {
		cfg.Server.SessionTTL = 30 * time.Minute
	}
	if cfg.Server.MaxSessions == 0 {
		cfg.Server.MaxSessions = 1024
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 15 * time.Second
	}
	if cfg.API.RequestsPerSecond == 0 {
		cfg.API.RequestsPerSecond = 5
	}
	if cfg.API.Burst == 0 {
		cfg.API.Burst = 5
	}
	if cfg.API.PageSize == 0 {
		cfg.API.PageSize = 100
	}
	// A negative size disables the result cache.
	if cfg.API.ResultCacheSize == 0 {
		cfg.API.ResultCacheSize = 256
	}
	if cfg.API.ResultCacheTTL == 0 {
		cfg.API.ResultCacheTTL = 5 * time.Minute
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/artcollector/artcollector.db"
	}
	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = SourceRemote
	}
	if cfg.Catalog.Watch == nil {
		watch := true
		cfg.Catalog.Watch = &watch
	}
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
