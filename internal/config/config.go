// Package config provides configuration loading and structs for the kioku server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Remote    RemoteConfig    `yaml:"remote"`
	Sync      SyncConfig      `yaml:"sync"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the local database and serialized indices.
type StorageConfig struct {
	DatabasePath string        `yaml:"database_path"`
	IndexDir     string        `yaml:"index_dir"`
	// SaveInterval is how often a changed index is written to IndexDir.
	SaveInterval time.Duration `yaml:"save_interval"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	// Provider is one of "onnx", "ollama" or "mock".
	Provider      string `yaml:"provider"`
	ModelPath     string `yaml:"model_path"`
	BaseURL       string `yaml:"base_url"`
	Model         string `yaml:"model"`
	Dimensions    int    `yaml:"dimensions"`
	MaxTokens     int    `yaml:"max_tokens"`
	CacheSize     int    `yaml:"cache_size"`
	Workers       int    `yaml:"workers"`
	MinTextLength int    `yaml:"min_text_length"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultLimit        int     `yaml:"default_limit"`
	MaxLimit            int     `yaml:"max_limit"`
	DefaultMode         string  `yaml:"default_mode"`
	SemanticThreshold   float64 `yaml:"semantic_threshold"`
	TopKCandidates      int     `yaml:"top_k_candidates"`
	ContextMessageLimit int     `yaml:"context_message_limit"`
	ContextFactLimit    int     `yaml:"context_fact_limit"`
}

// RemoteConfig holds remote store settings.
type RemoteConfig struct {
	// Provider is "postgres" or "memory". Defaults to "postgres" when DSN is set;
	// empty means no remote store.
	Provider      string        `yaml:"provider"`
	DSN           string        `yaml:"dsn"`
	Timeout       time.Duration `yaml:"timeout"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
}

// SyncConfig holds sync queue settings.
type SyncConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	Interval   time.Duration `yaml:"interval"`
	// AutoSync flushes the queue when connectivity comes back. Defaults to true when unset.
	AutoSync *bool `yaml:"auto_sync"`
}

// AutoSyncOrDefault returns whether to flush on reconnect; defaults to true when unset.
func (s *SyncConfig) AutoSyncOrDefault() bool {
	if s.AutoSync != nil {
		return *s.AutoSync
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
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

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.IndexDir = expandPath(cfg.Storage.IndexDir, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == ":memory:" || filepath.IsAbs(path) {
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
