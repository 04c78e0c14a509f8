// Package config handles engine configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the engine configuration stored in
// ~/.config/citegraph/config.yml. Every field has a working default; a
// missing config file is not an error.
type Config struct {
	CorpusPath          string `yaml:"corpus_path,omitempty"`
	EdgesPath           string `yaml:"edges_path,omitempty"`
	BatchSize           int    `yaml:"batch_size,omitempty"`
	CommitThreshold     int    `yaml:"commit_threshold,omitempty"`
	Workers             int    `yaml:"workers,omitempty"`
	FanoutLimit         int    `yaml:"fanout_limit,omitempty"`
	CitableRefThreshold int    `yaml:"citable_ref_threshold,omitempty"`
	QueryTimeoutSecs    int    `yaml:"query_timeout_seconds,omitempty"`
}

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "citegraph"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// DefaultEdgesFile is the edge store file name when edges_path is unset.
	DefaultEdgesFile = "citations.db"
)

// DefaultPath returns the path to the config file. Respects
// XDG_CONFIG_HOME, defaults to ~/.config/citegraph/config.yml.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// Load reads configuration from path, falling back to defaults for unset
// fields. A missing file returns the zero config without error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes configuration to path, creating parent directories as needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ResolveEdgesPath returns the configured edge store path, defaulting to a
// citations database next to the corpus.
func (c *Config) ResolveEdgesPath() string {
	if c.EdgesPath != "" {
		return c.EdgesPath
	}
	if c.CorpusPath != "" {
		return filepath.Join(filepath.Dir(c.CorpusPath), DefaultEdgesFile)
	}
	return DefaultEdgesFile
}

// QueryTimeout returns the configured query timeout, or zero when unset so
// callers apply their own default.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSecs) * time.Second
}
