// Package config loads the service's YAML configuration: listening
// address, store path, dimension, index backend, and embedding provider.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
)

// DefaultConfigDir and DefaultConfigFile make up ~/.mnemo/config.yaml.
const (
	DefaultConfigDir  = ".mnemo"
	DefaultConfigFile = "config.yaml"
)

// OpenAIConfig holds credentials for the openai embedder provider.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key,omitempty"`
	Model  string `yaml:"model,omitempty"`
}

// EmbedderConfig selects and configures the embedding producer.
type EmbedderConfig struct {
	Provider string       `yaml:"provider"`
	OpenAI   OpenAIConfig `yaml:"openai,omitempty"`
}

// Config is the top-level service configuration.
type Config struct {
	Listen       string         `yaml:"listen"`
	Transport    string         `yaml:"transport"`
	StorePath    string         `yaml:"store_path"`
	Dimension    int            `yaml:"dimension"`
	IndexBackend string         `yaml:"index_backend"`
	Embedder     EmbedderConfig `yaml:"embedder"`

	path string `yaml:"-"`
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	return &Config{
		Listen:       ":7420",
		Transport:    "tcp",
		StorePath:    "./data/mnemo.badger",
		Dimension:    1536,
		IndexBackend: "flat",
		Embedder:     EmbedderConfig{Provider: "hash"},
	}
}

// DefaultPath returns ~/.mnemo/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// Load reads configuration from path, or from DefaultPath if path is
// empty. A missing file is not an error: Load writes out the defaults
// and returns them.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Save()
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

// Save writes cfg back to its path, creating the parent directory if
// needed.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", c.path, err)
	}
	return nil
}

// Path returns the file this config was loaded from or will be saved to.
func (c *Config) Path() string { return c.path }
