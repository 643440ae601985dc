// Package config loads the taskloom configuration: where the data
// lives and how analytics scoring is weighted. Configuration is a
// single YAML file; every field has a default, so no file at all is a
// valid setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/taskloom/taskloom/internal/analytics"
)

const (
	// DefaultDirName is the per-user data directory under $HOME.
	DefaultDirName = ".taskloom"

	// ConfigFile is the config filename inside the data directory.
	ConfigFile = "config.yaml"

	// ItemsDir is the work-item document directory inside DataDir.
	ItemsDir = "items"

	// IndexFile is the SQLite index filename inside DataDir.
	IndexFile = "index.db"
)

// Config is the full taskloom configuration.
type Config struct {
	// DataDir holds the item documents and the SQLite index.
	DataDir string `yaml:"data_dir"`

	// Analytics tunes the scoring coefficients. Zero value means
	// defaults.
	Analytics analytics.Weights `yaml:"analytics"`
}

// Default returns the configuration used when no file exists: data
// under ~/.taskloom and the standard analytics weights.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		DataDir:   filepath.Join(home, DefaultDirName),
		Analytics: analytics.DefaultWeights(),
	}
}

// Load reads the configuration from path. An empty path means the
// default location; a missing file is not an error and yields the
// defaults. Explicitly named files must exist.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(cfg.DataDir, ConfigFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = Default().DataDir
	}
	if cfg.Analytics == (analytics.Weights{}) {
		cfg.Analytics = analytics.DefaultWeights()
	}
	return cfg, nil
}

// ItemsPath returns the work-item document directory.
func (c Config) ItemsPath() string {
	return filepath.Join(c.DataDir, ItemsDir)
}

// IndexPath returns the SQLite index location.
func (c Config) IndexPath() string {
	return filepath.Join(c.DataDir, IndexFile)
}

// Save writes the configuration to path, creating parent directories
// as needed.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
