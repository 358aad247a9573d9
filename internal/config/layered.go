package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/peerwatch/peerwatch/internal/constants"
)

// EnvConfigPath names the environment variable that points at the config file.
const EnvConfigPath = "PEERWATCH_CONFIG"

// Layer represents a configuration layer source.
type Layer string

const (
	// LayerDefaults represents default configuration values.
	LayerDefaults Layer = "defaults"

	// LayerFile represents configuration from a file.
	LayerFile Layer = "file"

	// LayerEnv represents configuration from environment variables.
	LayerEnv Layer = "env"
)

// LayeredLoader provides layered configuration loading.
// Configuration is loaded in the following order:
// 1. Defaults - Default()
// 2. File - YAML configuration file
// 3. Environment - PEERWATCH_* variables
//
// Each layer overrides values from previous layers. Command-line flags are
// applied by the caller on the returned Config.
type LayeredLoader struct {
	enabledLayers map[Layer]bool
}

// NewLayeredLoader creates a new layered configuration loader with all
// layers enabled.
func NewLayeredLoader() *LayeredLoader {
	return &LayeredLoader{
		enabledLayers: map[Layer]bool{
			LayerDefaults: true,
			LayerFile:     true,
			LayerEnv:      true,
		},
	}
}

// EnableLayer enables a specific configuration layer.
func (l *LayeredLoader) EnableLayer(layer Layer) {
	l.enabledLayers[layer] = true
}

// DisableLayer disables a specific configuration layer.
func (l *LayeredLoader) DisableLayer(layer Layer) {
	l.enabledLayers[layer] = false
}

// Load builds the configuration from the enabled layers and validates it.
// A missing configuration file is not an error.
func (l *LayeredLoader) Load(configPath string) (*Config, error) {
	var cfg *Config

	if l.enabledLayers[LayerDefaults] {
		cfg = Default()
	} else {
		cfg = &Config{}
	}

	if l.enabledLayers[LayerFile] && configPath != "" {
		if err := l.mergeFromFile(cfg, configPath); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
		}
	}

	if l.enabledLayers[LayerEnv] {
		if err := LoadFromEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeFromFile loads configuration from a YAML file and merges it into cfg.
func (l *LayeredLoader) mergeFromFile(cfg *Config, filePath string) error {
	// #nosec G304 -- filePath comes from --config or PEERWATCH_CONFIG.
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML %s: %w", filePath, err)
	}

	return nil
}

// ResolvePath picks the configuration file: the explicit flag value, then
// PEERWATCH_CONFIG, then the system default.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return constants.DefaultConfigPath
}

// Load is a shortcut for NewLayeredLoader().Load(ResolvePath(flagValue)).
func Load(flagValue string) (*Config, error) {
	return NewLayeredLoader().Load(ResolvePath(flagValue))
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
