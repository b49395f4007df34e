// Package config provides configuration loading and management for the
// trajectory tools. It handles loading configuration from YAML files
// and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Physics parameters
	Physics struct {
		// GammaHzPerTesla is the gyromagnetic ratio used to convert
		// frequency offsets to ppm
		GammaHzPerTesla float64 `yaml:"gammaHzPerTesla"`

		// B0Tesla is the main field strength; 0 means "take it from
		// the sequence, fall back when neither defines it"
		B0Tesla float64 `yaml:"b0Tesla"`

		// FallbackB0Tesla is assumed when neither the config nor the
		// sequence defines B0
		FallbackB0Tesla float64 `yaml:"fallbackB0Tesla"`
	} `yaml:"physics"`

	// RF-use classification parameters. These are empirically tuned
	// detection constants; change them only deliberately.
	Classification struct {
		// ExcitationMaxFlipDeg is the flip angle below which a pulse
		// counts as excitation
		ExcitationMaxFlipDeg float64 `yaml:"excitationMaxFlipDeg"`

		// SaturationMinDurationMs is the minimum duration of a
		// saturation pulse in milliseconds
		SaturationMinDurationMs float64 `yaml:"saturationMinDurationMs"`

		// SaturationPPMMin and SaturationPPMMax bound the
		// off-resonance band of a fat-saturation pulse in ppm
		SaturationPPMMin float64 `yaml:"saturationPpmMin"`
		SaturationPPMMax float64 `yaml:"saturationPpmMax"`
	} `yaml:"classification"`

	// Output parameters
	Output struct {
		// Verbose controls the level of progress output
		Verbose bool `yaml:"verbose"`

		// Precision is the number of significant digits written to
		// CSV exports
		Precision int `yaml:"precision"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Hydrogen gamma, 3T fallback field
	cfg.Physics.GammaHzPerTesla = 42.576e6
	cfg.Physics.B0Tesla = 0.0
	cfg.Physics.FallbackB0Tesla = 3.0

	// Established RF-use detection constants
	cfg.Classification.ExcitationMaxFlipDeg = 90.01
	cfg.Classification.SaturationMinDurationMs = 6.0
	cfg.Classification.SaturationPPMMin = -4.5
	cfg.Classification.SaturationPPMMax = -3.0

	cfg.Output.Verbose = true
	cfg.Output.Precision = 9

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
