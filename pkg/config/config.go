// Package config provides configuration loading and management for
// segcorrect. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"segcorrect/pkg/correction"
	"segcorrect/pkg/overlap"
)

// Config represents the correction configuration loaded from YAML.
type Config struct {
	// Correction parameters
	Correction struct {
		// ThresholdMerge is the minimum nucleus overlap fraction for a
		// cell to take part in a merge
		ThresholdMerge float64 `yaml:"thresholdMerge"`

		// ThresholdSplit is the minimum nucleus overlap fraction for a
		// nucleus to count as fully inside a cell
		ThresholdSplit float64 `yaml:"thresholdSplit"`

		// NucleiQuantileLow/High bound the nuclei size filter
		NucleiQuantileLow  float64 `yaml:"nucleiQuantileLow"`
		NucleiQuantileHigh float64 `yaml:"nucleiQuantileHigh"`

		// PixelTolerance pads the bounding box around cells before
		// re-segmentation
		PixelTolerance int `yaml:"pixelTolerance"`
	} `yaml:"correction"`

	// Watershed parameters
	Watershed struct {
		// Compactness trades shape regularity against cost-following
		// during seeded flooding
		Compactness float64 `yaml:"compactness"`

		// SmoothingSigma is the gaussian standard deviation applied to
		// the cost map before flooding
		SmoothingSigma float64 `yaml:"smoothingSigma"`
	} `yaml:"watershed"`

	// Processing parameters
	Processing struct {
		// Workers specifies how many goroutines to use for the
		// counting and split passes
		Workers int `yaml:"workers"`

		// MaxLabels caps the dense per-label statistics arrays
		MaxLabels int `yaml:"maxLabels"`
	} `yaml:"processing"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Correction.ThresholdMerge = 0.33
	cfg.Correction.ThresholdSplit = 0.66
	cfg.Correction.NucleiQuantileLow = 0.3
	cfg.Correction.NucleiQuantileHigh = 0.99
	cfg.Correction.PixelTolerance = 0

	cfg.Watershed.Compactness = 0.001
	cfg.Watershed.SmoothingSigma = 2.0

	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.MaxLabels = overlap.DefaultMaxLabels

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
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

// SaveConfig saves the configuration to a YAML file.
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

// Params converts the configuration into correction parameters.
func (c *Config) Params() correction.Params {
	return correction.Params{
		ThresholdMerge: c.Correction.ThresholdMerge,
		ThresholdSplit: c.Correction.ThresholdSplit,
		QuantileLow:    c.Correction.NucleiQuantileLow,
		QuantileHigh:   c.Correction.NucleiQuantileHigh,
		PixelTolerance: c.Correction.PixelTolerance,
		Compactness:    c.Watershed.Compactness,
		SmoothingSigma: c.Watershed.SmoothingSigma,
		Workers:        c.Processing.Workers,
		MaxLabels:      c.Processing.MaxLabels,
	}
}
