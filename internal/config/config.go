// Copyright 2025 The ndb Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package config loads the ndb command's YAML configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPaths are tried in order when no config file is named.
var DefaultPaths = []string{"configs/ndb.yaml", "ndb.yaml"}

type Config struct {
	// InputDir holds the CSV source files.
	InputDir string `yaml:"input_dir"`
	// OutputDir receives the built .bin files.
	OutputDir string `yaml:"output_dir"`
	// DataDir is where lookup and export read .bin files from.
	DataDir  string `yaml:"data_dir"`
	Strict   bool   `yaml:"strict"`
	LogLevel string `yaml:"log_level"`

	// Sources maps a CSV file name, e.g. "oui.csv", to the URL it is
	// fetched from.
	Sources map[string]string `yaml:"sources"`
	MMDB    MMDBConfig        `yaml:"mmdb"`
}

type MMDBConfig struct {
	ASN     string `yaml:"asn"`
	Country string `yaml:"country"`
}

func defaults() *Config {
	return &Config{
		InputDir: "data",
		LogLevel: "info",
	}
}

// Load reads the config at path.  With an empty path the DefaultPaths are
// searched, and if none exists the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		for _, p := range DefaultPaths {
			data, err := os.ReadFile(p)
			if err != nil {
				continue
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return cfg, fmt.Errorf("yaml.Unmarshal(%s): %w", p, err)
			}
			applyDefaults(cfg)
			return cfg, nil
		}
		applyDefaults(cfg)
		return cfg, nil // no file found: use defaults
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("yaml.Unmarshal(%s): %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.InputDir == "" {
		cfg.InputDir = "data"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = cfg.InputDir
	}
	if cfg.DataDir == "" {
		cfg.DataDir = cfg.OutputDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Sources == nil {
		cfg.Sources = map[string]string{}
	}
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}
