// Copyright (C) 2025 Apex Labs (dev@apexstack.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads and validates the conductor's configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8085".
	Addr string `yaml:"addr" validate:"required"`
}

// WeaviateConfig configures the cold external store.
type WeaviateConfig struct {
	// Enabled turns the cold tier on. When false the conductor runs with
	// warm and hot tiers only.
	Enabled bool `yaml:"enabled"`

	// Host is the Weaviate host:port, e.g. "localhost:8080".
	Host string `yaml:"host" validate:"required_if=Enabled true"`

	// Scheme is "http" or "https".
	Scheme string `yaml:"scheme" validate:"omitempty,oneof=http https"`

	// CallTimeout bounds each Weaviate call.
	CallTimeout time.Duration `yaml:"callTimeout"`
}

// BadgerConfig configures the warm embedded store.
type BadgerConfig struct {
	// Enabled turns the warm tier on.
	Enabled bool `yaml:"enabled"`

	// Path is the directory for database files.
	Path string `yaml:"path" validate:"required_if=Enabled true"`
}

// TrackerConfig configures session tracking limits.
type TrackerConfig struct {
	SessionTTL    time.Duration `yaml:"sessionTtl"`
	MaxSessions   int           `yaml:"maxSessions" validate:"omitempty,gt=0"`
	SweepInterval time.Duration `yaml:"sweepInterval"`
}

// LearnerConfig configures the learner's cache and persistence.
type LearnerConfig struct {
	MaxEntries       int           `yaml:"maxEntries" validate:"omitempty,gt=0"`
	PersistQueueSize int           `yaml:"persistQueueSize" validate:"omitempty,gt=0"`
	PersistTimeout   time.Duration `yaml:"persistTimeout"`
}

// Config is the conductor's full configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Weaviate WeaviateConfig `yaml:"weaviate"`
	Badger   BadgerConfig   `yaml:"badger"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Learner  LearnerConfig  `yaml:"learner"`
}

// DefaultConfig returns production defaults: local stores on, standard
// limits.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{Addr: ":8085"},
		Weaviate: WeaviateConfig{
			Enabled:     false,
			Host:        "localhost:8080",
			Scheme:      "http",
			CallTimeout: 3 * time.Second,
		},
		Badger: BadgerConfig{
			Enabled: true,
			Path:    "data/conductor",
		},
		Tracker: TrackerConfig{
			SessionTTL:    2 * time.Hour,
			MaxSessions:   10000,
			SweepInterval: time.Minute,
		},
		Learner: LearnerConfig{
			MaxEntries:       2048,
			PersistQueueSize: 256,
			PersistTimeout:   3 * time.Second,
		},
	}
}

// Load reads a yaml config file over the defaults and validates the
// result. An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
