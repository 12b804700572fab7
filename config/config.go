// Package config loads the gate configuration from a YAML file.
package config

import (
	"bytes"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-ppe/compliance"
	"github.com/nvr-ai/go-ppe/inference/detectors"
	"github.com/nvr-ai/go-ppe/server"
	"github.com/nvr-ai/go-ppe/video"
)

// StoreConfig locates the decision history database.
type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// Config is the complete gate configuration.
type Config struct {
	Engine   compliance.Config `json:"engine"   yaml:"engine"`
	Detector detectors.Config  `json:"detector" yaml:"detector"`
	Video    video.Config      `json:"video"    yaml:"video"`
	Store    StoreConfig       `json:"store"    yaml:"store"`
	Server   server.Config     `json:"server"   yaml:"server"`
	// Workers bounds concurrent detector calls per video. Zero uses the
	// number of CPUs.
	Workers int `json:"workers" yaml:"workers"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Engine:   compliance.DefaultConfig(),
		Detector: detectors.DefaultConfig(),
		Video:    video.DefaultConfig(),
		Store:    StoreConfig{Path: "data/ppe.sqlite"},
		Server:   server.DefaultConfig(),
	}
}

// Load reads path over the defaults. An empty path or a missing file
// yields the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, cfg.Validate()
	} else if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %v", path)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config %v", path)
	}
	return cfg, nil
}

// Parse decodes YAML over cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return errors.Wrap(err, "failed to parse YAML")
		}
	}
	return cfg.Validate()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return errors.Wrap(err, "engine")
	}
	if err := c.Detector.Validate(); err != nil {
		return errors.Wrap(err, "detector")
	}
	if err := c.Video.Validate(); err != nil {
		return errors.Wrap(err, "video")
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return errors.New("store: path is required")
	}
	if err := c.Server.Validate(); err != nil {
		return errors.Wrap(err, "server")
	}
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}
