// Package config loads service settings from an optional YAML file, a .env
// file and the process environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultLogLevel    = "info"
	defaultHTTPTimeout = 30 * time.Second
)

// GraphConfig holds the app registration used for Microsoft Graph.
type GraphConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	BaseURL      string `yaml:"base_url"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen   string `yaml:"listen"`
	LogLevel string `yaml:"log_level"`

	Graph GraphConfig `yaml:"graph"`

	// DataverseURL is the CRM organization URL used for contact lookups.
	// Birthday reminders are unavailable when it is empty.
	DataverseURL string `yaml:"dataverse_url"`

	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// Normalize fills in zero values with defaults.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
}

// Load reads .env (if present), then the YAML file named by path or
// CONFIG_FILE (if any), then applies environment overrides.
func Load(path string) (*Config, error) {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("config file %s does not exist", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Listen, "LISTEN_ADDR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Graph.TenantID, "GRAPH_TENANT_ID")
	setString(&c.Graph.ClientID, "GRAPH_CLIENT_ID")
	setString(&c.Graph.ClientSecret, "GRAPH_CLIENT_SECRET")
	setString(&c.Graph.BaseURL, "GRAPH_BASE_URL")
	setString(&c.DataverseURL, "DATAVERSE_URL")

	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_TIMEOUT %q: %w", v, err)
		}
		c.HTTPTimeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate reports missing settings required to talk to Graph.
func (c *Config) Validate() error {
	var missing []string
	if c.Graph.TenantID == "" {
		missing = append(missing, "GRAPH_TENANT_ID")
	}
	if c.Graph.ClientID == "" {
		missing = append(missing, "GRAPH_CLIENT_ID")
	}
	if c.Graph.ClientSecret == "" {
		missing = append(missing, "GRAPH_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %v", missing)
	}
	return nil
}
