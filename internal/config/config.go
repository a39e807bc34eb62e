package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete client configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Session  SessionConfig  `yaml:"session" envconfig:"SESSION"`
	Probe    ProbeConfig    `yaml:"probe" envconfig:"PROBE"`
	Download DownloadConfig `yaml:"download" envconfig:"DOWNLOAD"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
}

// ServerConfig contains license server connection settings
type ServerConfig struct {
	BaseURL     string        `yaml:"base_url" envconfig:"BASE_URL" validate:"required,url"`
	HTTPTimeout time.Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT" validate:"gt=0"`
}

// SessionConfig controls the session lifecycle policy
type SessionConfig struct {
	// RefreshMargin is the lead time before token expiry at which the client
	// refreshes proactively.
	RefreshMargin time.Duration `yaml:"refresh_margin" envconfig:"REFRESH_MARGIN" validate:"gt=0"`
}

// ProbeConfig bounds hardware probe execution
type ProbeConfig struct {
	// Timeout applies per probe so a hung OS query cannot stall collection.
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0,lte=10s"`
}

// DownloadConfig contains client-side download throttling
type DownloadConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND" validate:"gt=0"`
	Burst             int     `yaml:"burst" envconfig:"BURST" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// Load loads configuration from environment variables and an optional YAML
// file. Environment variables win over file values.
func Load(configFile string) (*Config, error) {
	var cfg Config

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileCfg, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = *fileCfg
		}
	}

	if err := envconfig.Process("PERMIT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when neither environment nor file
// overrides are present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero-valued fields after the file and environment
// passes. The struct tags deliberately carry no envconfig defaults:
// envconfig writes tag defaults over whatever the file pass loaded, so
// defaults are applied here, once, last.
func (c *Config) applyDefaults() {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "https://api.permitted.dev"
	}
	if c.Server.HTTPTimeout == 0 {
		c.Server.HTTPTimeout = 30 * time.Second
	}
	if c.Session.RefreshMargin == 0 {
		c.Session.RefreshMargin = 300 * time.Second
	}
	if c.Probe.Timeout == 0 {
		c.Probe.Timeout = 5 * time.Second
	}
	if c.Download.RequestsPerSecond == 0 {
		c.Download.RequestsPerSecond = 2
	}
	if c.Download.Burst == 0 {
		c.Download.Burst = 4
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "console"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/permit.log"
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return err
	}
	return nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
