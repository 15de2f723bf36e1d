package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	API       APIConfig       `yaml:"api"`
	Auth      AuthConfig      `yaml:"auth"`
	Scanner   ScannerConfig   `yaml:"scanner"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Log       LogConfig       `yaml:"log"`
}

// APIConfig contains platform API settings
type APIConfig struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	HistoryPageSize int    `yaml:"history_page_size"`
}

// AuthConfig contains access token settings
type AuthConfig struct {
	AccessToken         string `yaml:"access_token"`
	ExpiryLeewaySeconds int    `yaml:"expiry_leeway_seconds"`
}

// ScannerConfig contains QR scanner settings
type ScannerConfig struct {
	Haptics bool `yaml:"haptics"`
}

// SchedulerConfig contains cron specs for background jobs
type SchedulerConfig struct {
	Enabled        bool   `yaml:"enabled"`
	RefreshHistory string `yaml:"refresh_history"`
	OverdueSweep   string `yaml:"overdue_sweep"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the configuration from a YAML file, applies environment
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	// API
	if val := os.Getenv("PACKLOOP_API_BASE_URL"); val != "" {
		c.API.BaseURL = val
	}
	if val := os.Getenv("PACKLOOP_API_TIMEOUT_SECONDS"); val != "" {
		fmt.Sscanf(val, "%d", &c.API.TimeoutSeconds)
	}

	// Auth
	if val := os.Getenv("PACKLOOP_ACCESS_TOKEN"); val != "" {
		c.Auth.AccessToken = val
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
}

func (c *Config) applyDefaults() {
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 30
	}
	if c.API.HistoryPageSize <= 0 {
		c.API.HistoryPageSize = 1000
	}
	if c.Auth.ExpiryLeewaySeconds <= 0 {
		c.Auth.ExpiryLeewaySeconds = 60
	}
	if c.Scheduler.RefreshHistory == "" {
		// every 5 minutes
		c.Scheduler.RefreshHistory = "0 */5 * * * *"
	}
	if c.Scheduler.OverdueSweep == "" {
		// nightly at 02:00 UTC
		c.Scheduler.OverdueSweep = "0 0 2 * * *"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api base_url is required")
	}
	if c.API.HistoryPageSize > 1000 {
		return fmt.Errorf("api history_page_size must not exceed 1000, got %d", c.API.HistoryPageSize)
	}
	return nil
}

// GetAPITimeout returns the request timeout as a duration
func (c *Config) GetAPITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// GetExpiryLeeway returns how early a token is considered expired
func (c *Config) GetExpiryLeeway() time.Duration {
	return time.Duration(c.Auth.ExpiryLeewaySeconds) * time.Second
}
