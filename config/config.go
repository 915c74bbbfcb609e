// Package config provides configuration management for the taskpane verifier.
// It supports YAML configuration files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the verifier
type Config struct {
	// Target page and element under verification
	Target TargetConfig `yaml:"target"`

	// Browser configuration
	Browser BrowserConfig `yaml:"browser"`

	// Output configuration
	Output OutputConfig `yaml:"output"`

	// Storage configuration for the run history
	Storage StorageConfig `yaml:"storage"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging"`
}

// TargetConfig identifies the page and element to verify
type TargetConfig struct {
	// BaseDir is the directory the page path is resolved against.
	// Empty means the process working directory at run time.
	BaseDir   string `yaml:"base_dir"`
	PagePath  string `yaml:"page_path"`
	ElementID string `yaml:"element_id"`
	FillValue string `yaml:"fill_value"`
}

// BrowserConfig holds browser automation settings
type BrowserConfig struct {
	Headless       bool `yaml:"headless"`
	SlowMotion     int  `yaml:"slow_motion_ms"`
	Timeout        int  `yaml:"timeout_seconds"`
	ViewportWidth  int  `yaml:"viewport_width"`
	ViewportHeight int  `yaml:"viewport_height"`
}

// OutputConfig holds verification artifact settings
type OutputConfig struct {
	ScreenshotPath string `yaml:"screenshot_path"`
}

// StorageConfig holds run history persistence settings
type StorageConfig struct {
	HistoryEnabled bool   `yaml:"history_enabled"`
	DatabasePath   string `yaml:"database_path"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputFile string `yaml:"output_file"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			BaseDir:   "",
			PagePath:  "src/taskpane/taskpane.html",
			ElementID: "baseUrlInput",
			FillValue: "https://api.gptbots.ai/v1",
		},
		Browser: BrowserConfig{
			Headless:       true,
			SlowMotion:     0,
			Timeout:        30,
			ViewportWidth:  1366,
			ViewportHeight: 768,
		},
		Output: OutputConfig{
			ScreenshotPath: "verification/taskpane_screenshot.png",
		},
		Storage: StorageConfig{
			HistoryEnabled: true,
			DatabasePath:   "./data/verify_history.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			OutputFile: "",
		},
	}
}

// LoadConfig loads configuration from a YAML file and applies environment variable overrides
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	// Try to load from file if it exists
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, use defaults
		} else {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Apply environment variable overrides
	config.applyEnvOverrides()

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func (c *Config) applyEnvOverrides() {
	// Target settings
	if baseDir := os.Getenv("TASKPANE_BASE_DIR"); baseDir != "" {
		c.Target.BaseDir = baseDir
	}
	if pagePath := os.Getenv("TASKPANE_PAGE_PATH"); pagePath != "" {
		c.Target.PagePath = pagePath
	}
	if elementID := os.Getenv("TASKPANE_ELEMENT_ID"); elementID != "" {
		c.Target.ElementID = elementID
	}
	if fillValue := os.Getenv("TASKPANE_FILL_VALUE"); fillValue != "" {
		c.Target.FillValue = fillValue
	}

	// Browser settings
	if headless := os.Getenv("BROWSER_HEADLESS"); headless != "" {
		c.Browser.Headless = headless == "true" || headless == "1"
	}

	// Output
	if screenshot := os.Getenv("SCREENSHOT_PATH"); screenshot != "" {
		c.Output.ScreenshotPath = screenshot
	}

	// Logging
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	// Storage
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		c.Storage.DatabasePath = dbPath
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Target.PagePath == "" {
		return fmt.Errorf("target page_path is required")
	}
	if c.Target.ElementID == "" {
		return fmt.Errorf("target element_id is required")
	}
	if c.Output.ScreenshotPath == "" {
		return fmt.Errorf("output screenshot_path is required")
	}

	if c.Browser.Timeout <= 0 {
		return fmt.Errorf("timeout_seconds must be positive")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("viewport dimensions must be positive")
	}

	if c.Storage.HistoryEnabled && c.Storage.DatabasePath == "" {
		return fmt.Errorf("database_path is required when history is enabled")
	}

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// GetTimeout returns the configured timeout as a time.Duration
func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.Browser.Timeout) * time.Second
}

// SaveConfig saves the current configuration to a YAML file
func (c *Config) SaveConfig(configPath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
