// Package config - Tests for configuration management
package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg == nil {
		t.Fatal("DefaultConfig should not return nil")
	}

	// Check default values
	if cfg.Target.PagePath != "src/taskpane/taskpane.html" {
		t.Errorf("Unexpected default page path: %s", cfg.Target.PagePath)
	}

	if cfg.Target.ElementID != "baseUrlInput" {
		t.Errorf("Unexpected default element id: %s", cfg.Target.ElementID)
	}

	if cfg.Target.FillValue != "https://api.gptbots.ai/v1" {
		t.Errorf("Unexpected default fill value: %s", cfg.Target.FillValue)
	}

	if cfg.Output.ScreenshotPath != "verification/taskpane_screenshot.png" {
		t.Errorf("Unexpected default screenshot path: %s", cfg.Output.ScreenshotPath)
	}

	if !cfg.Browser.Headless {
		t.Error("Browser should be headless by default")
	}

	if cfg.Browser.Timeout != 30 {
		t.Errorf("Expected default timeout of 30, got %d", cfg.Browser.Timeout)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()

	// Defaults should validate
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}

	// Test missing page path
	cfg.Target.PagePath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail without a page path")
	}
	cfg.Target.PagePath = "src/taskpane/taskpane.html" // Reset

	// Test missing element id
	cfg.Target.ElementID = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail without an element id")
	}
	cfg.Target.ElementID = "baseUrlInput" // Reset

	// Test invalid timeout
	cfg.Browser.Timeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail with a non-positive timeout")
	}
	cfg.Browser.Timeout = 30 // Reset

	// Test missing database path with history enabled
	cfg.Storage.DatabasePath = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail when history is enabled without a database path")
	}
	cfg.Storage.HistoryEnabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validation should pass with history disabled: %v", err)
	}
	cfg.Storage.HistoryEnabled = true
	cfg.Storage.DatabasePath = "./data/verify_history.db" // Reset

	// Test invalid log level
	cfg.Logging.Level = "invalid"
	if err := cfg.Validate(); err == nil {
		t.Error("Validation should fail with invalid log level")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TASKPANE_BASE_DIR", "/srv/addin")
	t.Setenv("TASKPANE_ELEMENT_ID", "apiKeyInput")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("SCREENSHOT_PATH", "out/shot.png")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.Target.BaseDir != "/srv/addin" {
		t.Errorf("Expected base dir override, got %s", cfg.Target.BaseDir)
	}
	if cfg.Target.ElementID != "apiKeyInput" {
		t.Errorf("Expected element id override, got %s", cfg.Target.ElementID)
	}
	if cfg.Browser.Headless {
		t.Error("BROWSER_HEADLESS=false should disable headless mode")
	}
	if cfg.Output.ScreenshotPath != "out/shot.png" {
		t.Errorf("Expected screenshot path override, got %s", cfg.Output.ScreenshotPath)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level override, got %s", cfg.Logging.Level)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	configYAML := `
target:
  base_dir: /opt/project
  page_path: pane/index.html
browser:
  headless: true
  timeout_seconds: 10
output:
  screenshot_path: shots/pane.png
`

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig should not fail: %v", err)
	}

	if cfg.Target.BaseDir != "/opt/project" {
		t.Errorf("Expected base dir from file, got %s", cfg.Target.BaseDir)
	}
	if cfg.Target.PagePath != "pane/index.html" {
		t.Errorf("Expected page path from file, got %s", cfg.Target.PagePath)
	}
	if cfg.Browser.Timeout != 10 {
		t.Errorf("Expected timeout from file, got %d", cfg.Browser.Timeout)
	}

	// Values not in the file keep their defaults
	if cfg.Target.ElementID != "baseUrlInput" {
		t.Errorf("Expected default element id, got %s", cfg.Target.ElementID)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("A missing config file should fall back to defaults: %v", err)
	}

	if cfg.Target.PagePath != "src/taskpane/taskpane.html" {
		t.Errorf("Expected defaults for a missing file, got %s", cfg.Target.PagePath)
	}
}
