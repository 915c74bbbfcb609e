// Package check implements the taskpane visibility check. It drives a
// browser through a narrow Driver interface: navigate to the local
// taskpane page, test one element for visibility, fill it when visible,
// and capture a screenshot either way.
package check

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gptbots/taskpane-verify/config"
	"github.com/gptbots/taskpane-verify/logger"
)

// Sentinel errors for the fatal failure modes. Both abort the run and
// surface as a non-zero exit code; a hidden or missing element does not.
var (
	// ErrEnvironment indicates the browser runtime could not be
	// launched or connected to.
	ErrEnvironment = errors.New("browser environment unavailable")

	// ErrNavigation indicates the target page could not be loaded.
	ErrNavigation = errors.New("navigation failed")
)

// Run status values recorded in the report and the history database.
const (
	StatusVisible    = "visible"
	StatusNotVisible = "not_visible"
	StatusFailed     = "failed"
)

// Element is a handle to a located DOM element
type Element interface {
	Visible() (bool, error)
	SetValue(text string) error
}

// Driver is the browser capability the checker needs. The browser
// package implements it over Rod; tests substitute a fake.
type Driver interface {
	Navigate(url string) error
	Element(id string) (Element, error)
	Screenshot(path string) error
	Close() error
}

// Recorder persists completed run reports
type Recorder interface {
	RecordRun(report *Report) error
}

// Report describes the outcome of one check run
type Report struct {
	RunID          string        `json:"run_id"`
	TargetURL      string        `json:"target_url"`
	ElementID      string        `json:"element_id"`
	Visible        bool          `json:"visible"`
	Filled         bool          `json:"filled"`
	ScreenshotPath string        `json:"screenshot_path"`
	Status         string        `json:"status"`
	Error          string        `json:"error,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
}

// Checker runs the visibility check against a Driver
type Checker struct {
	config   *config.Config
	logger   *logger.Logger
	driver   Driver
	recorder Recorder
}

// NewChecker creates a checker. The recorder may be nil, in which case
// the run is not persisted.
func NewChecker(cfg *config.Config, log *logger.Logger, driver Driver, recorder Recorder) *Checker {
	return &Checker{
		config:   cfg,
		logger:   log.WithModule("check"),
		driver:   driver,
		recorder: recorder,
	}
}

// FileURL builds a file:// URL for relPath resolved against baseDir.
// An empty baseDir means the process working directory.
func FileURL(baseDir, relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("page path is empty")
	}

	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		baseDir = wd
	}

	abs, err := filepath.Abs(filepath.Join(baseDir, relPath))
	if err != nil {
		return "", fmt.Errorf("failed to resolve page path: %w", err)
	}

	return "file://" + filepath.ToSlash(abs), nil
}

// Run executes one check end to end. The driver is closed on every exit
// path. The returned report is always non-nil; err is non-nil only for
// the fatal conditions (environment, navigation, screenshot write).
func (c *Checker) Run() (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		ElementID: c.config.Target.ElementID,
		StartedAt: time.Now(),
	}

	defer func() {
		if err := c.driver.Close(); err != nil {
			c.logger.WithError(err).Warn("Failed to close browser")
		}
	}()

	err := c.run(report)
	report.Duration = time.Since(report.StartedAt)

	if err != nil {
		report.Status = StatusFailed
		report.Error = err.Error()
		c.logger.WithError(err).Error("Check failed")
	}

	c.record(report)

	return report, err
}

// run performs the check steps; Run handles cleanup and recording
func (c *Checker) run(report *Report) error {
	url, err := FileURL(c.config.Target.BaseDir, c.config.Target.PagePath)
	if err != nil {
		return err
	}
	report.TargetURL = url

	c.logger.BrowserAction("navigate", url)
	if err := c.driver.Navigate(url); err != nil {
		return fmt.Errorf("%w: %v", ErrNavigation, err)
	}

	el, visible := c.locate()
	report.Visible = visible
	c.logger.CheckResult(c.config.Target.ElementID, visible)

	if visible {
		report.Status = StatusVisible
		report.Filled = c.fill(el)
	} else {
		report.Status = StatusNotVisible
	}

	if err := c.driver.Screenshot(c.config.Output.ScreenshotPath); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}
	report.ScreenshotPath = c.config.Output.ScreenshotPath
	c.logger.ScreenshotSaved(c.config.Output.ScreenshotPath)

	return nil
}

// locate finds the target element and reports whether it is rendered.
// Absence and lookup failures are not errors; the element simply is not
// visible.
func (c *Checker) locate() (Element, bool) {
	el, err := c.driver.Element(c.config.Target.ElementID)
	if err != nil {
		c.logger.WithError(err).Debug("Element lookup failed")
		return nil, false
	}

	visible, err := el.Visible()
	if err != nil {
		c.logger.WithError(err).Debug("Visibility query failed")
		return nil, false
	}

	return el, visible
}

// fill sets the sample value on the located element. A fill failure is
// reported but does not abort the run; the screenshot still documents
// the page state.
func (c *Checker) fill(el Element) bool {
	if err := el.SetValue(c.config.Target.FillValue); err != nil {
		c.logger.WithError(err).Warn("Failed to fill element")
		return false
	}

	c.logger.WithFields(map[string]interface{}{
		"element_id": c.config.Target.ElementID,
		"value":      c.config.Target.FillValue,
	}).Info("Element filled")
	return true
}

// record persists the report when a recorder is configured. History
// write failures are logged, never fatal.
func (c *Checker) record(report *Report) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.RecordRun(report); err != nil {
		c.logger.WithError(err).Warn("Failed to record run history")
	}
}
