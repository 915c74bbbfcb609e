// Package browser provides the Rod-backed implementation of the check
// Driver interface. It handles browser launch, page setup, navigation,
// element lookup, and screenshot capture.
package browser

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/gptbots/taskpane-verify/check"
	"github.com/gptbots/taskpane-verify/config"
	"github.com/gptbots/taskpane-verify/logger"
)

// Browser wraps the Rod browser and implements check.Driver
type Browser struct {
	config  *config.Config
	logger  *logger.Logger
	browser *rod.Browser
	page    *rod.Page
}

// NewBrowser creates a new browser instance
func NewBrowser(cfg *config.Config, log *logger.Logger) *Browser {
	return &Browser{
		config: cfg,
		logger: log.WithModule("browser"),
	}
}

// Launch starts the browser and opens a blank page. Launch or connect
// failures are wrapped in check.ErrEnvironment.
func (b *Browser) Launch() error {
	b.logger.Info("Launching browser")

	l := launcher.New().
		Headless(b.config.Browser.Headless).
		Set("disable-dev-shm-usage").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-background-networking").
		Set("disable-sync").
		Set("disable-extensions").
		Set("metrics-recording-only")

	l = l.Set("window-size", fmt.Sprintf("%d,%d",
		b.config.Browser.ViewportWidth, b.config.Browser.ViewportHeight))

	url, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", check.ErrEnvironment, err)
	}

	b.browser = rod.New().
		ControlURL(url).
		Timeout(b.config.GetTimeout())

	if b.config.Browser.SlowMotion > 0 {
		b.browser = b.browser.SlowMotion(time.Duration(b.config.Browser.SlowMotion) * time.Millisecond)
	}

	if err := b.browser.Connect(); err != nil {
		return fmt.Errorf("%w: %v", check.ErrEnvironment, err)
	}

	b.logger.Info("Browser launched successfully")

	return b.createPage()
}

// createPage creates the page the check runs against
func (b *Browser) createPage() error {
	var err error
	b.page, err = b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fmt.Errorf("%w: failed to create page: %v", check.ErrEnvironment, err)
	}

	err = b.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             b.config.Browser.ViewportWidth,
		Height:            b.config.Browser.ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	})
	if err != nil {
		b.logger.WithError(err).Warn("Failed to set viewport")
	}

	return nil
}

// Navigate loads the given URL and waits for the page to finish loading
func (b *Browser) Navigate(url string) error {
	if err := b.page.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	if err := b.page.WaitLoad(); err != nil {
		return fmt.Errorf("page load failed: %w", err)
	}

	return nil
}

// Element looks up an element by its id attribute, bounded by the
// configured timeout
func (b *Browser) Element(id string) (check.Element, error) {
	el, err := b.page.Timeout(b.config.GetTimeout()).Element("#" + id)
	if err != nil {
		return nil, fmt.Errorf("element #%s not found: %w", id, err)
	}
	return &element{el: el}, nil
}

// Screenshot captures a full-page screenshot and writes it to filename,
// creating the parent directory and overwriting any previous file
func (b *Browser) Screenshot(filename string) error {
	data, err := b.page.Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("screenshot failed: %w", err)
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save screenshot: %w", err)
	}

	return nil
}

// Close shuts down the page and the browser. Safe to call when launch
// never completed.
func (b *Browser) Close() error {
	b.logger.Info("Closing browser")

	if b.page != nil {
		if err := b.page.Close(); err != nil {
			b.logger.WithError(err).Warn("Failed to close page")
		}
		b.page = nil
	}

	if b.browser != nil {
		err := b.browser.Close()
		b.browser = nil
		return err
	}

	return nil
}

// element adapts a rod element to check.Element
type element struct {
	el *rod.Element
}

// Visible reports whether the element is rendered and not hidden by styling
func (e *element) Visible() (bool, error) {
	return e.el.Visible()
}

// SetValue replaces the element's current content with text
func (e *element) SetValue(text string) error {
	if err := e.el.SelectAllText(); err != nil {
		return fmt.Errorf("failed to select existing text: %w", err)
	}
	if err := e.el.Input(text); err != nil {
		return fmt.Errorf("failed to input text: %w", err)
	}
	return nil
}
