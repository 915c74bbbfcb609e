// Taskpane Verifier - checks that the Office add-in task pane renders
// its Base URL input, fills it with a sample value, and captures a
// screenshot for review.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gptbots/taskpane-verify/browser"
	"github.com/gptbots/taskpane-verify/check"
	"github.com/gptbots/taskpane-verify/config"
	"github.com/gptbots/taskpane-verify/logger"
	"github.com/gptbots/taskpane-verify/storage"
	"github.com/joho/godotenv"
)

// Command line flags
var (
	configPath     = flag.String("config", "config.yaml", "Path to configuration file")
	baseDir        = flag.String("base-dir", "", "Directory the taskpane page is resolved against (default: working directory)")
	screenshotPath = flag.String("screenshot", "", "Screenshot output path (overrides config)")
	headed         = flag.Bool("headed", false, "Run the browser with a visible window")
	verbose        = flag.Bool("verbose", false, "Enable verbose logging")
	noHistory      = flag.Bool("no-history", false, "Skip recording the run in the history database")
	showHistory    = flag.Bool("history", false, "Print recent run history and exit")
	historyLimit   = flag.Int("history-limit", 10, "Number of history entries to print with -history")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		fmt.Println("Note: No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Apply flag overrides
	if *baseDir != "" {
		cfg.Target.BaseDir = *baseDir
	}
	if *screenshotPath != "" {
		cfg.Output.ScreenshotPath = *screenshotPath
	}
	if *headed {
		cfg.Browser.Headless = false
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if *noHistory {
		cfg.Storage.HistoryEnabled = false
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputFile: cfg.Logging.OutputFile,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Initialize run history storage
	var db *storage.Database
	if cfg.Storage.HistoryEnabled {
		db, err = storage.NewDatabase(cfg.Storage.DatabasePath, log)
		if err != nil {
			log.Errorf("Failed to initialize run history: %v", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	if *showHistory {
		if db == nil {
			log.Error("Run history is disabled")
			os.Exit(1)
		}
		if err := printHistory(db, *historyLimit); err != nil {
			log.Errorf("Failed to read run history: %v", err)
			os.Exit(1)
		}
		return
	}

	log.Info("Taskpane verification starting...")

	// Launch browser
	browserMgr := browser.NewBrowser(cfg, log)
	if err := browserMgr.Launch(); err != nil {
		log.Errorf("Failed to launch browser: %v", err)
		os.Exit(1)
	}

	// Close the browser on interrupt; the checker owns normal cleanup
	setupSignalHandler(browserMgr, log)

	// Run the check. The checker closes the browser on every exit path.
	var recorder check.Recorder
	if db != nil {
		recorder = db
	}
	checker := check.NewChecker(cfg, log, browserMgr, recorder)

	report, err := checker.Run()
	if err != nil {
		log.Errorf("Verification failed: %v", err)
		os.Exit(1)
	}

	if report.Visible {
		log.Infof("Base URL input is visible (filled: %t)", report.Filled)
	} else {
		log.Warn("Base URL input NOT visible")
	}
	log.Infof("Screenshot saved to %s", report.ScreenshotPath)
	log.Infof("Verification completed in %s", report.Duration.Round(time.Millisecond))
}

// printHistory prints recent runs and aggregate stats
func printHistory(db *storage.Database, limit int) error {
	runs, err := db.RecentRuns(limit)
	if err != nil {
		return err
	}

	stats, err := db.GetStats()
	if err != nil {
		return err
	}

	fmt.Printf("Run history (%d total, %d visible, %d failed):\n",
		stats.TotalRuns, stats.VisibleRuns, stats.FailedRuns)

	for _, r := range runs {
		line := fmt.Sprintf("  %s  %-11s  %s (%dms)",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Status, r.TargetURL, r.DurationMS)
		if r.Error != "" {
			line += " error: " + r.Error
		}
		fmt.Println(line)
	}

	return nil
}

// setupSignalHandler closes the browser when the run is interrupted
func setupSignalHandler(b *browser.Browser, log *logger.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Warn("Interrupted, closing browser...")
		if err := b.Close(); err != nil {
			log.WithError(err).Warn("Failed to close browser")
		}
		os.Exit(1)
	}()
}
