package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/wilbur182/sessiontail/internal/config"
	"github.com/wilbur182/sessiontail/internal/metrics"
	"github.com/wilbur182/sessiontail/internal/monitor"
)

var (
	configPath   string
	debugLogging bool
	journalDir   string
	overridesDir string
)

var rootCmd = &cobra.Command{
	Use:   "sessiontail",
	Short: "Tail rotating journal files and group new lines by session",
	Long: `sessiontail follows a directory of rotating journal files, attributes
each file to the session named in its LoadGame record, skips files written by
the beta channel and merges hand-written override files into the result.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ~/.config/sessiontail/config.json)")
	pf.BoolVar(&debugLogging, "debug", false, "enable debug logging")
	pf.StringVar(&journalDir, "journal-dir", "", "journal directory (overrides config)")
	pf.StringVar(&overridesDir, "overrides-dir", "", "override file directory (overrides config)")
}

func newLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if debugLogging {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if journalDir != "" {
		cfg.Journal.Dir = journalDir
	}
	if overridesDir != "" {
		cfg.Overrides.Dir = overridesDir
	}
	return cfg, nil
}

// openMonitor loads the config and builds a Monitor. m may be nil.
func openMonitor(m *metrics.Metrics) (*monitor.Monitor, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger()
	slog.SetDefault(logger)

	mon, err := monitor.New(cfg, monitor.WithLogger(logger), monitor.WithMetrics(m))
	if err != nil {
		return nil, nil, err
	}
	return mon, cfg, nil
}
