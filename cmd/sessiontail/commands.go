package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/wilbur182/sessiontail/internal/metrics"
)

var metricsAddr string

func init() {
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
	rootCmd.AddCommand(watchCmd, readCmd, allCmd, sinceCmd, versionCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print new journal lines as they are written",
	RunE: func(cmd *cobra.Command, args []string) error {
		m := metrics.New()
		mon, cfg, err := openMonitor(m)
		if err != nil {
			return err
		}
		defer mon.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := cfg.Metrics.Addr
		if metricsAddr != "" {
			addr = metricsAddr
		}
		if addr != "" {
			srv := serveMetrics(addr, m)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		p := newPrinter()
		if err := mon.Watch(p.lines); err != nil {
			return err
		}
		slog.Info("watching", "dir", mon.Dir())

		<-ctx.Done()
		return mon.Stop()
	},
}

func serveMetrics(addr string, m *metrics.Metrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "addr", addr, "err", err)
		}
	}()
	slog.Info("serving metrics", "addr", addr)
	return srv
}

var readCmd = &cobra.Command{
	Use:   "read <file>",
	Short: "Print the lines of one journal file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mon, _, err := openMonitor(nil)
		if err != nil {
			return err
		}
		defer mon.Close()

		path := args[0]
		if !filepath.IsAbs(path) && !strings.ContainsRune(path, filepath.Separator) {
			path = filepath.Join(mon.Dir(), path)
		}
		b, err := mon.Read(path)
		if err != nil {
			return err
		}
		newPrinter().lines(b.Session, b.Lines)
		return nil
	},
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Print every journal and override line grouped by session",
	RunE: func(cmd *cobra.Command, args []string) error {
		mon, _, err := openMonitor(nil)
		if err != nil {
			return err
		}
		defer mon.Close()

		c, err := mon.All()
		if err != nil {
			return err
		}
		newPrinter().collection(c)
		return nil
	},
}

var sinceCmd = &cobra.Command{
	Use:   "since <duration|RFC3339>",
	Short: "Print lines from journals written recently",
	Long: `Print lines from the journal files written after the given time. The time
is either an RFC3339 timestamp or a duration counted back from now (e.g. 2h).
The most recently written journal is always included.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := parseSince(args[0], time.Now())
		if err != nil {
			return err
		}
		mon, _, err := openMonitor(nil)
		if err != nil {
			return err
		}
		defer mon.Close()

		c, err := mon.Since(t)
		if err != nil {
			return err
		}
		newPrinter().collection(c)
		return nil
	},
}

// parseSince accepts an RFC3339 time or a duration before now.
func parseSince(s string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339 or duration", s)
	}
	if d < 0 {
		d = -d
	}
	return now.Add(-d), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sessiontail version %s\n", effectiveVersion(Version))
	},
}
