package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"regula-hq/regula/pkg/store"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Regula rule engine",
	Long: `Start the rule engine with the specified configuration.

The engine loads the rule catalog, publishes the initial snapshot, and
keeps it current through file watching and scheduled rebuilds.

Examples:
  # Start with default config
  regula run

  # Start with custom config
  regula run --config /etc/regula/config.yaml

  # Validate config without starting
  regula run --dry-run`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the engine")
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, err := eng.service.Rebuild(ctx); err != nil {
		return fmt.Errorf("initial rebuild failed: %w", err)
	}

	retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
	if err := eng.service.StartSchedule(cfg.Rebuild.Schedule, cfg.History.PruneSchedule, retention); err != nil {
		return err
	}

	if cfg.Telemetry.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Telemetry.Metrics.ListenAddress, eng)
	}

	if cfg.Rebuild.Watch {
		watcher, err := store.NewWatcher(&store.WatcherConfig{
			Path:             cfg.Catalog.Path,
			DebounceInterval: cfg.Rebuild.DebounceInterval,
			Extensions:       []string{".yaml", ".yml"},
		}, logger)
		if err != nil {
			return err
		}
		return eng.service.Watch(ctx, watcher)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	return nil
}

// serveMetrics exposes the Prometheus registry over HTTP until the context
// is cancelled.
func serveMetrics(ctx context.Context, addr string, eng *engine) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(eng.registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
	_ = server.ListenAndServe()
}
