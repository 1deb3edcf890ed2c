package main

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"regula-hq/regula/pkg/config"
	"regula-hq/regula/pkg/history"
	"regula-hq/regula/pkg/service"
	"regula-hq/regula/pkg/store"
	"regula-hq/regula/pkg/telemetry/logging"
	"regula-hq/regula/pkg/telemetry/metrics"
)

// loadConfig loads the configuration file with environment overrides,
// falling back to defaults when no file exists at the default path.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		// A missing file is only an error when the user asked for it
		// explicitly.
		if cfgFile == "config.yaml" && !rootCmd.PersistentFlags().Changed("config") {
			return config.Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from configuration, honoring the
// --verbose flag.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.Telemetry.Logging.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:     level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// newStore builds the catalog store selected by configuration.
func newStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Catalog.Backend {
	case "file":
		return store.NewFileStore(cfg.Catalog.Path), nil
	case "sqlite":
		return store.NewSQLiteStore(&store.SQLiteConfig{
			Path:         cfg.Catalog.SQLite.Path,
			MaxOpenConns: cfg.Catalog.SQLite.MaxOpenConns,
			BusyTimeout:  cfg.Catalog.SQLite.BusyTimeout,
		})
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", cfg.Catalog.Backend)
	}
}

// engine bundles a wired service with the resources it owns.
type engine struct {
	service  *service.Service
	registry *prometheus.Registry
	recorder *history.Recorder
}

// newEngine wires store, metrics and history into a service per the
// configuration. Close must be called when done.
func newEngine(cfg *config.Config, logger *slog.Logger) (*engine, error) {
	st, err := newStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	opts := service.Options{Logger: logger}
	eng := &engine{}

	if cfg.Telemetry.Metrics.Enabled {
		eng.registry = prometheus.NewRegistry()
		opts.Metrics = metrics.NewEngineMetrics(metrics.Config{
			Namespace: cfg.Telemetry.Metrics.Namespace,
		}, eng.registry)
	}

	if cfg.History.Enabled {
		var backend history.Backend
		switch cfg.History.Backend {
		case "sqlite":
			backend, err = history.NewSQLiteBackend(cfg.History.SQLitePath)
			if err != nil {
				return nil, fmt.Errorf("failed to open history database: %w", err)
			}
		case "memory":
			backend = history.NewMemoryBackend()
		default:
			return nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
		}
		eng.recorder = history.NewRecorder(backend, logger)
		opts.Recorder = eng.recorder
	}

	eng.service = service.New(st, opts)
	return eng, nil
}

// Close releases engine resources.
func (e *engine) Close() error {
	e.service.StopSchedule()
	if e.recorder != nil {
		return e.recorder.Close()
	}
	return nil
}
