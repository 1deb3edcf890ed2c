package config

import "time"

// Default values applied when the configuration file omits a field.
const (
	DefaultCatalogBackend   = "file"
	DefaultCatalogPath      = "rules/"
	DefaultSQLiteMaxConns   = 4
	DefaultSQLiteBusyWait   = 5 * time.Second
	DefaultDebounceInterval = 250 * time.Millisecond
	DefaultHistoryBackend   = "sqlite"
	DefaultHistoryPath      = "regula-history.db"
	DefaultPruneSchedule    = "0 3 * * *"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsNamespace = "regula"
	DefaultMetricsListen    = ":9090"
)

// ApplyDefaults fills in default values for any unset configuration fields.
// It modifies the configuration in place.
func ApplyDefaults(cfg *Config) {
	if cfg.Catalog.Backend == "" {
		cfg.Catalog.Backend = DefaultCatalogBackend
	}
	if cfg.Catalog.Backend == "file" && cfg.Catalog.Path == "" {
		cfg.Catalog.Path = DefaultCatalogPath
	}
	if cfg.Catalog.SQLite.MaxOpenConns <= 0 {
		cfg.Catalog.SQLite.MaxOpenConns = DefaultSQLiteMaxConns
	}
	if cfg.Catalog.SQLite.BusyTimeout <= 0 {
		cfg.Catalog.SQLite.BusyTimeout = DefaultSQLiteBusyWait
	}

	if cfg.Rebuild.DebounceInterval <= 0 {
		cfg.Rebuild.DebounceInterval = DefaultDebounceInterval
	}

	if cfg.History.Backend == "" {
		cfg.History.Backend = DefaultHistoryBackend
	}
	if cfg.History.Backend == "sqlite" && cfg.History.SQLitePath == "" {
		cfg.History.SQLitePath = DefaultHistoryPath
	}
	if cfg.History.PruneSchedule == "" {
		cfg.History.PruneSchedule = DefaultPruneSchedule
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListen
	}
}
