package config

import "time"

// Config is the root configuration for the Regula rule engine.
type Config struct {
	// Catalog configures where rule definitions are loaded from.
	Catalog CatalogConfig `yaml:"catalog"`

	// Rebuild configures automatic snapshot rebuilds.
	Rebuild RebuildConfig `yaml:"rebuild"`

	// History configures evaluation history recording.
	History HistoryConfig `yaml:"history"`

	// Telemetry configures logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// CatalogConfig describes the rule catalog source.
type CatalogConfig struct {
	// Backend selects the storage backend: "file", "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// Path is the rule file or directory for the file backend.
	Path string `yaml:"path"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig configures a SQLite-backed rule catalog.
type SQLiteConfig struct {
	// Path is the database file.
	Path string `yaml:"path"`

	// MaxOpenConns bounds the connection pool.
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is the SQLite busy timeout.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RebuildConfig controls when snapshots are rebuilt.
type RebuildConfig struct {
	// Watch enables filesystem watching for the file backend. Changes to
	// rule files trigger a debounced rebuild.
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period after the last file event
	// before a rebuild fires.
	DebounceInterval time.Duration `yaml:"debounce_interval"`

	// Schedule is an optional cron expression for periodic rebuilds
	// (e.g. "0 * * * *" for hourly). Empty disables scheduling.
	Schedule string `yaml:"schedule"`
}

// HistoryConfig controls evaluation history recording.
type HistoryConfig struct {
	// Enabled turns history recording on.
	Enabled bool `yaml:"enabled"`

	// Backend selects the history store: "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// SQLitePath is the database file for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	// RetentionDays is how long records are kept before pruning.
	// Zero disables pruning.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for the retention pruner.
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text").
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus namespace prefix.
	Namespace string `yaml:"namespace"`

	// ListenAddress is where the /metrics endpoint is served.
	ListenAddress string `yaml:"listen_address"`
}
