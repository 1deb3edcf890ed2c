package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid or inconsistent values.
// It should be called after ApplyDefaults.
func Validate(cfg *Config) error {
	switch cfg.Catalog.Backend {
	case "file":
		if cfg.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for the file backend")
		}
	case "sqlite":
		if cfg.Catalog.SQLite.Path == "" {
			return fmt.Errorf("catalog.sqlite.path is required for the sqlite backend")
		}
	case "memory":
		// No settings needed.
	default:
		return fmt.Errorf("catalog.backend must be \"file\", \"sqlite\" or \"memory\", got %q", cfg.Catalog.Backend)
	}

	if cfg.Rebuild.Watch && cfg.Catalog.Backend != "file" {
		return fmt.Errorf("rebuild.watch requires the file catalog backend, got %q", cfg.Catalog.Backend)
	}
	if cfg.Rebuild.Schedule != "" {
		if err := validateCronExpr(cfg.Rebuild.Schedule); err != nil {
			return fmt.Errorf("invalid rebuild.schedule: %w", err)
		}
	}

	if cfg.History.Enabled {
		switch cfg.History.Backend {
		case "sqlite":
			if cfg.History.SQLitePath == "" {
				return fmt.Errorf("history.sqlite_path is required for the sqlite backend")
			}
		case "memory":
			// No settings needed.
		default:
			return fmt.Errorf("history.backend must be \"sqlite\" or \"memory\", got %q", cfg.History.Backend)
		}
		if cfg.History.RetentionDays < 0 {
			return fmt.Errorf("history.retention_days must not be negative, got %d", cfg.History.RetentionDays)
		}
		if cfg.History.RetentionDays > 0 {
			if err := validateCronExpr(cfg.History.PruneSchedule); err != nil {
				return fmt.Errorf("invalid history.prune_schedule: %w", err)
			}
		}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be one of debug, info, warn, error, got %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be \"json\" or \"text\", got %q", cfg.Telemetry.Logging.Format)
	}

	return nil
}

func validateCronExpr(expr string) error {
	_, err := cron.ParseStandard(expr)
	return err
}
