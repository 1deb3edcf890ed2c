package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"regula-hq/regula/pkg/catalog"
)

// sqliteSchema holds the rule catalog tables. The store only ever reads from
// them; authoring tools own the writes.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS data_elements (
    id     TEXT PRIMARY KEY,
    name   TEXT NOT NULL,
    domain TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS rules (
    id               TEXT PRIMARY KEY,
    title            TEXT NOT NULL,
    description      TEXT NOT NULL DEFAULT '',
    category         TEXT NOT NULL,
    obligation       TEXT NOT NULL,
    status           TEXT NOT NULL,
    effective_from   TEXT NOT NULL DEFAULT '',
    effective_to     TEXT NOT NULL DEFAULT '',
    source_reference TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS rule_elements (
    rule_id    TEXT NOT NULL,
    element_id TEXT NOT NULL,
    required   INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (rule_id, element_id)
);

CREATE TABLE IF NOT EXISTS edges (
    source TEXT NOT NULL,
    target TEXT NOT NULL,
    kind   TEXT NOT NULL,
    PRIMARY KEY (source, target, kind)
);
`

// SQLiteConfig contains configuration for the SQLite catalog store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite store configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/rules.db",
		MaxOpenConns: 4,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore reads the rule catalog from a SQLite database. Evaluators are
// derived from rule_elements rows flagged required: all such elements must
// be asserted true in a scenario.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the catalog database, creating the schema when absent.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "store.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, &LoadError{Source: config.Path, Message: "failed to open database", Cause: err}
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &SQLiteStore{db: db, config: config, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite catalog store opened",
		"path", config.Path,
		"max_open_conns", config.MaxOpenConns,
	)
	return s, nil
}

// initialize applies pragmas and ensures the schema exists.
func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return &LoadError{Source: s.config.Path, Message: "failed to enable WAL mode", Cause: err}
	}
	// PRAGMA values cannot be bound parameters.
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return &LoadError{Source: s.config.Path, Message: "failed to set busy timeout", Cause: err}
	}
	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return &LoadError{Source: s.config.Path, Message: "failed to create schema", Cause: err}
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// FetchRules implements Store.
func (s *SQLiteStore) FetchRules(ctx context.Context) ([]catalog.RuleRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, category, obligation, status,
		       effective_from, effective_to, source_reference
		FROM rules ORDER BY id`)
	if err != nil {
		return nil, &LoadError{Source: s.config.Path, Message: "failed to query rules", Cause: err}
	}
	defer rows.Close()

	var records []catalog.RuleRecord
	for rows.Next() {
		var rec catalog.RuleRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.Category,
			&rec.Obligation, &rec.Status, &rec.EffectiveFrom, &rec.EffectiveTo,
			&rec.SourceReference); err != nil {
			return nil, &LoadError{Source: s.config.Path, Message: "failed to scan rule row", Cause: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{Source: s.config.Path, Message: "rule row iteration failed", Cause: err}
	}

	// Attach affected elements.
	elems, err := s.fetchRuleElements(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range records {
		records[i].AffectedElements = elems[records[i].ID]
	}
	return records, nil
}

// FetchElements implements Store.
func (s *SQLiteStore) FetchElements(ctx context.Context) ([]catalog.DataElementRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, domain FROM data_elements ORDER BY id`)
	if err != nil {
		return nil, &LoadError{Source: s.config.Path, Message: "failed to query data elements", Cause: err}
	}
	defer rows.Close()

	var records []catalog.DataElementRecord
	for rows.Next() {
		var rec catalog.DataElementRecord
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Domain); err != nil {
			return nil, &LoadError{Source: s.config.Path, Message: "failed to scan element row", Cause: err}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FetchEdges implements Store.
func (s *SQLiteStore) FetchEdges(ctx context.Context) ([]catalog.EdgeRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT source, target, kind FROM edges ORDER BY source, target, kind`)
	if err != nil {
		return nil, &LoadError{Source: s.config.Path, Message: "failed to query edges", Cause: err}
	}
	defer rows.Close()

	var records []catalog.EdgeRecord
	for rows.Next() {
		var rec catalog.EdgeRecord
		if err := rows.Scan(&rec.Source, &rec.Target, &rec.Kind); err != nil {
			return nil, &LoadError{Source: s.config.Path, Message: "failed to scan edge row", Cause: err}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// FetchEvaluators implements Store.
func (s *SQLiteStore) FetchEvaluators(ctx context.Context) (map[string]catalog.ConditionFunc, error) {
	required, err := s.fetchRuleElements(ctx, true)
	if err != nil {
		return nil, err
	}

	evals := make(map[string]catalog.ConditionFunc, len(required))
	for ruleID, elements := range required {
		elements := elements
		evals[ruleID] = func(sc catalog.Scenario) bool {
			for _, el := range elements {
				if !sc.Asserted(el) {
					return false
				}
			}
			return true
		}
	}
	return evals, nil
}

// fetchRuleElements returns element ids per rule, optionally only rows
// flagged required.
func (s *SQLiteStore) fetchRuleElements(ctx context.Context, requiredOnly bool) (map[string][]string, error) {
	query := `SELECT rule_id, element_id FROM rule_elements`
	if requiredOnly {
		query += ` WHERE required = 1`
	}
	query += ` ORDER BY rule_id, element_id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &LoadError{Source: s.config.Path, Message: "failed to query rule elements", Cause: err}
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var ruleID, elementID string
		if err := rows.Scan(&ruleID, &elementID); err != nil {
			return nil, &LoadError{Source: s.config.Path, Message: "failed to scan rule element row", Cause: err}
		}
		out[ruleID] = append(out[ruleID], elementID)
	}
	return out, rows.Err()
}
