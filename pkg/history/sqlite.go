package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend implements Backend using SQLite for persistence. It is
// suitable for single-instance deployments where evaluation history must
// survive restarts.
//
// The backend uses a write-ahead log for concurrent read performance while
// serializing writes through a single connection.
type SQLiteBackend struct {
	db        *sql.DB
	mu        sync.RWMutex
	closeOnce sync.Once

	saveStmt  *sql.Stmt
	listStmt  *sql.Stmt
	pruneStmt *sql.Stmt
}

// SQLiteBackendConfig configures the SQLite history backend.
type SQLiteBackendConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteBackend creates a SQLite history backend with default settings.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{
		DBPath:      dbPath,
		BusyTimeout: 5 * time.Second,
	})
}

// NewSQLiteBackendWithConfig creates a SQLite history backend with custom
// configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{db: db}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return backend, nil
}

func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS evaluation_records (
		id TEXT PRIMARY KEY,
		evaluation_id TEXT NOT NULL,
		snapshot_version INTEGER NOT NULL,
		rule_id TEXT NOT NULL,
		applicable INTEGER NOT NULL,
		justification TEXT NOT NULL,
		conflicts TEXT NOT NULL DEFAULT '',
		reference_date INTEGER NOT NULL,
		recorded_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_rule ON evaluation_records(rule_id, recorded_at);
	CREATE INDEX IF NOT EXISTS idx_records_recorded_at ON evaluation_records(recorded_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO evaluation_records
			(id, evaluation_id, snapshot_version, rule_id, applicable, justification, conflicts, reference_date, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT id, evaluation_id, snapshot_version, rule_id, applicable, justification, conflicts, reference_date, recorded_at
		FROM evaluation_records
		WHERE rule_id = ?
		ORDER BY recorded_at DESC
		LIMIT ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	s.pruneStmt, err = s.db.Prepare(`
		DELETE FROM evaluation_records
		WHERE recorded_at < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare prune statement: %w", err)
	}

	return nil
}

// Save persists a batch of records in a single transaction.
func (s *SQLiteBackend) Save(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.StmtContext(ctx, s.saveStmt)
	for _, rec := range records {
		applicable := 0
		if rec.Applicable {
			applicable = 1
		}
		_, err := stmt.ExecContext(ctx,
			rec.ID,
			rec.EvaluationID,
			int64(rec.SnapshotVersion),
			rec.RuleID,
			applicable,
			rec.Justification,
			joinConflicts(rec.UnresolvedConflictWith),
			rec.ReferenceDate.Unix(),
			rec.RecordedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to save record %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit records: %w", err)
	}
	return nil
}

// List returns records for a rule, most recent first.
func (s *SQLiteBackend) List(ctx context.Context, ruleID string, limit int) ([]*Record, error) {
	if ruleID == "" {
		return nil, fmt.Errorf("rule id cannot be empty")
	}
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			rec           Record
			applicable    int
			version       int64
			conflicts     string
			referenceDate int64
			recordedAt    int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.EvaluationID,
			&version,
			&rec.RuleID,
			&applicable,
			&rec.Justification,
			&conflicts,
			&referenceDate,
			&recordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.SnapshotVersion = uint64(version)
		rec.Applicable = applicable != 0
		rec.UnresolvedConflictWith = splitConflicts(conflicts)
		rec.ReferenceDate = time.Unix(referenceDate, 0).UTC()
		rec.RecordedAt = time.Unix(recordedAt, 0).UTC()
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// Prune removes records recorded before the cutoff.
func (s *SQLiteBackend) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.pruneStmt.ExecContext(ctx, olderThan.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune records: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(deleted), nil
}

// Close releases the database. Close is idempotent.
func (s *SQLiteBackend) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		if s.saveStmt != nil {
			s.saveStmt.Close()
		}
		if s.listStmt != nil {
			s.listStmt.Close()
		}
		if s.pruneStmt != nil {
			s.pruneStmt.Close()
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}
