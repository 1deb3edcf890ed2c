package history

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"regula-hq/regula/pkg/catalog"
)

// Record is one rule outcome from a scenario evaluation.
type Record struct {
	// ID is a generated unique identifier for the record.
	ID string

	// EvaluationID groups records produced by the same evaluation call.
	EvaluationID string

	// SnapshotVersion is the snapshot the evaluation ran against.
	SnapshotVersion uint64

	// RuleID is the evaluated rule.
	RuleID string

	// Applicable reports whether the rule applied to the scenario.
	Applicable bool

	// Justification explains the outcome.
	Justification string

	// UnresolvedConflictWith lists conflicting rules without a
	// supersedes resolution, comma-joined when persisted.
	UnresolvedConflictWith []string

	// ReferenceDate is the scenario's reference date.
	ReferenceDate time.Time

	// RecordedAt is when the record was written.
	RecordedAt time.Time
}

// Backend persists evaluation records.
type Backend interface {
	// Save persists a batch of records from one evaluation.
	Save(ctx context.Context, records []*Record) error

	// List returns records for a rule, most recent first, up to limit.
	List(ctx context.Context, ruleID string, limit int) ([]*Record, error)

	// Prune removes records recorded before the cutoff and returns the
	// number deleted.
	Prune(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}

// Recorder converts evaluation results into records and hands them to a
// backend. It is safe for concurrent use.
type Recorder struct {
	backend Backend
	logger  *slog.Logger
}

// NewRecorder creates a recorder over the given backend.
func NewRecorder(backend Backend, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		backend: backend,
		logger:  logger.With("component", "history"),
	}
}

// Record persists the results of one evaluation. Failures are logged and
// swallowed so evaluation callers are never affected by history problems.
func (r *Recorder) Record(ctx context.Context, snapshotVersion uint64, scenario catalog.Scenario, results []catalog.EvaluationResult) {
	if len(results) == 0 {
		return
	}

	evaluationID := uuid.New().String()
	now := time.Now().UTC()

	records := make([]*Record, 0, len(results))
	for _, res := range results {
		records = append(records, &Record{
			ID:                     uuid.New().String(),
			EvaluationID:           evaluationID,
			SnapshotVersion:        snapshotVersion,
			RuleID:                 res.RuleID,
			Applicable:             res.Applicable,
			Justification:          res.Justification,
			UnresolvedConflictWith: res.UnresolvedConflictWith,
			ReferenceDate:          scenario.ReferenceDate,
			RecordedAt:             now,
		})
	}

	if err := r.backend.Save(ctx, records); err != nil {
		r.logger.Error("failed to record evaluation history",
			"evaluation_id", evaluationID,
			"records", len(records),
			"error", err,
		)
		return
	}

	r.logger.Debug("evaluation recorded",
		"evaluation_id", evaluationID,
		"records", len(records),
		"snapshot_version", snapshotVersion,
	)
}

// List returns recorded outcomes for a rule, most recent first.
func (r *Recorder) List(ctx context.Context, ruleID string, limit int) ([]*Record, error) {
	return r.backend.List(ctx, ruleID, limit)
}

// Prune removes records older than the retention window.
func (r *Recorder) Prune(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-retention)
	deleted, err := r.backend.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		r.logger.Info("pruned evaluation history", "deleted", deleted, "cutoff", cutoff)
	}
	return deleted, nil
}

// Close releases the underlying backend.
func (r *Recorder) Close() error {
	return r.backend.Close()
}

// joinConflicts serializes the conflict list for storage.
func joinConflicts(ids []string) string {
	return strings.Join(ids, ",")
}

// splitConflicts parses a stored conflict list.
func splitConflicts(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
