package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"regula-hq/regula/pkg/catalog"
	"regula-hq/regula/pkg/eval"
	"regula-hq/regula/pkg/graph"
	"regula-hq/regula/pkg/history"
	"regula-hq/regula/pkg/search"
	"regula-hq/regula/pkg/snapshot"
	"regula-hq/regula/pkg/store"
	"regula-hq/regula/pkg/telemetry/metrics"
)

// Service exposes the rule engine's operations over a published snapshot.
// All methods are safe for concurrent use; readers never block rebuilds
// and rebuilds never block readers.
type Service struct {
	store    store.Store
	coord    *snapshot.Coordinator
	logger   *slog.Logger
	metrics  *metrics.EngineMetrics
	recorder *history.Recorder

	scheduler *cron.Cron
}

// Options configures optional service collaborators.
type Options struct {
	// Logger receives structured log output. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics, if set, receives rebuild/search/evaluation instrumentation.
	Metrics *metrics.EngineMetrics

	// Recorder, if set, records evaluation outcomes. Recording is
	// best-effort and never fails an evaluation.
	Recorder *history.Recorder
}

// New creates a service over the given store. No snapshot is published
// until the first successful Rebuild.
func New(st store.Store, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    st,
		coord:    snapshot.NewCoordinator(),
		logger:   logger.With("component", "service"),
		metrics:  opts.Metrics,
		recorder: opts.Recorder,
	}
}

// Rebuild fetches the catalog from the store, validates and resolves the
// rule graph, builds the search index and atomically publishes the result
// as a new snapshot. On any failure the previously published snapshot
// stays live and the returned error describes what was rejected.
func (s *Service) Rebuild(ctx context.Context) (uint64, error) {
	start := time.Now()

	version, ruleCount, err := s.rebuild(ctx)
	if s.metrics != nil {
		s.metrics.RecordRebuild(err, time.Since(start), version, ruleCount)
	}
	if err != nil {
		s.logger.Error("snapshot rebuild failed", "error", err)
		return 0, err
	}

	s.logger.Info("snapshot published",
		"version", version,
		"rules", ruleCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return version, nil
}

func (s *Service) rebuild(ctx context.Context) (uint64, int, error) {
	// A refreshable store re-reads its backing source first so the
	// rebuild observes the latest file contents.
	if refresher, ok := s.store.(store.Refresher); ok {
		if err := refresher.Refresh(ctx); err != nil {
			return 0, 0, fmt.Errorf("store refresh: %w", err)
		}
	}

	ruleRecords, err := s.store.FetchRules(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch rules: %w", err)
	}
	elementRecords, err := s.store.FetchElements(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch elements: %w", err)
	}
	edgeRecords, err := s.store.FetchEdges(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch edges: %w", err)
	}
	evaluators, err := s.store.FetchEvaluators(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch evaluators: %w", err)
	}

	elements := make([]catalog.DataElement, len(elementRecords))
	for i, rec := range elementRecords {
		elements[i] = catalog.DataElement{ID: rec.ID, Name: rec.Name, Domain: rec.Domain}
	}

	var ruleCount int
	version, err := s.coord.Rebuild(func() (*snapshot.Snapshot, error) {
		candidate, err := graph.Build(ruleRecords, edgeRecords)
		if err != nil {
			return nil, err
		}
		resolved, err := graph.Resolve(candidate)
		if err != nil {
			return nil, err
		}
		ruleCount = resolved.Len()
		return &snapshot.Snapshot{
			Graph:      resolved,
			Index:      search.BuildIndex(resolved, elements),
			Evaluators: evaluators,
			Elements:   elements,
		}, nil
	})
	if err != nil {
		return 0, 0, err
	}
	return version, ruleCount, nil
}

// Search parses the predicate expression and runs it against the current
// snapshot's index.
func (s *Service) Search(ctx context.Context, expression string, opts search.Options) ([]string, error) {
	start := time.Now()
	ids, err := s.search(expression, opts)
	if s.metrics != nil {
		s.metrics.RecordSearch(err, time.Since(start))
	}
	return ids, err
}

func (s *Service) search(expression string, opts search.Options) ([]string, error) {
	expr, err := search.Parse(expression)
	if err != nil {
		return nil, err
	}

	snap, err := s.coord.Acquire()
	if err != nil {
		return nil, err
	}
	defer snap.Release()

	return snap.Index.Query(expr, opts)
}

// Evaluate runs the scenario against the current snapshot. With no targets
// every active rule is considered; otherwise only the named rules are.
// Outcomes are recorded to history when a recorder is configured.
func (s *Service) Evaluate(ctx context.Context, scenario catalog.Scenario, targetIDs []string) ([]catalog.EvaluationResult, error) {
	start := time.Now()
	results, version, err := s.evaluate(scenario, targetIDs)
	if s.metrics != nil {
		s.metrics.RecordEvaluation(err, time.Since(start))
	}
	if err != nil {
		return nil, err
	}

	if s.recorder != nil {
		s.recorder.Record(ctx, version, scenario, results)
	}
	return results, nil
}

func (s *Service) evaluate(scenario catalog.Scenario, targetIDs []string) ([]catalog.EvaluationResult, uint64, error) {
	snap, err := s.coord.Acquire()
	if err != nil {
		return nil, 0, err
	}
	defer snap.Release()

	results, err := eval.Evaluate(snap.Graph, snap.Evaluators, scenario, targetIDs)
	if err != nil {
		return nil, 0, err
	}
	return results, snap.Version(), nil
}

// CurrentVersion returns the version of the published snapshot, or zero
// when none has been published yet.
func (s *Service) CurrentVersion() uint64 {
	return s.coord.CurrentVersion()
}

// Acquire pins and returns the current snapshot for callers that need
// direct access to the graph or index. The caller must Release it.
func (s *Service) Acquire() (*snapshot.Snapshot, error) {
	return s.coord.Acquire()
}

// History returns recorded outcomes for a rule, most recent first. It
// returns an error when no recorder is configured.
func (s *Service) History(ctx context.Context, ruleID string, limit int) ([]*history.Record, error) {
	if s.recorder == nil {
		return nil, fmt.Errorf("history recording is not enabled")
	}
	return s.recorder.List(ctx, ruleID, limit)
}

// Watch blocks, rebuilding the snapshot after each debounced batch of rule
// file changes, until the context is cancelled.
func (s *Service) Watch(ctx context.Context, watcher *store.Watcher) error {
	return watcher.Watch(ctx, func() error {
		_, err := s.Rebuild(context.Background())
		return err
	})
}

// StartSchedule starts cron-driven background jobs: a periodic rebuild when
// rebuildSpec is non-empty, and history pruning when retention is positive
// and a recorder is configured. Call StopSchedule to shut the jobs down.
func (s *Service) StartSchedule(rebuildSpec string, pruneSpec string, retention time.Duration) error {
	if rebuildSpec == "" && (retention <= 0 || s.recorder == nil) {
		return nil
	}

	scheduler := cron.New()

	if rebuildSpec != "" {
		_, err := scheduler.AddFunc(rebuildSpec, func() {
			if _, err := s.Rebuild(context.Background()); err != nil {
				s.logger.Error("scheduled rebuild failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid rebuild schedule %q: %w", rebuildSpec, err)
		}
		s.logger.Info("scheduled rebuilds enabled", "schedule", rebuildSpec)
	}

	if retention > 0 && s.recorder != nil {
		_, err := scheduler.AddFunc(pruneSpec, func() {
			if _, err := s.recorder.Prune(context.Background(), retention); err != nil {
				s.logger.Error("history prune failed", "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid prune schedule %q: %w", pruneSpec, err)
		}
		s.logger.Info("history pruning enabled", "schedule", pruneSpec, "retention", retention)
	}

	scheduler.Start()
	s.scheduler = scheduler
	return nil
}

// StopSchedule stops background jobs and waits for running ones to finish.
func (s *Service) StopSchedule() {
	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
		s.scheduler = nil
	}
}
