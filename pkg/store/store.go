package store

import (
	"context"
	"fmt"

	"regula-hq/regula/pkg/catalog"
)

// Store is the ingestion port the rebuild pipeline reads from. The core never
// writes through it; every method observes one consistent view of the backing
// catalog as of the call.
type Store interface {
	// FetchRules returns all rule records.
	FetchRules(ctx context.Context) ([]catalog.RuleRecord, error)

	// FetchElements returns all known data elements, including elements no
	// rule currently affects.
	FetchElements(ctx context.Context) ([]catalog.DataElementRecord, error)

	// FetchEdges returns all dependency edge records.
	FetchEdges(ctx context.Context) ([]catalog.EdgeRecord, error)

	// FetchEvaluators returns the opaque per-rule condition predicates,
	// keyed by rule identifier. Rules without an entry fall back to the
	// evaluation engine's default predicate.
	FetchEvaluators(ctx context.Context) (map[string]catalog.ConditionFunc, error)
}

// LoadError indicates a store adapter failed to read its backing source.
type LoadError struct {
	Source  string
	Message string
	Cause   error
}

// Error returns the error message.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("store %s: %s: %v", e.Source, e.Message, e.Cause)
	}
	return fmt.Sprintf("store %s: %s", e.Source, e.Message)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Cause
}
