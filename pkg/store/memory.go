package store

import (
	"context"
	"sync"

	"regula-hq/regula/pkg/catalog"
)

// MemoryStore is an in-memory Store implementation. It is the fixture used
// throughout the tests and a convenient adapter for embedding callers that
// assemble rule sets programmatically, including arbitrary condition
// evaluators.
type MemoryStore struct {
	mu         sync.RWMutex
	rules      []catalog.RuleRecord
	elements   []catalog.DataElementRecord
	edges      []catalog.EdgeRecord
	evaluators map[string]catalog.ConditionFunc
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		evaluators: make(map[string]catalog.ConditionFunc),
	}
}

// SetRules replaces the rule records.
func (m *MemoryStore) SetRules(rules []catalog.RuleRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append([]catalog.RuleRecord(nil), rules...)
}

// SetElements replaces the data element records.
func (m *MemoryStore) SetElements(elements []catalog.DataElementRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.elements = append([]catalog.DataElementRecord(nil), elements...)
}

// SetEdges replaces the edge records.
func (m *MemoryStore) SetEdges(edges []catalog.EdgeRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append([]catalog.EdgeRecord(nil), edges...)
}

// SetEvaluator registers an opaque condition predicate for a rule.
func (m *MemoryStore) SetEvaluator(ruleID string, fn catalog.ConditionFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluators[ruleID] = fn
}

// FetchRules implements Store.
func (m *MemoryStore) FetchRules(ctx context.Context) ([]catalog.RuleRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]catalog.RuleRecord(nil), m.rules...), nil
}

// FetchElements implements Store.
func (m *MemoryStore) FetchElements(ctx context.Context) ([]catalog.DataElementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]catalog.DataElementRecord(nil), m.elements...), nil
}

// FetchEdges implements Store.
func (m *MemoryStore) FetchEdges(ctx context.Context) ([]catalog.EdgeRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]catalog.EdgeRecord(nil), m.edges...), nil
}

// FetchEvaluators implements Store.
func (m *MemoryStore) FetchEvaluators(ctx context.Context) (map[string]catalog.ConditionFunc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]catalog.ConditionFunc, len(m.evaluators))
	for id, fn := range m.evaluators {
		out[id] = fn
	}
	return out, nil
}
