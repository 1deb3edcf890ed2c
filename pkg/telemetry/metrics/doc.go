// Package metrics exposes Prometheus instrumentation for the rule engine.
//
// Metrics cover snapshot rebuilds, search queries and scenario evaluations.
// All metrics are registered against a caller-supplied registry so tests
// can isolate their own.
package metrics
