// Package service wires the rule engine together: it drives the store →
// build → resolve → index pipeline, publishes snapshots through the
// coordinator, and exposes the search and evaluation operations against
// the currently published snapshot.
//
// The service also owns the operational machinery around the pipeline:
// file watching, scheduled rebuilds, history recording and metrics.
package service
