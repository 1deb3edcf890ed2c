// Package store defines the ingestion port the rebuild pipeline reads rule
// and edge records from, plus the adapters that implement it.
//
// The core treats a Store as a read-only snapshot source: it fetches flat
// records and opaque condition evaluators during a rebuild and never writes
// back. Three adapters are provided:
//
//   - MemoryStore: an in-memory fixture for tests and embedding callers,
//     which can inject arbitrary condition evaluators.
//   - FileStore: YAML rule documents, either a single file or a directory
//     of *.yaml/*.yml files. Evaluators are derived from each rule's
//     when_present element list.
//   - SQLiteStore: a read-only SQLite catalog (rules, rule_elements, edges).
//
// Watcher pairs a FileStore with fsnotify to trigger rebuilds on change,
// debounced so editor save storms produce one rebuild.
package store
