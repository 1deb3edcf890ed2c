// Package snapshot owns the versioned, immutable snapshots the query surface
// reads from.
//
// A Snapshot bundles a resolved graph, its search index, the per-rule
// condition evaluators and the known data elements under one monotonic
// version number. The Coordinator publishes snapshots with a single atomic
// pointer swap: readers acquire a reference once per query and use it for the
// query's whole duration, so a rebuild never becomes visible mid-query and
// never blocks a read. Rebuilds are serialized and all-or-nothing; a staging
// failure leaves the live snapshot untouched.
//
// Snapshots are reference counted. A superseded snapshot stays valid for
// in-flight queries and is retired once the last reference is released.
package snapshot
