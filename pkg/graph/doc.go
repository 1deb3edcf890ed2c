// Package graph builds and resolves the rule dependency graph.
//
// The two entry points mirror the rebuild pipeline:
//
//  1. Build validates flat store records and constructs a Candidate: an
//     integer-indexed arena of rules with adjacency lists per edge kind.
//     Duplicate identifiers, dangling edge endpoints, malformed enums and
//     cycles in the requires or supersedes subgraphs all fail the build.
//  2. Resolve derives the query-time structures from a Candidate: the
//     transitive requires closure of every rule, the supersedes precedence
//     relation, the conflict groups, and the refines ancestry used by the
//     search index.
//
// Both steps are pure; neither touches a published snapshot. A failed build
// or resolve aborts only the rebuild in progress.
//
// Rules are stored in an arena sorted by ascending identifier, so arena index
// order is identifier order. All derived sets are kept as sorted index slices,
// which makes closure iteration and result ordering deterministic.
package graph
