package graph

import (
	"fmt"
	"strings"

	"regula-hq/regula/pkg/catalog"
)

// BuildError indicates malformed store records: duplicate rule identifiers,
// edges with missing endpoints, or invalid enum/date fields.
type BuildError struct {
	RuleID  string
	Message string
	Cause   error
}

// Error returns the error message.
func (e *BuildError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("rule %s: %s", e.RuleID, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *BuildError) Unwrap() error {
	return e.Cause
}

// CycleError indicates a cycle in the requires or supersedes subgraph.
// Path names the offending rules in traversal order; the first and last
// entries are the same rule.
type CycleError struct {
	Kind catalog.EdgeKind
	Path []string
}

// Error returns the error message.
func (e *CycleError) Error() string {
	return fmt.Sprintf("%s cycle: %s", e.Kind, strings.Join(e.Path, " -> "))
}

// InconsistentPrecedenceError indicates that two rules are mutually reachable
// through supersedes paths. This cannot occur once the supersedes subgraph has
// passed the acyclicity check; it is guarded against regardless.
type InconsistentPrecedenceError struct {
	RuleID string
}

// Error returns the error message.
func (e *InconsistentPrecedenceError) Error() string {
	return fmt.Sprintf("rule %s: contradictory supersedes ordering", e.RuleID)
}
