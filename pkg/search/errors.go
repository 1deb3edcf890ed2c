package search

import "fmt"

// QueryError indicates a malformed predicate expression or a reference to an
// unknown data element, category or obligation level. Query errors are
// returned to the caller per query; they never affect the snapshot.
type QueryError struct {
	Expression string
	Position   int
	Message    string
}

// Error returns the error message.
func (e *QueryError) Error() string {
	if e.Expression != "" {
		return fmt.Sprintf("query %q: %s (at offset %d)", e.Expression, e.Message, e.Position)
	}
	return fmt.Sprintf("query: %s", e.Message)
}
