// Package eval determines which rules of a resolved graph apply to a
// concrete scenario.
//
// Evaluation runs in fixed stages per candidate rule: candidacy (active
// status, effective-date range covering the scenario reference date), the
// direct condition (an opaque per-rule predicate supplied by the store, with
// a default over the rule's affected elements), the transitive requires
// closure, the supersession filter, and finally conflict detection. Rules
// suppressed by supersession carry a "superseded by" justification; rules in
// a conflict group with surviving incomparable members are applicable but
// flagged, never silently tie-broken.
//
// Evaluate is a pure function: for the same resolved graph and scenario it
// returns identical results on every call. Results are ordered by ascending
// rule identifier, and an empty result set is a valid, non-error outcome.
package eval
