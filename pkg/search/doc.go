// Package search provides the inverted indices and the boolean predicate
// language used to discover rules in a snapshot.
//
// An Index maps data element identifiers, categories and obligation levels to
// sets of rule arena indices. A rule is indexed under its own affected
// elements and under every element of the rules it transitively refines, so
// refinements stay discoverable through their parents.
//
// Queries are boolean expressions over dataElement(id), category(tag) and
// obligation(level) terms combined with AND, OR and NOT, evaluated by set
// intersection, union and complement. The complement is taken relative to the
// full rule set of the snapshot. Results are ordered by ascending rule
// identifier, or by matched-term count when relevance ordering is requested.
//
// Everything here is a pure function over an immutable snapshot.
package search
