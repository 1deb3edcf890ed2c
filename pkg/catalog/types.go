package catalog

import (
	"fmt"
	"time"
)

// Obligation is the level of obligation a rule carries.
type Obligation string

const (
	// ObligationMandatory rules must be followed when applicable.
	ObligationMandatory Obligation = "mandatory"

	// ObligationDiscretionary rules may be followed at the caller's discretion.
	ObligationDiscretionary Obligation = "discretionary"

	// ObligationProhibited rules describe conduct that must not occur.
	ObligationProhibited Obligation = "prohibited"
)

// ParseObligation converts a string into an Obligation.
func ParseObligation(s string) (Obligation, error) {
	switch Obligation(s) {
	case ObligationMandatory, ObligationDiscretionary, ObligationProhibited:
		return Obligation(s), nil
	default:
		return "", fmt.Errorf("unknown obligation level %q", s)
	}
}

// Status is the lifecycle status of a rule.
type Status string

const (
	// StatusActive rules participate in evaluation.
	StatusActive Status = "active"

	// StatusRetired rules are kept for reference but never applicable.
	StatusRetired Status = "retired"

	// StatusDraft rules are not yet in force.
	StatusDraft Status = "draft"
)

// ParseStatus converts a string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusRetired, StatusDraft:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown rule status %q", s)
	}
}

// EdgeKind is the kind of dependency between two rules.
type EdgeKind string

const (
	// EdgeRequires makes the source rule applicable only if the target rule
	// is also applicable.
	EdgeRequires EdgeKind = "requires"

	// EdgeConflicts marks two rules as mutually incompatible unless one
	// supersedes the other.
	EdgeConflicts EdgeKind = "conflicts"

	// EdgeSupersedes gives the source rule precedence over the target when
	// both would otherwise apply; the target is suppressed.
	EdgeSupersedes EdgeKind = "supersedes"

	// EdgeRefines marks the source rule as a specialization of the target.
	// The source inherits the target's affected data elements for search
	// purposes but is evaluated independently.
	EdgeRefines EdgeKind = "refines"
)

// ParseEdgeKind converts a string into an EdgeKind.
func ParseEdgeKind(s string) (EdgeKind, error) {
	switch EdgeKind(s) {
	case EdgeRequires, EdgeConflicts, EdgeSupersedes, EdgeRefines:
		return EdgeKind(s), nil
	default:
		return "", fmt.Errorf("unknown edge kind %q", s)
	}
}

// DataElement is a named business data field that rules can apply to.
// Data elements are immutable once created; rules and scenarios reference
// them by identifier.
type DataElement struct {
	// ID is the unique identifier (e.g. "DE001").
	ID string

	// Name is the human-readable field name (e.g. "customer_income").
	Name string

	// Domain is the business domain tag (e.g. "customer", "tax").
	Domain string
}

// Rule is a single business rule in the catalog.
// Rules are created and updated only through the graph builder's ingest
// step; search and evaluation never mutate them.
type Rule struct {
	// ID is the unique rule identifier within a snapshot (e.g. "R001").
	ID string

	// Title is a concise descriptive name.
	Title string

	// Description is the complete rule statement.
	Description string

	// Category groups rules by concern (e.g. "validation", "compliance").
	Category string

	// Obligation is the level of obligation the rule carries.
	Obligation Obligation

	// Status is the rule's lifecycle status.
	Status Status

	// AffectedElements lists the data element identifiers this rule applies to.
	AffectedElements []string

	// EffectiveFrom and EffectiveTo bound the rule's validity period.
	// A nil bound is open-ended.
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time

	// SourceReference points at the originating policy text, if any.
	SourceReference string
}

// InForce reports whether the rule's effective-date range covers t.
// Rules without a range are always in force.
func (r *Rule) InForce(t time.Time) bool {
	if r.EffectiveFrom != nil && t.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && t.After(*r.EffectiveTo) {
		return false
	}
	return true
}

// DependencyEdge is a directed dependency between two rules.
type DependencyEdge struct {
	Source string
	Target string
	Kind   EdgeKind
}

// Scenario is the concrete input context for one evaluation query.
// It maps data element identifiers to asserted presence/truth flags and is
// constructed per query, never persisted.
type Scenario struct {
	// ReferenceDate is the date the evaluation is anchored to. Rules whose
	// effective range does not cover it are not candidates.
	ReferenceDate time.Time

	// Facts maps data element identifiers to their asserted value.
	Facts map[string]bool
}

// Asserted reports whether the scenario asserts the element as present/true.
func (s Scenario) Asserted(elementID string) bool {
	return s.Facts[elementID]
}

// ConditionFunc is an opaque per-rule predicate over a scenario, supplied by
// the external rule-authoring layer. The evaluation engine calls it without
// inspecting it.
type ConditionFunc func(Scenario) bool

// EvaluationResult is the outcome of evaluating one rule against a scenario.
type EvaluationResult struct {
	// RuleID identifies the evaluated rule.
	RuleID string `json:"rule_id"`

	// Applicable reports whether the rule applies to the scenario.
	Applicable bool `json:"applicable"`

	// Justification explains the outcome: the satisfied condition, the first
	// missing requires-dependency, or the superseding rule.
	Justification string `json:"justification"`

	// UnresolvedConflictWith lists conflicting rule identifiers that also
	// apply and have no precedence relationship with this rule. The engine
	// never picks a winner among incomparable conflicting rules; tie-break
	// policy belongs to the caller.
	UnresolvedConflictWith []string `json:"unresolved_conflict_with,omitempty"`
}
