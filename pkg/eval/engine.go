package eval

import (
	"fmt"
	"sort"
	"strings"

	"regula-hq/regula/pkg/catalog"
	"regula-hq/regula/pkg/graph"
)

// UnknownRuleError indicates an evaluation target that does not exist in the
// snapshot being evaluated.
type UnknownRuleError struct {
	RuleID string
}

// Error returns the error message.
func (e *UnknownRuleError) Error() string {
	return fmt.Sprintf("unknown rule %q", e.RuleID)
}

// Evaluate determines the applicability of rules against a scenario.
//
// If targetIDs is empty, every active rule in the graph is considered;
// otherwise only the named rules are, in which case an unknown identifier is
// an error. One EvaluationResult is returned per considered rule, in
// ascending rule identifier order.
func Evaluate(r *graph.Resolved, evaluators map[string]catalog.ConditionFunc, scenario catalog.Scenario, targetIDs []string) ([]catalog.EvaluationResult, error) {
	considered, err := consideredSet(r, targetIDs)
	if err != nil {
		return nil, err
	}

	n := r.Len()

	// Stage state for every rule in the graph, not just the considered set:
	// requires closures may reach outside it.
	candidate := make([]bool, n)
	direct := make([]bool, n)
	for i := 0; i < n; i++ {
		rule := r.Rule(i)
		candidate[i] = rule.Status == catalog.StatusActive && rule.InForce(scenario.ReferenceDate)
		direct[i] = directlySatisfied(rule, evaluators, scenario)
	}

	// Stages 1-3: candidacy, direct condition, requires closure.
	surviving := make([]bool, n)
	results := make(map[int]*catalog.EvaluationResult, len(considered))
	for _, i := range considered {
		res := &catalog.EvaluationResult{RuleID: r.Rule(i).ID}
		results[i] = res

		if reason, ok := disqualified(r, i, candidate, direct, scenario); ok {
			res.Justification = reason
			continue
		}

		surviving[i] = true
		res.Applicable = true
		res.Justification = satisfiedJustification(r, i)
	}

	// Stage 4: supersession. Suppression is decided on the stage-3 survivors;
	// a suppressed rule still suppresses the rules it supersedes.
	for _, i := range considered {
		if !surviving[i] {
			continue
		}
		if winner, ok := supersededBy(r, i, surviving); ok {
			res := results[i]
			res.Applicable = false
			res.Justification = fmt.Sprintf("superseded by %s", r.Rule(winner).ID)
		}
	}

	// Stage 5: conflict detection among the rules still applicable. Pairs
	// with a precedence relation were already settled by stage 4, so every
	// remaining pair inside a group is incomparable.
	for _, i := range considered {
		res := results[i]
		if !res.Applicable {
			continue
		}
		group := r.ConflictGroupOf(i)
		for _, other := range group {
			if other == i || results[other] == nil || !results[other].Applicable {
				continue
			}
			if _, comparable := r.Precedes(i, other); comparable {
				continue
			}
			res.UnresolvedConflictWith = append(res.UnresolvedConflictWith, r.Rule(other).ID)
		}
		sort.Strings(res.UnresolvedConflictWith)
	}

	out := make([]catalog.EvaluationResult, 0, len(considered))
	for _, i := range considered {
		out = append(out, *results[i])
	}
	return out, nil
}

// consideredSet maps target identifiers to sorted arena indices, defaulting
// to all active rules.
func consideredSet(r *graph.Resolved, targetIDs []string) ([]int, error) {
	if len(targetIDs) == 0 {
		var considered []int
		for i := 0; i < r.Len(); i++ {
			if r.Rule(i).Status == catalog.StatusActive {
				considered = append(considered, i)
			}
		}
		return considered, nil
	}

	seen := make(map[int]bool, len(targetIDs))
	considered := make([]int, 0, len(targetIDs))
	for _, id := range targetIDs {
		i, ok := r.Lookup(id)
		if !ok {
			return nil, &UnknownRuleError{RuleID: id}
		}
		if !seen[i] {
			seen[i] = true
			considered = append(considered, i)
		}
	}
	sort.Ints(considered)
	return considered, nil
}

// directlySatisfied applies the rule's opaque condition, falling back to the
// default predicate: every affected element the scenario asserts must be
// asserted true. Elements the scenario is silent on do not block the rule.
func directlySatisfied(rule *catalog.Rule, evaluators map[string]catalog.ConditionFunc, scenario catalog.Scenario) bool {
	if fn, ok := evaluators[rule.ID]; ok && fn != nil {
		return fn(scenario)
	}
	for _, el := range rule.AffectedElements {
		if v, asserted := scenario.Facts[el]; asserted && !v {
			return false
		}
	}
	return true
}

// disqualified checks stages 1-3 for rule i and returns the justification if
// the rule fails any of them. Closure members are visited in ascending
// identifier order, so the first failing dependency named is deterministic.
func disqualified(r *graph.Resolved, i int, candidate, direct []bool, scenario catalog.Scenario) (string, bool) {
	rule := r.Rule(i)

	switch rule.Status {
	case catalog.StatusRetired:
		return "status retired", true
	case catalog.StatusDraft:
		return "status draft", true
	}
	if !rule.InForce(scenario.ReferenceDate) {
		return fmt.Sprintf("not in force on %s", scenario.ReferenceDate.Format("2006-01-02")), true
	}

	if !direct[i] {
		return "direct condition not satisfied", true
	}

	for _, dep := range r.RequiresClosure(i) {
		if !candidate[dep] || !direct[dep] {
			return fmt.Sprintf("requires %s, which is not satisfied", r.Rule(dep).ID), true
		}
	}

	return "", false
}

// satisfiedJustification names the requires chain that was verified.
func satisfiedJustification(r *graph.Resolved, i int) string {
	closure := r.RequiresClosure(i)
	if len(closure) == 0 {
		return "directly satisfied"
	}
	ids := make([]string, len(closure))
	for k, dep := range closure {
		ids[k] = r.Rule(dep).ID
	}
	return fmt.Sprintf("directly satisfied; requires satisfied: %s", strings.Join(ids, ", "))
}

// supersededBy finds the suppressing rule for i among the stage-3 survivors,
// if any. With several superseders the one with the smallest identifier wins
// the justification, keeping output deterministic.
func supersededBy(r *graph.Resolved, i int, surviving []bool) (int, bool) {
	for j := 0; j < len(surviving); j++ {
		if j == i || !surviving[j] {
			continue
		}
		if winner, comparable := r.Precedes(j, i); comparable && winner == j {
			return j, true
		}
	}
	return 0, false
}
