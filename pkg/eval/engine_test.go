package eval

import (
	"errors"
	"testing"
	"time"

	"regula-hq/regula/pkg/catalog"
	"regula-hq/regula/pkg/graph"
)

func rule(id string, elements ...string) catalog.RuleRecord {
	return catalog.RuleRecord{
		ID: id, Category: "test", Obligation: "mandatory",
		Status: "active", AffectedElements: elements,
	}
}

func edge(source, target, kind string) catalog.EdgeRecord {
	return catalog.EdgeRecord{Source: source, Target: target, Kind: kind}
}

func resolve(t *testing.T, rules []catalog.RuleRecord, edges []catalog.EdgeRecord) *graph.Resolved {
	t.Helper()
	c, err := graph.Build(rules, edges)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	r, err := graph.Resolve(c)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	return r
}

func scenario(facts map[string]bool) catalog.Scenario {
	return catalog.Scenario{
		ReferenceDate: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		Facts:         facts,
	}
}

// byID indexes results for assertion convenience.
func byID(results []catalog.EvaluationResult) map[string]catalog.EvaluationResult {
	out := make(map[string]catalog.EvaluationResult, len(results))
	for _, res := range results {
		out[res.RuleID] = res
	}
	return out
}

func TestEvaluateRequiresChain(t *testing.T) {
	// R2 requires R1. R1's direct condition depends on the income element.
	rules := []catalog.RuleRecord{rule("R1", "income"), rule("R2", "tax_bracket")}
	edges := []catalog.EdgeRecord{edge("R2", "R1", "requires")}
	r := resolve(t, rules, edges)

	t.Run("dependency satisfied", func(t *testing.T) {
		results, err := Evaluate(r, nil, scenario(map[string]bool{"income": true}), nil)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		res := byID(results)

		if !res["R1"].Applicable {
			t.Errorf("R1 not applicable: %s", res["R1"].Justification)
		}
		if !res["R2"].Applicable {
			t.Errorf("R2 not applicable: %s", res["R2"].Justification)
		}
		if want := "directly satisfied; requires satisfied: R1"; res["R2"].Justification != want {
			t.Errorf("R2 justification = %q, want %q", res["R2"].Justification, want)
		}
	})

	t.Run("dependency fails", func(t *testing.T) {
		results, err := Evaluate(r, nil, scenario(map[string]bool{"income": false}), nil)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		res := byID(results)

		if res["R1"].Applicable {
			t.Error("R1 applicable despite failing direct condition")
		}
		if res["R2"].Applicable {
			t.Error("R2 applicable despite failing dependency")
		}
		if want := "requires R1, which is not satisfied"; res["R2"].Justification != want {
			t.Errorf("R2 justification = %q, want %q", res["R2"].Justification, want)
		}
	})
}

func TestEvaluateTransitiveRequires(t *testing.T) {
	// R3 requires R2 requires R1; the closure is checked, not just the
	// direct dependency.
	rules := []catalog.RuleRecord{rule("R1", "a"), rule("R2"), rule("R3")}
	edges := []catalog.EdgeRecord{
		edge("R2", "R1", "requires"),
		edge("R3", "R2", "requires"),
	}
	r := resolve(t, rules, edges)

	results, err := Evaluate(r, nil, scenario(map[string]bool{"a": false}), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	res := byID(results)

	if res["R3"].Applicable {
		t.Error("R3 applicable despite transitive dependency failing")
	}
	if want := "requires R1, which is not satisfied"; res["R3"].Justification != want {
		t.Errorf("R3 justification = %q, want %q", res["R3"].Justification, want)
	}
}

func TestEvaluateSupersession(t *testing.T) {
	rules := []catalog.RuleRecord{rule("R3"), rule("R4")}
	edges := []catalog.EdgeRecord{edge("R4", "R3", "supersedes")}
	r := resolve(t, rules, edges)

	t.Run("both satisfied", func(t *testing.T) {
		results, err := Evaluate(r, nil, scenario(nil), nil)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		res := byID(results)

		if res["R3"].Applicable {
			t.Error("R3 applicable despite being superseded")
		}
		if want := "superseded by R4"; res["R3"].Justification != want {
			t.Errorf("R3 justification = %q, want %q", res["R3"].Justification, want)
		}
		if !res["R4"].Applicable {
			t.Errorf("R4 not applicable: %s", res["R4"].Justification)
		}
	})

	t.Run("superseder fails its condition", func(t *testing.T) {
		evaluators := map[string]catalog.ConditionFunc{
			"R4": func(catalog.Scenario) bool { return false },
		}
		results, err := Evaluate(r, evaluators, scenario(nil), nil)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		res := byID(results)

		// R4 is out on its own condition, so R3 stands.
		if !res["R3"].Applicable {
			t.Errorf("R3 not applicable: %s", res["R3"].Justification)
		}
		if res["R4"].Applicable {
			t.Error("R4 applicable despite failing condition")
		}
	})
}

func TestEvaluateSuppressedRuleStillSuppresses(t *testing.T) {
	// R1 supersedes R2 supersedes R3, all satisfied. R2 is suppressed by R1,
	// but R2 still suppresses R3: suppression is decided on the stage-3
	// survivors.
	rules := []catalog.RuleRecord{rule("R1"), rule("R2"), rule("R3")}
	edges := []catalog.EdgeRecord{
		edge("R1", "R2", "supersedes"),
		edge("R2", "R3", "supersedes"),
	}
	r := resolve(t, rules, edges)

	results, err := Evaluate(r, nil, scenario(nil), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	res := byID(results)

	if !res["R1"].Applicable {
		t.Errorf("R1 not applicable: %s", res["R1"].Justification)
	}
	if res["R2"].Applicable || res["R3"].Applicable {
		t.Error("suppressed rules reported applicable")
	}
	if want := "superseded by R1"; res["R2"].Justification != want {
		t.Errorf("R2 justification = %q, want %q", res["R2"].Justification, want)
	}
	// R1 transitively supersedes R3 and has the smaller identifier.
	if want := "superseded by R1"; res["R3"].Justification != want {
		t.Errorf("R3 justification = %q, want %q", res["R3"].Justification, want)
	}
}

func TestEvaluateUnresolvedConflict(t *testing.T) {
	rules := []catalog.RuleRecord{rule("R5"), rule("R6")}
	edges := []catalog.EdgeRecord{edge("R5", "R6", "conflicts")}
	r := resolve(t, rules, edges)

	results, err := Evaluate(r, nil, scenario(nil), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	res := byID(results)

	// Both stay applicable; the engine never picks a winner.
	if !res["R5"].Applicable || !res["R6"].Applicable {
		t.Fatal("conflicting rules should both remain applicable")
	}
	if len(res["R5"].UnresolvedConflictWith) != 1 || res["R5"].UnresolvedConflictWith[0] != "R6" {
		t.Errorf("R5 conflicts = %v, want [R6]", res["R5"].UnresolvedConflictWith)
	}
	if len(res["R6"].UnresolvedConflictWith) != 1 || res["R6"].UnresolvedConflictWith[0] != "R5" {
		t.Errorf("R6 conflicts = %v, want [R5]", res["R6"].UnresolvedConflictWith)
	}
}

func TestEvaluateConflictResolvedBySupersedes(t *testing.T) {
	// Conflict plus precedence: stage 4 suppresses the loser, so no
	// unresolved conflict is flagged.
	rules := []catalog.RuleRecord{rule("R5"), rule("R6")}
	edges := []catalog.EdgeRecord{
		edge("R5", "R6", "conflicts"),
		edge("R5", "R6", "supersedes"),
	}
	r := resolve(t, rules, edges)

	results, err := Evaluate(r, nil, scenario(nil), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	res := byID(results)

	if !res["R5"].Applicable {
		t.Errorf("R5 not applicable: %s", res["R5"].Justification)
	}
	if res["R6"].Applicable {
		t.Error("R6 applicable despite being superseded")
	}
	if len(res["R5"].UnresolvedConflictWith) != 0 {
		t.Errorf("R5 conflicts = %v, want none", res["R5"].UnresolvedConflictWith)
	}
}

func TestEvaluateConflictShrinksWhenMemberDisqualified(t *testing.T) {
	// Three-way conflict group; one member fails its direct condition, so
	// only the surviving pair is flagged.
	rules := []catalog.RuleRecord{rule("R1", "a"), rule("R2"), rule("R3")}
	edges := []catalog.EdgeRecord{
		edge("R1", "R2", "conflicts"),
		edge("R2", "R3", "conflicts"),
		edge("R1", "R3", "conflicts"),
	}
	r := resolve(t, rules, edges)

	results, err := Evaluate(r, nil, scenario(map[string]bool{"a": false}), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	res := byID(results)

	if res["R1"].Applicable {
		t.Error("R1 applicable despite failed condition")
	}
	if got := res["R2"].UnresolvedConflictWith; len(got) != 1 || got[0] != "R3" {
		t.Errorf("R2 conflicts = %v, want [R3]", got)
	}
	if got := res["R3"].UnresolvedConflictWith; len(got) != 1 || got[0] != "R2" {
		t.Errorf("R3 conflicts = %v, want [R2]", got)
	}
}

func TestEvaluateCandidacy(t *testing.T) {
	from := "2026-01-01"
	to := "2026-12-31"

	records := []catalog.RuleRecord{
		{ID: "R1", Category: "t", Obligation: "mandatory", Status: "active", EffectiveFrom: from, EffectiveTo: to},
		{ID: "R2", Category: "t", Obligation: "mandatory", Status: "retired"},
		{ID: "R3", Category: "t", Obligation: "mandatory", Status: "draft"},
		{ID: "R4", Category: "t", Obligation: "mandatory", Status: "active", EffectiveFrom: "2027-01-01"},
	}
	r := resolve(t, records, nil)

	// Retired and draft rules are skipped entirely by the default
	// considered set; evaluate explicitly to see their justifications.
	results, err := Evaluate(r, nil, scenario(nil), []string{"R1", "R2", "R3", "R4"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	res := byID(results)

	if !res["R1"].Applicable {
		t.Errorf("R1 not applicable: %s", res["R1"].Justification)
	}
	if res["R2"].Justification != "status retired" {
		t.Errorf("R2 justification = %q, want \"status retired\"", res["R2"].Justification)
	}
	if res["R3"].Justification != "status draft" {
		t.Errorf("R3 justification = %q, want \"status draft\"", res["R3"].Justification)
	}
	if want := "not in force on 2026-06-15"; res["R4"].Justification != want {
		t.Errorf("R4 justification = %q, want %q", res["R4"].Justification, want)
	}
}

func TestEvaluateDefaultConsideredSetSkipsInactive(t *testing.T) {
	records := []catalog.RuleRecord{
		{ID: "R1", Category: "t", Obligation: "mandatory", Status: "active"},
		{ID: "R2", Category: "t", Obligation: "mandatory", Status: "retired"},
	}
	r := resolve(t, records, nil)

	results, err := Evaluate(r, nil, scenario(nil), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(results) != 1 || results[0].RuleID != "R1" {
		t.Errorf("results = %+v, want only R1", results)
	}
}

func TestEvaluateTargets(t *testing.T) {
	rules := []catalog.RuleRecord{rule("R1"), rule("R2"), rule("R3")}
	r := resolve(t, rules, nil)

	t.Run("subset with duplicates", func(t *testing.T) {
		results, err := Evaluate(r, nil, scenario(nil), []string{"R3", "R1", "R3"})
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("got %d results, want 2", len(results))
		}
		// Output is in ascending identifier order regardless of target order.
		if results[0].RuleID != "R1" || results[1].RuleID != "R3" {
			t.Errorf("result order = [%s %s], want [R1 R3]", results[0].RuleID, results[1].RuleID)
		}
	})

	t.Run("unknown target", func(t *testing.T) {
		_, err := Evaluate(r, nil, scenario(nil), []string{"R1", "R9"})
		if err == nil {
			t.Fatal("Evaluate succeeded with unknown target")
		}
		var unknownErr *UnknownRuleError
		if !errors.As(err, &unknownErr) {
			t.Fatalf("error = %T (%v), want *UnknownRuleError", err, err)
		}
		if unknownErr.RuleID != "R9" {
			t.Errorf("unknown rule = %q, want R9", unknownErr.RuleID)
		}
	})
}

func TestEvaluateOpaqueEvaluatorWins(t *testing.T) {
	// An explicit evaluator replaces the default element predicate.
	rules := []catalog.RuleRecord{rule("R1", "income")}
	r := resolve(t, rules, nil)

	evaluators := map[string]catalog.ConditionFunc{
		"R1": func(s catalog.Scenario) bool { return s.Asserted("householder") },
	}

	results, err := Evaluate(r, evaluators, scenario(map[string]bool{"income": true}), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if results[0].Applicable {
		t.Error("R1 applicable despite evaluator returning false")
	}

	results, err = Evaluate(r, evaluators, scenario(map[string]bool{"householder": true}), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !results[0].Applicable {
		t.Errorf("R1 not applicable: %s", results[0].Justification)
	}
}

func TestEvaluateDefaultPredicateIgnoresSilence(t *testing.T) {
	// Elements the scenario does not mention never block a rule; only an
	// assertion of false does.
	rules := []catalog.RuleRecord{rule("R1", "income", "payroll")}
	r := resolve(t, rules, nil)

	results, err := Evaluate(r, nil, scenario(map[string]bool{"income": true}), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !results[0].Applicable {
		t.Errorf("R1 not applicable: %s", results[0].Justification)
	}
}

func TestEvaluateDeterminism(t *testing.T) {
	rules := []catalog.RuleRecord{
		rule("R1"), rule("R2"), rule("R3"), rule("R4"), rule("R5"),
	}
	edges := []catalog.EdgeRecord{
		edge("R2", "R1", "requires"),
		edge("R3", "R4", "conflicts"),
		edge("R5", "R4", "supersedes"),
	}
	r := resolve(t, rules, edges)

	first, err := Evaluate(r, nil, scenario(nil), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	for run := 0; run < 10; run++ {
		again, err := Evaluate(r, nil, scenario(nil), nil)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d returned %d results, want %d", run, len(again), len(first))
		}
		for i := range first {
			if again[i].RuleID != first[i].RuleID ||
				again[i].Applicable != first[i].Applicable ||
				again[i].Justification != first[i].Justification {
				t.Fatalf("run %d result %d = %+v, want %+v", run, i, again[i], first[i])
			}
		}
	}
}
