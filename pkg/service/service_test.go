package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"regula-hq/regula/pkg/catalog"
	"regula-hq/regula/pkg/eval"
	"regula-hq/regula/pkg/history"
	"regula-hq/regula/pkg/search"
	"regula-hq/regula/pkg/snapshot"
	"regula-hq/regula/pkg/store"
)

func fixtureStore() *store.MemoryStore {
	st := store.NewMemoryStore()
	st.SetRules([]catalog.RuleRecord{
		{
			ID: "R1", Title: "Base income reporting", Category: "tax",
			Obligation: "mandatory", Status: "active",
			AffectedElements: []string{"income"},
		},
		{
			ID: "R2", Title: "Bracket adjustment", Category: "tax",
			Obligation: "discretionary", Status: "active",
			AffectedElements: []string{"tax_bracket"},
		},
		{
			ID: "R3", Title: "Payroll audit trail", Category: "audit",
			Obligation: "mandatory", Status: "active",
			AffectedElements: []string{"payroll"},
		},
	})
	st.SetElements([]catalog.DataElementRecord{
		{ID: "income", Name: "Income", Domain: "finance"},
		{ID: "tax_bracket", Name: "Tax bracket", Domain: "finance"},
		{ID: "payroll", Name: "Payroll", Domain: "hr"},
	})
	st.SetEdges([]catalog.EdgeRecord{
		{Source: "R2", Target: "R1", Kind: "requires"},
	})
	return st
}

func testScenario(facts map[string]bool) catalog.Scenario {
	return catalog.Scenario{
		ReferenceDate: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		Facts:         facts,
	}
}

func TestRebuildPublishesSnapshot(t *testing.T) {
	svc := New(fixtureStore(), Options{})
	ctx := context.Background()

	if got := svc.CurrentVersion(); got != 0 {
		t.Fatalf("CurrentVersion before rebuild = %d, want 0", got)
	}
	if _, err := svc.Acquire(); !errors.Is(err, snapshot.ErrNoSnapshot) {
		t.Fatalf("Acquire before rebuild: err = %v, want ErrNoSnapshot", err)
	}

	version, err := svc.Rebuild(ctx)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if version != 1 {
		t.Errorf("Rebuild version = %d, want 1", version)
	}
	if got := svc.CurrentVersion(); got != 1 {
		t.Errorf("CurrentVersion = %d, want 1", got)
	}

	snap, err := svc.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer snap.Release()
	if got := snap.Graph.Len(); got != 3 {
		t.Errorf("snapshot rule count = %d, want 3", got)
	}
}

func TestRebuildRejectsInvalidCatalog(t *testing.T) {
	st := fixtureStore()
	svc := New(st, Options{})
	ctx := context.Background()

	if _, err := svc.Rebuild(ctx); err != nil {
		t.Fatalf("initial rebuild failed: %v", err)
	}

	// A requires cycle must be rejected and the live snapshot preserved.
	st.SetEdges([]catalog.EdgeRecord{
		{Source: "R1", Target: "R2", Kind: "requires"},
		{Source: "R2", Target: "R1", Kind: "requires"},
	})
	if _, err := svc.Rebuild(ctx); err == nil {
		t.Fatal("Rebuild accepted a requires cycle")
	}
	if got := svc.CurrentVersion(); got != 1 {
		t.Errorf("CurrentVersion after failed rebuild = %d, want 1", got)
	}
	if _, err := svc.Search(ctx, "category(tax)", search.Options{}); err != nil {
		t.Errorf("Search after failed rebuild: %v", err)
	}

	// A corrected catalog resumes at the next version.
	st.SetEdges([]catalog.EdgeRecord{
		{Source: "R2", Target: "R1", Kind: "requires"},
	})
	version, err := svc.Rebuild(ctx)
	if err != nil {
		t.Fatalf("corrected rebuild failed: %v", err)
	}
	if version != 2 {
		t.Errorf("corrected rebuild version = %d, want 2", version)
	}
}

func TestRebuildIdempotence(t *testing.T) {
	svc := New(fixtureStore(), Options{})
	ctx := context.Background()

	if _, err := svc.Rebuild(ctx); err != nil {
		t.Fatalf("first rebuild failed: %v", err)
	}
	before, err := svc.Evaluate(ctx, testScenario(map[string]bool{"income": true}), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	version, err := svc.Rebuild(ctx)
	if err != nil {
		t.Fatalf("second rebuild failed: %v", err)
	}
	if version != 2 {
		t.Errorf("version = %d, want 2", version)
	}

	after, err := svc.Evaluate(ctx, testScenario(map[string]bool{"income": true}), nil)
	if err != nil {
		t.Fatalf("Evaluate after rebuild failed: %v", err)
	}
	if len(before) != len(after) {
		t.Fatalf("result counts differ: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].RuleID != after[i].RuleID ||
			before[i].Applicable != after[i].Applicable ||
			before[i].Justification != after[i].Justification {
			t.Errorf("result %d differs: %+v vs %+v", i, before[i], after[i])
		}
	}
}

func TestSearch(t *testing.T) {
	svc := New(fixtureStore(), Options{})
	ctx := context.Background()
	if _, err := svc.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	tests := []struct {
		expression string
		want       []string
	}{
		{"category(tax)", []string{"R1", "R2"}},
		{"obligation(mandatory)", []string{"R1", "R3"}},
		{"category(tax) AND obligation(mandatory)", []string{"R1"}},
		{"dataElement(payroll)", []string{"R3"}},
	}
	for _, tt := range tests {
		got, err := svc.Search(ctx, tt.expression, search.Options{})
		if err != nil {
			t.Errorf("Search(%q) failed: %v", tt.expression, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("Search(%q) = %v, want %v", tt.expression, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Search(%q) = %v, want %v", tt.expression, got, tt.want)
				break
			}
		}
	}

	if _, err := svc.Search(ctx, "category(", search.Options{}); err == nil {
		t.Error("Search accepted a malformed expression")
	}
}

func TestSearchBeforeRebuild(t *testing.T) {
	svc := New(fixtureStore(), Options{})
	if _, err := svc.Search(context.Background(), "category(tax)", search.Options{}); !errors.Is(err, snapshot.ErrNoSnapshot) {
		t.Fatalf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestEvaluate(t *testing.T) {
	svc := New(fixtureStore(), Options{})
	ctx := context.Background()
	if _, err := svc.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	results, err := svc.Evaluate(ctx, testScenario(map[string]bool{
		"income":      true,
		"tax_bracket": true,
		"payroll":     false,
	}), nil)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	byID := make(map[string]catalog.EvaluationResult, len(results))
	for _, r := range results {
		byID[r.RuleID] = r
	}
	if !byID["R1"].Applicable {
		t.Errorf("R1 not applicable: %q", byID["R1"].Justification)
	}
	if !byID["R2"].Applicable {
		t.Errorf("R2 not applicable: %q", byID["R2"].Justification)
	}
	// payroll is asserted false, which blocks R3's direct condition.
	if byID["R3"].Applicable {
		t.Error("R3 applicable despite payroll asserted false")
	}
}

func TestEvaluateUnknownTarget(t *testing.T) {
	svc := New(fixtureStore(), Options{})
	ctx := context.Background()
	if _, err := svc.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	_, err := svc.Evaluate(ctx, testScenario(nil), []string{"R99"})
	var unknown *eval.UnknownRuleError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %v, want UnknownRuleError", err)
	}
	if unknown.RuleID != "R99" {
		t.Errorf("RuleID = %q, want R99", unknown.RuleID)
	}
}

func TestEvaluateRecordsHistory(t *testing.T) {
	backend := history.NewMemoryBackend()
	recorder := history.NewRecorder(backend, nil)
	svc := New(fixtureStore(), Options{Recorder: recorder})
	ctx := context.Background()
	if _, err := svc.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	if _, err := svc.Evaluate(ctx, testScenario(map[string]bool{"income": true}), []string{"R1"}); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	records, err := svc.History(ctx, "R1", 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].SnapshotVersion != 1 {
		t.Errorf("SnapshotVersion = %d, want 1", records[0].SnapshotVersion)
	}
	if !records[0].Applicable {
		t.Error("recorded outcome not applicable")
	}
}

func TestHistoryWithoutRecorder(t *testing.T) {
	svc := New(fixtureStore(), Options{})
	if _, err := svc.History(context.Background(), "R1", 10); err == nil {
		t.Fatal("History succeeded without a recorder")
	}
}

func TestEvaluateUsesStoredEvaluator(t *testing.T) {
	st := fixtureStore()
	st.SetEvaluator("R1", func(s catalog.Scenario) bool {
		return s.Asserted("income") && s.Asserted("tax_bracket")
	})
	svc := New(st, Options{})
	ctx := context.Background()
	if _, err := svc.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	results, err := svc.Evaluate(ctx, testScenario(map[string]bool{"income": true}), []string{"R1"})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if results[0].Applicable {
		t.Error("R1 applicable although its evaluator requires tax_bracket")
	}
}

func TestStartScheduleInvalidSpec(t *testing.T) {
	svc := New(fixtureStore(), Options{})
	if err := svc.StartSchedule("not a cron spec", "", 0); err == nil {
		t.Fatal("StartSchedule accepted an invalid spec")
	}
	// Nothing to schedule is not an error.
	if err := svc.StartSchedule("", "", 0); err != nil {
		t.Fatalf("empty StartSchedule failed: %v", err)
	}
	svc.StopSchedule()
}
