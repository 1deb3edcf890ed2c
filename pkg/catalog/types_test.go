package catalog

import (
	"testing"
	"time"
)

func TestParseObligation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Obligation
		wantErr bool
	}{
		{name: "mandatory", input: "mandatory", want: ObligationMandatory},
		{name: "discretionary", input: "discretionary", want: ObligationDiscretionary},
		{name: "prohibited", input: "prohibited", want: ObligationProhibited},
		{name: "unknown value", input: "optional", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "case sensitive", input: "Mandatory", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseObligation(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseObligation(%q) expected error, got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseObligation(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseObligation(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    Status
		wantErr bool
	}{
		{input: "active", want: StatusActive},
		{input: "retired", want: StatusRetired},
		{input: "draft", want: StatusDraft},
		{input: "archived", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseStatus(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseStatus(%q) expected error, got %q", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseEdgeKind(t *testing.T) {
	for _, valid := range []string{"requires", "conflicts", "supersedes", "refines"} {
		if _, err := ParseEdgeKind(valid); err != nil {
			t.Errorf("ParseEdgeKind(%q) unexpected error: %v", valid, err)
		}
	}
	if _, err := ParseEdgeKind("depends"); err == nil {
		t.Error("ParseEdgeKind(\"depends\") expected error")
	}
}

func TestRuleInForce(t *testing.T) {
	date := func(s string) *time.Time {
		t2, err := time.Parse("2006-01-02", s)
		if err != nil {
			t.Fatalf("bad test date %q: %v", s, err)
		}
		return &t2
	}
	at := func(s string) time.Time { return *date(s) }

	tests := []struct {
		name string
		rule Rule
		when time.Time
		want bool
	}{
		{
			name: "no bounds always in force",
			rule: Rule{},
			when: at("2026-01-01"),
			want: true,
		},
		{
			name: "before effective_from",
			rule: Rule{EffectiveFrom: date("2026-01-01")},
			when: at("2025-12-31"),
			want: false,
		},
		{
			name: "on effective_from",
			rule: Rule{EffectiveFrom: date("2026-01-01")},
			when: at("2026-01-01"),
			want: true,
		},
		{
			name: "after effective_to",
			rule: Rule{EffectiveTo: date("2026-01-01")},
			when: at("2026-01-02"),
			want: false,
		},
		{
			name: "on effective_to",
			rule: Rule{EffectiveTo: date("2026-01-01")},
			when: at("2026-01-01"),
			want: true,
		},
		{
			name: "inside range",
			rule: Rule{EffectiveFrom: date("2026-01-01"), EffectiveTo: date("2026-12-31")},
			when: at("2026-06-15"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.InForce(tt.when); got != tt.want {
				t.Errorf("InForce(%s) = %v, want %v", tt.when.Format("2006-01-02"), got, tt.want)
			}
		})
	}
}

func TestScenarioAsserted(t *testing.T) {
	s := Scenario{Facts: map[string]bool{"income": true, "payroll": false}}

	if !s.Asserted("income") {
		t.Error("Asserted(\"income\") = false, want true")
	}
	if s.Asserted("payroll") {
		t.Error("Asserted(\"payroll\") = true, want false")
	}
	if s.Asserted("unknown") {
		t.Error("Asserted(\"unknown\") = true, want false")
	}

	var empty Scenario
	if empty.Asserted("income") {
		t.Error("empty scenario asserted an element")
	}
}
