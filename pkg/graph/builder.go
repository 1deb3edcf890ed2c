package graph

import (
	"fmt"
	"sort"
	"time"

	"regula-hq/regula/pkg/catalog"
)

// dateLayout is the wire format for effective dates in store records.
const dateLayout = "2006-01-02"

// Candidate is a validated but not yet resolved rule graph. It holds the rule
// arena (sorted by ascending identifier) and per-kind adjacency lists over
// arena indices. A Candidate is produced by Build and consumed by Resolve; it
// is never published directly.
type Candidate struct {
	rules []catalog.Rule
	edges []catalog.DependencyEdge
	index map[string]int

	// Adjacency lists by edge kind, indexed by source arena index.
	requires   [][]int
	supersedes [][]int
	conflicts  [][]int
	refines    [][]int
}

// Build validates flat store records and constructs a graph candidate.
//
// Validation order: rule records first (duplicate identifiers, enum and date
// fields), then edge records (endpoint existence, kind), then acyclicity of
// the requires and supersedes subgraphs, each checked independently. The
// first violation aborts the build; no partial state escapes.
func Build(ruleRecords []catalog.RuleRecord, edgeRecords []catalog.EdgeRecord) (*Candidate, error) {
	rules := make([]catalog.Rule, 0, len(ruleRecords))
	seen := make(map[string]bool, len(ruleRecords))

	for _, rec := range ruleRecords {
		if rec.ID == "" {
			return nil, &BuildError{Message: "rule record with empty identifier"}
		}
		if seen[rec.ID] {
			return nil, &BuildError{RuleID: rec.ID, Message: "duplicate rule identifier"}
		}
		seen[rec.ID] = true

		rule, err := ruleFromRecord(rec)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	// Arena order is identifier order; every derived set inherits it.
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })

	index := make(map[string]int, len(rules))
	for i, r := range rules {
		index[r.ID] = i
	}

	c := &Candidate{
		rules:      rules,
		index:      index,
		requires:   make([][]int, len(rules)),
		supersedes: make([][]int, len(rules)),
		conflicts:  make([][]int, len(rules)),
		refines:    make([][]int, len(rules)),
	}

	for _, rec := range edgeRecords {
		kind, err := catalog.ParseEdgeKind(rec.Kind)
		if err != nil {
			return nil, &BuildError{Message: fmt.Sprintf("edge %s -> %s: %v", rec.Source, rec.Target, err), Cause: err}
		}

		src, ok := index[rec.Source]
		if !ok {
			return nil, &BuildError{RuleID: rec.Source, Message: fmt.Sprintf("%s edge references unknown source rule", kind)}
		}
		dst, ok := index[rec.Target]
		if !ok {
			return nil, &BuildError{RuleID: rec.Target, Message: fmt.Sprintf("%s edge references unknown target rule", kind)}
		}
		if src == dst {
			return nil, &BuildError{RuleID: rec.Source, Message: fmt.Sprintf("%s self-edge", kind)}
		}

		c.edges = append(c.edges, catalog.DependencyEdge{Source: rec.Source, Target: rec.Target, Kind: kind})

		switch kind {
		case catalog.EdgeRequires:
			c.requires[src] = append(c.requires[src], dst)
		case catalog.EdgeSupersedes:
			c.supersedes[src] = append(c.supersedes[src], dst)
		case catalog.EdgeConflicts:
			// Conflicts are symmetric; store both directions.
			c.conflicts[src] = append(c.conflicts[src], dst)
			c.conflicts[dst] = append(c.conflicts[dst], src)
		case catalog.EdgeRefines:
			c.refines[src] = append(c.refines[src], dst)
		}
	}

	for i := range c.rules {
		sort.Ints(c.requires[i])
		sort.Ints(c.supersedes[i])
		sort.Ints(c.conflicts[i])
		sort.Ints(c.refines[i])
	}

	if err := c.checkAcyclic(catalog.EdgeRequires, c.requires); err != nil {
		return nil, err
	}
	if err := c.checkAcyclic(catalog.EdgeSupersedes, c.supersedes); err != nil {
		return nil, err
	}

	return c, nil
}

// Rules returns the rule arena in ascending identifier order.
func (c *Candidate) Rules() []catalog.Rule {
	return c.rules
}

// Edges returns the validated dependency edges.
func (c *Candidate) Edges() []catalog.DependencyEdge {
	return c.edges
}

// Lookup returns the arena index of the rule with the given identifier.
func (c *Candidate) Lookup(id string) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

// ruleFromRecord converts and validates a single flat rule record.
func ruleFromRecord(rec catalog.RuleRecord) (catalog.Rule, error) {
	obligation, err := catalog.ParseObligation(rec.Obligation)
	if err != nil {
		return catalog.Rule{}, &BuildError{RuleID: rec.ID, Message: err.Error(), Cause: err}
	}

	status, err := catalog.ParseStatus(rec.Status)
	if err != nil {
		return catalog.Rule{}, &BuildError{RuleID: rec.ID, Message: err.Error(), Cause: err}
	}

	rule := catalog.Rule{
		ID:               rec.ID,
		Title:            rec.Title,
		Description:      rec.Description,
		Category:         rec.Category,
		Obligation:       obligation,
		Status:           status,
		AffectedElements: append([]string(nil), rec.AffectedElements...),
		SourceReference:  rec.SourceReference,
	}

	if rec.EffectiveFrom != "" {
		t, err := time.Parse(dateLayout, rec.EffectiveFrom)
		if err != nil {
			return catalog.Rule{}, &BuildError{RuleID: rec.ID, Message: fmt.Sprintf("invalid effective_from %q", rec.EffectiveFrom), Cause: err}
		}
		rule.EffectiveFrom = &t
	}
	if rec.EffectiveTo != "" {
		t, err := time.Parse(dateLayout, rec.EffectiveTo)
		if err != nil {
			return catalog.Rule{}, &BuildError{RuleID: rec.ID, Message: fmt.Sprintf("invalid effective_to %q", rec.EffectiveTo), Cause: err}
		}
		rule.EffectiveTo = &t
	}
	if rule.EffectiveFrom != nil && rule.EffectiveTo != nil && rule.EffectiveTo.Before(*rule.EffectiveFrom) {
		return catalog.Rule{}, &BuildError{RuleID: rec.ID, Message: "effective_to precedes effective_from"}
	}

	return rule, nil
}
