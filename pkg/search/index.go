package search

import (
	"fmt"
	"sort"

	"regula-hq/regula/pkg/catalog"
	"regula-hq/regula/pkg/graph"
)

// Index holds the inverted indices for one resolved graph. It is immutable
// after BuildIndex returns and safe for concurrent readers.
type Index struct {
	resolved *graph.Resolved

	byElement    map[string][]int
	byCategory   map[string][]int
	byObligation map[catalog.Obligation][]int

	// universe is the full rule set (all arena indices ascending); NOT is
	// computed relative to it.
	universe []int

	// knownElements covers every element the snapshot knows about, including
	// elements no rule currently affects.
	knownElements map[string]bool
}

// Options controls result ordering for a query.
type Options struct {
	// Relevance orders results by the number of predicate terms each rule
	// matched, descending, ties broken by ascending identifier. The default
	// is plain ascending identifier order.
	Relevance bool
}

// BuildIndex constructs the inverted indices for a resolved graph. The
// elements slice declares the data elements known to the snapshot; element
// terms referencing anything else fail with a QueryError at query time.
func BuildIndex(r *graph.Resolved, elements []catalog.DataElement) *Index {
	idx := &Index{
		resolved:      r,
		byElement:     make(map[string][]int),
		byCategory:    make(map[string][]int),
		byObligation:  make(map[catalog.Obligation][]int),
		knownElements: make(map[string]bool, len(elements)),
	}

	for _, el := range elements {
		idx.knownElements[el.ID] = true
	}

	rules := r.Rules()
	idx.universe = make([]int, len(rules))
	for i, rule := range rules {
		idx.universe[i] = i

		idx.byCategory[rule.Category] = append(idx.byCategory[rule.Category], i)
		idx.byObligation[rule.Obligation] = append(idx.byObligation[rule.Obligation], i)

		// A rule is indexed under its own elements plus the elements of
		// every rule it refines, so refinements inherit discoverability.
		for _, el := range rule.AffectedElements {
			idx.addElement(el, i)
		}
		for _, parent := range r.RefinesAncestors(i) {
			for _, el := range rules[parent].AffectedElements {
				idx.addElement(el, i)
			}
		}
	}

	for el := range idx.byElement {
		idx.byElement[el] = dedupSorted(idx.byElement[el])
	}

	return idx
}

func (idx *Index) addElement(el string, rule int) {
	idx.knownElements[el] = true
	idx.byElement[el] = append(idx.byElement[el], rule)
}

// Query evaluates a predicate expression and returns matching rule
// identifiers. Ordering is ascending identifier unless opts requests
// relevance ordering.
func (idx *Index) Query(expr *Expr, opts Options) ([]string, error) {
	if expr == nil {
		return nil, &QueryError{Message: "empty predicate expression"}
	}

	set, err := idx.eval(expr)
	if err != nil {
		return nil, err
	}

	if opts.Relevance {
		set = idx.rankByRelevance(expr, set)
	}

	ids := make([]string, len(set))
	for i, ruleIdx := range set {
		ids[i] = idx.resolved.Rule(ruleIdx).ID
	}
	return ids, nil
}

// eval computes the sorted result set of an expression node.
func (idx *Index) eval(e *Expr) ([]int, error) {
	switch e.Type {
	case ExprTerm:
		return idx.termSet(e)

	case ExprAnd:
		if len(e.Children) == 0 {
			return nil, &QueryError{Message: "AND with no operands"}
		}
		set, err := idx.eval(e.Children[0])
		if err != nil {
			return nil, err
		}
		for _, c := range e.Children[1:] {
			other, err := idx.eval(c)
			if err != nil {
				return nil, err
			}
			set = intersectSorted(set, other)
		}
		return set, nil

	case ExprOr:
		if len(e.Children) == 0 {
			return nil, &QueryError{Message: "OR with no operands"}
		}
		var set []int
		for _, c := range e.Children {
			other, err := idx.eval(c)
			if err != nil {
				return nil, err
			}
			set = unionSorted(set, other)
		}
		return set, nil

	case ExprNot:
		if len(e.Children) != 1 {
			return nil, &QueryError{Message: "NOT takes exactly one operand"}
		}
		set, err := idx.eval(e.Children[0])
		if err != nil {
			return nil, err
		}
		return diffSorted(idx.universe, set), nil

	default:
		return nil, &QueryError{Message: fmt.Sprintf("unknown expression type %q", e.Type)}
	}
}

// termSet resolves a single term against its inverted index.
func (idx *Index) termSet(e *Expr) ([]int, error) {
	switch e.Term {
	case TermElement:
		if !idx.knownElements[e.Arg] {
			return nil, &QueryError{Message: fmt.Sprintf("unknown data element %q", e.Arg)}
		}
		return idx.byElement[e.Arg], nil

	case TermCategory:
		set, ok := idx.byCategory[e.Arg]
		if !ok {
			return nil, &QueryError{Message: fmt.Sprintf("unknown category %q", e.Arg)}
		}
		return set, nil

	case TermObligation:
		level, err := catalog.ParseObligation(e.Arg)
		if err != nil {
			return nil, &QueryError{Message: err.Error()}
		}
		return idx.byObligation[level], nil

	default:
		return nil, &QueryError{Message: fmt.Sprintf("unknown term kind %q", e.Term)}
	}
}

// rankByRelevance reorders a result set by the number of predicate terms each
// rule matches, descending; ties fall back to ascending identifier (arena)
// order, which a stable sort on the already-sorted set preserves.
func (idx *Index) rankByRelevance(expr *Expr, set []int) []int {
	terms := expr.terms(nil)

	score := make(map[int]int, len(set))
	for _, t := range terms {
		tset, err := idx.termSet(t)
		if err != nil {
			continue
		}
		for _, ruleIdx := range tset {
			score[ruleIdx]++
		}
	}

	ranked := append([]int(nil), set...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return score[ranked[i]] > score[ranked[j]]
	})
	return ranked
}

// intersectSorted intersects two sorted int slices.
func intersectSorted(a, b []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// unionSorted merges two sorted, deduplicated int slices.
func unionSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// diffSorted returns the members of a absent from b; both sorted.
func diffSorted(a, b []int) []int {
	var out []int
	i, j := 0, 0
	for i < len(a) {
		if j >= len(b) || a[i] < b[j] {
			out = append(out, a[i])
			i++
		} else if a[i] > b[j] {
			j++
		} else {
			i++
			j++
		}
	}
	return out
}

// dedupSorted sorts a slice and removes duplicates in place.
func dedupSorted(s []int) []int {
	sort.Ints(s)
	out := s[:0]
	for _, v := range s {
		if len(out) == 0 || v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}
