package graph

import (
	"sort"

	"regula-hq/regula/pkg/catalog"
)

// Resolved is a fully derived rule graph: the candidate arena plus the
// requires closures, the supersedes precedence relation, the conflict groups
// and the refines ancestry. It is immutable after Resolve returns and safe
// for concurrent readers.
type Resolved struct {
	cand *Candidate

	// requiresClosure[i] is the transitive set of arena indices rule i
	// requires, sorted ascending (identifier order).
	requiresClosure [][]int

	// supersedesDesc[i] is the set of arena indices reachable from rule i
	// via supersedes edges, sorted ascending. Rule i takes precedence over
	// every member.
	supersedesDesc [][]int

	// conflictGroups are the connected components of the conflicts relation
	// with at least two members, each sorted ascending.
	conflictGroups [][]int

	// groupOf maps an arena index to its conflict group, or -1.
	groupOf []int

	// refinesAncestors[i] is the transitive set of rules that rule i
	// refines, sorted ascending. Used only for search inheritance.
	refinesAncestors [][]int
}

// Resolve derives the query-time structures from a validated candidate.
//
// The requires and supersedes closures are computed by memoized traversal in
// reverse topological order, so the whole pass is O(V+E) set unions amortized
// over all rules rather than a traversal per rule. Resolve fails only on the
// guarded precedence invariant; a candidate that passed Build cannot trip it.
func Resolve(c *Candidate) (*Resolved, error) {
	r := &Resolved{
		cand:             c,
		requiresClosure:  closures(c.requires, len(c.rules)),
		supersedesDesc:   closures(c.supersedes, len(c.rules)),
		refinesAncestors: reachable(c.refines, len(c.rules)),
	}

	// Guard: a rule inside its own supersedes closure means two rules claim
	// precedence over each other through different paths. Unreachable after
	// the acyclicity check in Build.
	for i := range c.rules {
		if containsInt(r.supersedesDesc[i], i) {
			return nil, &InconsistentPrecedenceError{RuleID: c.rules[i].ID}
		}
	}

	r.conflictGroups, r.groupOf = conflictComponents(c.conflicts, len(c.rules))
	return r, nil
}

// Rules returns the rule arena in ascending identifier order.
func (r *Resolved) Rules() []catalog.Rule {
	return r.cand.rules
}

// Rule returns the rule at the given arena index.
func (r *Resolved) Rule(i int) *catalog.Rule {
	return &r.cand.rules[i]
}

// Lookup returns the arena index of the rule with the given identifier.
func (r *Resolved) Lookup(id string) (int, bool) {
	return r.cand.Lookup(id)
}

// Len returns the number of rules in the graph.
func (r *Resolved) Len() int {
	return len(r.cand.rules)
}

// RequiresClosure returns the transitive requires set of rule i as sorted
// arena indices. The returned slice is shared; callers must not modify it.
func (r *Resolved) RequiresClosure(i int) []int {
	return r.requiresClosure[i]
}

// RefinesAncestors returns the transitive set of rules that rule i refines.
func (r *Resolved) RefinesAncestors(i int) []int {
	return r.refinesAncestors[i]
}

// ConflictGroups returns the conflict components with at least two members.
func (r *Resolved) ConflictGroups() [][]int {
	return r.conflictGroups
}

// ConflictGroupOf returns the conflict group containing rule i, or nil.
func (r *Resolved) ConflictGroupOf(i int) []int {
	if r.groupOf[i] < 0 {
		return nil
	}
	return r.conflictGroups[r.groupOf[i]]
}

// Precedes reports the precedence between rules a and b under supersedes.
// The winner is the supersedes-ancestor; comparable is false for pairs not
// connected by any supersedes path.
func (r *Resolved) Precedes(a, b int) (winner int, comparable bool) {
	if containsInt(r.supersedesDesc[a], b) {
		return a, true
	}
	if containsInt(r.supersedesDesc[b], a) {
		return b, true
	}
	return 0, false
}

// closures computes, for every node of a DAG, the transitive reachable set.
// Nodes are processed in reverse topological order so each closure is the
// union of the already-final closures of its out-neighbors.
func closures(adj [][]int, n int) [][]int {
	order := topoOrder(adj, n)
	closure := make([][]int, n)

	for k := len(order) - 1; k >= 0; k-- {
		u := order[k]
		set := []int{}
		for _, v := range adj[u] {
			set = unionSorted(set, closure[v])
			set = insertSorted(set, v)
		}
		closure[u] = set
	}
	return closure
}

// topoOrder returns a topological ordering of a DAG by DFS post-order.
func topoOrder(adj [][]int, n int) []int {
	visited := make([]bool, n)
	order := make([]int, 0, n)

	var visit func(u int)
	visit = func(u int) {
		visited[u] = true
		for _, v := range adj[u] {
			if !visited[v] {
				visit(v)
			}
		}
		order = append(order, u)
	}

	for u := 0; u < n; u++ {
		if !visited[u] {
			visit(u)
		}
	}

	// Post-order is reverse topological; flip it.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// reachable computes transitive reachability per node without assuming the
// subgraph is acyclic. Refines edges are not validated for cycles, so this
// uses a plain BFS per node with a visited set.
func reachable(adj [][]int, n int) [][]int {
	out := make([][]int, n)
	for u := 0; u < n; u++ {
		visited := map[int]bool{u: true}
		queue := append([]int(nil), adj[u]...)
		var set []int
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			if visited[v] {
				continue
			}
			visited[v] = true
			set = append(set, v)
			queue = append(queue, adj[v]...)
		}
		sort.Ints(set)
		out[u] = set
	}
	return out
}

// conflictComponents groups rules into connected components of the symmetric
// conflicts relation. Components with fewer than two members are dropped.
func conflictComponents(adj [][]int, n int) (groups [][]int, groupOf []int) {
	groupOf = make([]int, n)
	for i := range groupOf {
		groupOf[i] = -1
	}

	for u := 0; u < n; u++ {
		if groupOf[u] >= 0 || len(adj[u]) == 0 {
			continue
		}

		var member []int
		stack := []int{u}
		id := len(groups)
		groupOf[u] = id
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			member = append(member, v)
			for _, w := range adj[v] {
				if groupOf[w] < 0 {
					groupOf[w] = id
					stack = append(stack, w)
				}
			}
		}

		sort.Ints(member)
		groups = append(groups, member)
	}
	return groups, groupOf
}

// unionSorted merges two sorted, deduplicated int slices.
func unionSorted(a, b []int) []int {
	if len(a) == 0 {
		return append([]int(nil), b...)
	}
	if len(b) == 0 {
		return a
	}
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

// insertSorted inserts v into a sorted, deduplicated int slice.
func insertSorted(s []int, v int) []int {
	i := sort.SearchInts(s, v)
	if i < len(s) && s[i] == v {
		return s
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// containsInt reports whether a sorted int slice contains v.
func containsInt(s []int, v int) bool {
	i := sort.SearchInts(s, v)
	return i < len(s) && s[i] == v
}
