package graph

import "regula-hq/regula/pkg/catalog"

// DFS coloring for cycle detection.
const (
	white = iota // not yet visited
	gray         // on the current DFS stack
	black        // fully explored
)

// checkAcyclic runs a three-color depth-first traversal over one edge-kind
// subgraph. A back-edge to a gray node is a cycle; the returned CycleError
// carries the rule-identifier path around it.
func (c *Candidate) checkAcyclic(kind catalog.EdgeKind, adj [][]int) error {
	color := make([]int, len(c.rules))
	stack := make([]int, 0, len(c.rules))

	var visit func(u int) *CycleError
	visit = func(u int) *CycleError {
		color[u] = gray
		stack = append(stack, u)

		for _, v := range adj[u] {
			switch color[v] {
			case gray:
				return c.cycleError(kind, stack, v)
			case white:
				if err := visit(v); err != nil {
					return err
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[u] = black
		return nil
	}

	for u := range c.rules {
		if color[u] == white {
			if err := visit(u); err != nil {
				return err
			}
		}
	}
	return nil
}

// cycleError extracts the cycle from the DFS stack, starting at the first
// occurrence of the back-edge target and closing the loop.
func (c *Candidate) cycleError(kind catalog.EdgeKind, stack []int, target int) *CycleError {
	start := 0
	for i, u := range stack {
		if u == target {
			start = i
			break
		}
	}

	path := make([]string, 0, len(stack)-start+1)
	for _, u := range stack[start:] {
		path = append(path, c.rules[u].ID)
	}
	path = append(path, c.rules[target].ID)

	return &CycleError{Kind: kind, Path: path}
}
