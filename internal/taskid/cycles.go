package taskid

// FindCycles runs a depth-first search from start over deps, where deps maps
// a node to the nodes it depends on. Each time the search follows an edge
// into a node that is still on the recursion stack, that node is reported.
// A node can be reported more than once. The graph is not modified.
func FindCycles[K comparable](start K, deps map[K][]K) []K {
	s := newCycleSearch(deps)
	s.visit(start)
	targets := make([]K, len(s.edges))
	for i, e := range s.edges {
		targets[i] = e.To
	}
	return targets
}

// BackEdge is an edge From -> To that closes a cycle. Path is the cycle as
// walked, starting at To and ending at From.
type BackEdge[K comparable] struct {
	From K
	To   K
	Path []K
}

// FindAllCycles searches from every node in order that has not been reached
// yet, sharing one visited set, and returns every cycle-closing edge. Removing
// all returned edges leaves the graph acyclic.
func FindAllCycles[K comparable](order []K, deps map[K][]K) []BackEdge[K] {
	s := newCycleSearch(deps)
	for _, n := range order {
		if !s.visited[n] {
			s.visit(n)
		}
	}
	return s.edges
}

type cycleSearch[K comparable] struct {
	deps    map[K][]K
	visited map[K]bool
	onStack map[K]bool
	path    []K
	edges   []BackEdge[K]
}

func newCycleSearch[K comparable](deps map[K][]K) *cycleSearch[K] {
	return &cycleSearch[K]{
		deps:    deps,
		visited: make(map[K]bool),
		onStack: make(map[K]bool),
	}
}

func (s *cycleSearch[K]) visit(node K) {
	s.visited[node] = true
	s.onStack[node] = true
	s.path = append(s.path, node)

	for _, dep := range s.deps[node] {
		switch {
		case !s.visited[dep]:
			s.visit(dep)
		case s.onStack[dep]:
			start := 0
			for i, p := range s.path {
				if p == dep {
					start = i
					break
				}
			}
			cycle := append([]K(nil), s.path[start:]...)
			s.edges = append(s.edges, BackEdge[K]{From: node, To: dep, Path: cycle})
		}
	}

	s.path = s.path[:len(s.path)-1]
	s.onStack[node] = false
}
