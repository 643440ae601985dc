package analytics

import (
	"github.com/taskloom/taskloom/internal/graph"
)

// reachCache memoizes transitive reachability across one analytics
// call, keeping find_bottlenecks near O(V+E) per node instead of a
// full traversal per node on deep graphs.
type reachCache map[string]map[string]bool

// reachableFrom returns every node reachable from start by following
// forward (blocks) edges, excluding start itself. Done nodes are
// traversed as pass-through and included in the set; callers filter
// them when counting. Safe on cyclic graphs: visited bookkeeping
// bounds the walk, and only fully computed sets enter the cache.
func (c reachCache) reachableFrom(s *graph.Snapshot, start string) map[string]bool {
	if cached, ok := c[start]; ok {
		return cached
	}

	reached := make(map[string]bool)
	stack := []string{start}
	visited := map[string]bool{start: true}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, next := range s.Forward(cur) {
			if visited[next] {
				continue
			}
			visited[next] = true
			reached[next] = true

			// A completed cache entry is the full reach set of next:
			// union it instead of re-walking that subgraph.
			if prior, ok := c[next]; ok {
				for id := range prior {
					if !visited[id] {
						visited[id] = true
						reached[id] = true
					}
				}
				continue
			}
			stack = append(stack, next)
		}
	}

	delete(reached, start)
	c[start] = reached
	return reached
}

// countNonDone returns how many ids in the set are not done.
func countNonDone(s *graph.Snapshot, set map[string]bool) int {
	n := 0
	for id := range set {
		if w, ok := s.Node(id); ok && !isDone(w.Status) {
			n++
		}
	}
	return n
}
