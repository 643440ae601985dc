// Package graph provides the immutable point-in-time Snapshot consumed
// by the analytics engine.
//
// A Snapshot holds a node map plus forward/backward adjacency built
// from blocks edges only. parent_of edges are excluded from adjacency
// and recorded as a per-node flag, used solely for orphan detection.
// Once built, a snapshot is never mutated: index changes after
// construction cannot affect it, so it is safe to share across
// concurrent analytics calls.
package graph

import (
	"sort"

	"github.com/taskloom/taskloom/internal/item"
)

// Snapshot is an in-memory adjacency view of the dependency graph.
type Snapshot struct {
	nodes        map[string]item.WorkItem
	forward      map[string][]string // id -> ids it blocks, sorted
	backward     map[string][]string // id -> ids blocking it, sorted
	parentLinked map[string]bool     // id participates in any parent_of edge
}

// New builds a snapshot from an item list and an edge list. Edges whose
// endpoints are missing from the item list are skipped, so the
// no-dangling-edges invariant holds for every snapshot regardless of
// input. Duplicate edges collapse to one.
func New(items []item.WorkItem, edges []item.Edge) *Snapshot {
	s := &Snapshot{
		nodes:        make(map[string]item.WorkItem, len(items)),
		forward:      make(map[string][]string),
		backward:     make(map[string][]string),
		parentLinked: make(map[string]bool),
	}

	for _, w := range items {
		s.nodes[w.ID] = w
	}

	seen := make(map[[2]string]bool)
	for _, e := range edges {
		if _, ok := s.nodes[e.From]; !ok {
			continue
		}
		if _, ok := s.nodes[e.To]; !ok {
			continue
		}
		if e.Kind == item.KindParentOf {
			s.parentLinked[e.From] = true
			s.parentLinked[e.To] = true
			continue
		}
		if e.Kind != item.KindBlocks {
			continue
		}
		key := [2]string{e.From, e.To}
		if seen[key] {
			continue
		}
		seen[key] = true
		s.forward[e.From] = append(s.forward[e.From], e.To)
		s.backward[e.To] = append(s.backward[e.To], e.From)
	}

	for k := range s.forward {
		sort.Strings(s.forward[k])
	}
	for k := range s.backward {
		sort.Strings(s.backward[k])
	}

	return s
}

// Node returns the work item for id, and whether it exists.
func (s *Snapshot) Node(id string) (item.WorkItem, bool) {
	w, ok := s.nodes[id]
	return w, ok
}

// IDs returns every node id, sorted. The slice is freshly allocated.
func (s *Snapshot) IDs() []string {
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Forward returns the sorted ids directly blocked by id. Callers must
// treat the returned slice as read-only.
func (s *Snapshot) Forward(id string) []string {
	return s.forward[id]
}

// Backward returns the sorted ids directly blocking id. Callers must
// treat the returned slice as read-only.
func (s *Snapshot) Backward(id string) []string {
	return s.backward[id]
}

// HasParentLink reports whether id participates in any parent_of edge,
// in either direction.
func (s *Snapshot) HasParentLink(id string) bool {
	return s.parentLinked[id]
}

// Len returns the number of nodes.
func (s *Snapshot) Len() int {
	return len(s.nodes)
}

// NonDoneCount returns the number of nodes whose status is not done.
func (s *Snapshot) NonDoneCount() int {
	n := 0
	for _, w := range s.nodes {
		if w.Status != item.StatusDone {
			n++
		}
	}
	return n
}
