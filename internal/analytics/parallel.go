package analytics

import (
	"sort"

	"github.com/taskloom/taskloom/internal/graph"
	"github.com/taskloom/taskloom/internal/item"
)

// ParallelWork is the layering result: which nodes can start right
// now, how wide the graph gets, and which nodes layering could never
// reach (cycle members, reported in full by AssessRisks).
type ParallelWork struct {
	MaxParallelism int      `json:"max_parallelism"`
	ReadyNow       []string `json:"ready_now"`
	TotalReady     int      `json:"total_ready"`
	LevelCount     int      `json:"level_count"`
	NextLevel      []string `json:"next_level"`
	Excluded       []string `json:"excluded"`
}

// GetParallelWork peels the graph into topological layers, Kahn
// style: layer 0 is every matching node with no unresolved blocker,
// each following layer is what becomes ready once the previous layers
// complete. Cycle members never become ready and end up in Excluded
// instead of looping the computation.
func (e *Engine) GetParallelWork(s *graph.Snapshot, maxAgents int, statusFilter item.Status) ParallelWork {
	if statusFilter == "" {
		statusFilter = item.StatusTodo
	}

	// Unresolved = every non-done node. Done blockers are already
	// satisfied; done targets need no scheduling.
	unresolved := make(map[string]bool)
	for _, id := range s.IDs() {
		if w, _ := s.Node(id); !isDone(w.Status) {
			unresolved[id] = true
		}
	}

	var layers [][]string
	for {
		var ready []string
		for _, id := range s.IDs() {
			if !unresolved[id] {
				continue
			}
			w, _ := s.Node(id)
			if w.Status != statusFilter {
				continue
			}
			free := true
			for _, blocker := range s.Backward(id) {
				if unresolved[blocker] {
					free = false
					break
				}
			}
			if free {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			break
		}
		sort.Strings(ready)
		layers = append(layers, ready)
		for _, id := range ready {
			delete(unresolved, id)
		}
	}

	// Matching nodes still unresolved sit inside (or behind) a cycle,
	// or behind work outside the status filter.
	excluded := []string{}
	for id := range unresolved {
		if w, _ := s.Node(id); w.Status == statusFilter {
			excluded = append(excluded, id)
		}
	}
	sort.Strings(excluded)

	result := ParallelWork{
		ReadyNow:  []string{},
		NextLevel: []string{},
		Excluded:  excluded,
	}
	if len(layers) > 0 {
		result.ReadyNow = layers[0]
		result.TotalReady = len(layers[0])
		result.LevelCount = len(layers)
	}
	if len(layers) > 1 {
		result.NextLevel = layers[1]
	}
	for _, layer := range layers {
		if len(layer) > result.MaxParallelism {
			result.MaxParallelism = len(layer)
		}
	}
	if maxAgents > 0 && result.MaxParallelism > maxAgents {
		result.MaxParallelism = maxAgents
	}
	return result
}
