package analytics

import (
	"github.com/taskloom/taskloom/internal/graph"
	"github.com/taskloom/taskloom/internal/item"
)

// Impact quantifies what completing one node would unblock: its
// direct dependents, the full transitive downstream count, and that
// count as a percentage of all other unfinished work.
type Impact struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	DirectDependents int     `json:"direct_dependents"`
	TotalImpact      int     `json:"total_impact"`
	CompletionImpact float64 `json:"completion_impact"`
}

// AnalyzeImpact computes the downstream impact of nodeID. Returns
// NotFoundError if the node is absent from the snapshot.
func (e *Engine) AnalyzeImpact(s *graph.Snapshot, nodeID string) (*Impact, error) {
	w, ok := s.Node(nodeID)
	if !ok {
		return nil, &item.NotFoundError{ID: nodeID}
	}

	cache := make(reachCache)
	total := countNonDone(s, cache.reachableFrom(s, nodeID))

	denom := s.NonDoneCount() - 1
	if denom < 1 {
		denom = 1
	}

	return &Impact{
		ID:               nodeID,
		Title:            w.Title,
		DirectDependents: len(s.Forward(nodeID)),
		TotalImpact:      total,
		CompletionImpact: float64(total) / float64(denom) * 100,
	}, nil
}
