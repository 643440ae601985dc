package analytics

import (
	"fmt"
	"sort"

	"github.com/taskloom/taskloom/internal/graph"
	"github.com/taskloom/taskloom/internal/item"
)

// Recommendation is one suggested next piece of work, with the scored
// reasons it was chosen.
type Recommendation struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Priority       item.Priority `json:"priority"`
	Score          float64       `json:"score"`
	Reasons        []string      `json:"reasons"`
	EstimatedHours *float64      `json:"estimated_hours,omitempty"`
	UnlocksCount   int           `json:"unlocks_count"`
	Unlocks        []string      `json:"unlocks"`
}

// RecommendNextWork scores the truly unblocked todo nodes (layer 0 of
// GetParallelWork) and returns the best candidates, up to
// max(agentCount, lookahead). Score favors priority, then how much
// work the node unlocks, minus a capped effort penalty. Ties break by
// unlock count descending, then id ascending.
func (e *Engine) RecommendNextWork(s *graph.Snapshot, agentCount, lookahead int) []Recommendation {
	if lookahead <= 0 {
		lookahead = 5
	}
	limit := agentCount
	if lookahead > limit {
		limit = lookahead
	}

	ready := e.GetParallelWork(s, 0, item.StatusTodo).ReadyNow

	recs := make([]Recommendation, 0, len(ready))
	for _, id := range ready {
		w, ok := s.Node(id)
		if !ok {
			continue
		}

		unlocks := s.Forward(id)
		unlocksCount := len(unlocks)

		penalty := 0.0
		if w.EstimatedHours != nil {
			penalty = *w.EstimatedHours / e.weights.EffortDivisor
			if penalty > e.weights.EffortPenaltyCap {
				penalty = e.weights.EffortPenaltyCap
			}
		}
		score := e.weights.PriorityBoost*e.weights.priorityWeight(w.Priority) +
			e.weights.UnlockBoost*float64(unlocksCount) -
			penalty

		reasons := []string{}
		if w.Priority == item.PriorityHigh || w.Priority == item.PriorityCritical {
			reasons = append(reasons, "high priority")
		}
		if unlocksCount >= 3 {
			reasons = append(reasons, fmt.Sprintf("unblocks %d tasks", unlocksCount))
		}
		if len(s.Backward(id)) == 0 {
			reasons = append(reasons, "ready to start now")
		}

		unlocksCopy := make([]string, unlocksCount)
		copy(unlocksCopy, unlocks)

		recs = append(recs, Recommendation{
			ID:             id,
			Title:          w.Title,
			Priority:       w.Priority,
			Score:          score,
			Reasons:        reasons,
			EstimatedHours: w.EstimatedHours,
			UnlocksCount:   unlocksCount,
			Unlocks:        unlocksCopy,
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		if recs[i].UnlocksCount != recs[j].UnlocksCount {
			return recs[i].UnlocksCount > recs[j].UnlocksCount
		}
		return recs[i].ID < recs[j].ID
	})

	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}
