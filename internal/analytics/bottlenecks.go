package analytics

import (
	"sort"

	"github.com/taskloom/taskloom/internal/graph"
	"github.com/taskloom/taskloom/internal/item"
)

// Bottleneck describes one node whose completion would unblock a
// disproportionate amount of downstream work.
type Bottleneck struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Status       item.Status   `json:"status"`
	Priority     item.Priority `json:"priority"`
	BlocksCount  int           `json:"blocks_count"`
	ImpactScore  float64       `json:"impact_score"`
	BlockedTasks []string      `json:"blocked_tasks"`
}

// FindBottlenecks ranks non-done nodes by weighted blocking impact:
// full weight for directly blocked work, a discounted weight for
// transitively blocked work. Nodes directly blocking fewer than
// minImpact others are filtered out. Ordering is total: impact score
// descending, then transitive count descending, then id ascending.
func (e *Engine) FindBottlenecks(s *graph.Snapshot, topN, minImpact int) []Bottleneck {
	if topN <= 0 {
		topN = 5
	}
	if minImpact < 0 {
		minImpact = 0
	}

	cache := make(reachCache)
	type scored struct {
		Bottleneck
		transitiveCount int
	}
	var results []scored

	for _, id := range s.IDs() {
		w, _ := s.Node(id)
		if isDone(w.Status) {
			continue
		}

		direct := s.Forward(id)
		if len(direct) < minImpact {
			continue
		}

		directSet := make(map[string]bool, len(direct))
		impact := 0.0
		for _, d := range direct {
			directSet[d] = true
			if dw, ok := s.Node(d); ok {
				impact += e.weights.priorityWeight(dw.Priority)
			}
		}

		transitive := cache.reachableFrom(s, id)
		transitiveCount := 0
		for tid := range transitive {
			tw, ok := s.Node(tid)
			if !ok || isDone(tw.Status) {
				continue
			}
			transitiveCount++
			if !directSet[tid] {
				impact += e.weights.TransitiveFactor * e.weights.priorityWeight(tw.Priority)
			}
		}

		blocked := make([]string, len(direct))
		copy(blocked, direct)

		results = append(results, scored{
			Bottleneck: Bottleneck{
				ID:           id,
				Title:        w.Title,
				Status:       w.Status,
				Priority:     w.Priority,
				BlocksCount:  len(direct),
				ImpactScore:  impact,
				BlockedTasks: blocked,
			},
			transitiveCount: transitiveCount,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].ImpactScore != results[j].ImpactScore {
			return results[i].ImpactScore > results[j].ImpactScore
		}
		if results[i].transitiveCount != results[j].transitiveCount {
			return results[i].transitiveCount > results[j].transitiveCount
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > topN {
		results = results[:topN]
	}
	out := make([]Bottleneck, len(results))
	for i, r := range results {
		out[i] = r.Bottleneck
	}
	return out
}
