package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/taskloom/taskloom/internal/graph"
	"github.com/taskloom/taskloom/internal/item"
)

// RiskTask is a single point of failure: a node blocking enough work
// that slipping on it stalls a meaningful slice of the graph.
type RiskTask struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Priority    item.Priority `json:"priority"`
	BlocksCount int           `json:"blocks_count"`
	RiskScore   float64       `json:"risk_score"`
	RiskFactors []string      `json:"risk_factors"`
}

// RiskReport is the structural risk assessment: SPOFs, dependency
// cycles in canonical form, orphaned work, and generated guidance.
type RiskReport struct {
	HighRiskTasks        []RiskTask `json:"high_risk_tasks"`
	CircularDependencies [][]string `json:"circular_dependencies"`
	OrphanedTasks        []string   `json:"orphaned_tasks"`
	Recommendations      []string   `json:"recommendations"`
}

// AssessRisks scans the snapshot for three structural problems:
// nodes blocking at least spofThreshold others, dependency cycles
// (reported once each, starting from the lexicographically smallest
// member), and orphans with no relations at all. Cycles are a
// first-class result here, never an error.
func (e *Engine) AssessRisks(s *graph.Snapshot, spofThreshold int) RiskReport {
	if spofThreshold <= 0 {
		spofThreshold = 2
	}

	report := RiskReport{
		HighRiskTasks:        []RiskTask{},
		CircularDependencies: [][]string{},
		OrphanedTasks:        []string{},
		Recommendations:      []string{},
	}

	for _, id := range s.IDs() {
		w, _ := s.Node(id)
		if isDone(w.Status) {
			continue
		}

		direct := s.Forward(id)
		if len(direct) >= spofThreshold {
			factors := []string{
				fmt.Sprintf("single point of failure: blocks %d tasks", len(direct)),
			}
			if hasNonDoneBlocker(s, id) &&
				(w.Priority == item.PriorityHigh || w.Priority == item.PriorityCritical) {
				factors = append(factors, "high-priority work is itself blocked")
			}
			report.HighRiskTasks = append(report.HighRiskTasks, RiskTask{
				ID:          id,
				Title:       w.Title,
				Priority:    w.Priority,
				BlocksCount: len(direct),
				RiskScore:   float64(len(direct)) * e.weights.priorityWeight(w.Priority),
				RiskFactors: factors,
			})
		}

		if len(direct) == 0 && len(s.Backward(id)) == 0 && !s.HasParentLink(id) {
			report.OrphanedTasks = append(report.OrphanedTasks, id)
		}
	}

	sort.Slice(report.HighRiskTasks, func(i, j int) bool {
		if report.HighRiskTasks[i].RiskScore != report.HighRiskTasks[j].RiskScore {
			return report.HighRiskTasks[i].RiskScore > report.HighRiskTasks[j].RiskScore
		}
		return report.HighRiskTasks[i].ID < report.HighRiskTasks[j].ID
	})

	report.CircularDependencies = detectCycles(s)

	for _, rt := range report.HighRiskTasks {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Prioritize %s (%s): completing it unblocks %d tasks", rt.ID, rt.Title, rt.BlocksCount))
	}
	for _, cycle := range report.CircularDependencies {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("Break the dependency cycle %s", strings.Join(cycle, " -> ")))
	}

	return report
}

func hasNonDoneBlocker(s *graph.Snapshot, id string) bool {
	for _, blocker := range s.Backward(id) {
		if w, ok := s.Node(blocker); ok && !isDone(w.Status) {
			return true
		}
	}
	return false
}

// detectCycles runs a DFS with a recursion stack over the forward
// edges and canonicalizes each cycle to start at its lexicographically
// smallest member, so the same cycle found from different entry points
// is reported exactly once.
func detectCycles(s *graph.Snapshot) [][]string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var found [][]string

	var dfs func(id string, path []string)
	dfs = func(id string, path []string) {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, next := range s.Forward(id) {
			if !visited[next] {
				dfs(next, path)
			} else if onStack[next] {
				// Extract the cycle portion of the current path.
				start := -1
				for i, n := range path {
					if n == next {
						start = i
						break
					}
				}
				if start >= 0 {
					cycle := make([]string, len(path)-start)
					copy(cycle, path[start:])
					found = append(found, cycle)
				}
			}
		}

		onStack[id] = false
	}

	for _, id := range s.IDs() {
		if !visited[id] {
			dfs(id, nil)
		}
	}

	// Deduplicate: the same cycle can surface from multiple entry
	// points; canonical rotation makes duplicates identical.
	seen := make(map[string]bool)
	var unique [][]string
	for _, cycle := range found {
		canon := canonicalCycle(cycle)
		key := strings.Join(canon, "\x00")
		if !seen[key] {
			seen[key] = true
			unique = append(unique, canon)
		}
	}
	sort.Slice(unique, func(i, j int) bool {
		return unique[i][0] < unique[j][0]
	})
	if unique == nil {
		unique = [][]string{}
	}
	return unique
}

// canonicalCycle rotates a cycle to start with its lexicographically
// smallest member, preserving edge order.
func canonicalCycle(cycle []string) []string {
	if len(cycle) == 0 {
		return cycle
	}
	minIdx := 0
	for i, id := range cycle {
		if id < cycle[minIdx] {
			minIdx = i
		}
	}
	out := make([]string, len(cycle))
	for i := range cycle {
		out[i] = cycle[(minIdx+i)%len(cycle)]
	}
	return out
}
