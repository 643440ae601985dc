// Package analytics answers five questions over the dependency graph:
// what blocks the most work (bottlenecks), what can run in parallel,
// what to work on next (recommendations), what structural risks exist
// (cycles, single points of failure, orphans), and what completing a
// given item would unblock (impact).
//
// Every operation is a pure function over an immutable graph.Snapshot:
// no writes, no retries, no I/O. Results are fully ordered with
// documented tie-breaks, so the same snapshot always produces the same
// output.
package analytics

import (
	"github.com/taskloom/taskloom/internal/item"
)

// Weights holds the scoring coefficients used across operations. The
// defaults match the documented formulas; deployments that need
// different emphasis tune them via configuration rather than code.
type Weights struct {
	// Priority weights.
	Critical float64 `yaml:"critical"`
	High     float64 `yaml:"high"`
	Medium   float64 `yaml:"medium"`
	Low      float64 `yaml:"low"`

	// TransitiveFactor discounts transitively blocked work relative to
	// directly blocked work in bottleneck impact.
	TransitiveFactor float64 `yaml:"transitive_factor"`

	// Recommendation scoring: score = PriorityBoost*weight +
	// UnlockBoost*unlocks - min(EffortPenaltyCap, effort/EffortDivisor).
	PriorityBoost    float64 `yaml:"priority_boost"`
	UnlockBoost      float64 `yaml:"unlock_boost"`
	EffortDivisor    float64 `yaml:"effort_divisor"`
	EffortPenaltyCap float64 `yaml:"effort_penalty_cap"`
}

// DefaultWeights returns the standard coefficients: priorities 4/3/2/1,
// transitive factor 0.5, recommendation terms 10/2 with effort
// penalty min(5, hours/4).
func DefaultWeights() Weights {
	return Weights{
		Critical:         4,
		High:             3,
		Medium:           2,
		Low:              1,
		TransitiveFactor: 0.5,
		PriorityBoost:    10,
		UnlockBoost:      2,
		EffortDivisor:    4,
		EffortPenaltyCap: 5,
	}
}

// priorityWeight maps a priority enum to its configured coefficient.
func (w Weights) priorityWeight(p item.Priority) float64 {
	switch p {
	case item.PriorityCritical:
		return w.Critical
	case item.PriorityHigh:
		return w.High
	case item.PriorityMedium:
		return w.Medium
	default:
		return w.Low
	}
}

// Engine runs the analytics operations with a fixed set of weights.
// It holds no graph state; snapshots are passed per call and may be
// shared across concurrent calls.
type Engine struct {
	weights Weights
}

// New creates an Engine. Zero-valued weights are replaced with the
// defaults so an empty config section behaves sanely.
func New(w Weights) *Engine {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	return &Engine{weights: w}
}

func isDone(s item.Status) bool {
	return s == item.StatusDone
}
