// Package item defines the core work-item model shared by the store,
// the graph index, and the analytics engine.
//
// A WorkItem is a node in the dependency graph; an Edge is a directed
// relation between two items. Only "blocks" edges participate in
// dependency analytics — "parent_of" expresses hierarchical grouping
// and is used for display and orphan detection only.
//
// Status, priority, type, and edge kind are closed string enums with
// explicit validation so unrecognized values are rejected at the
// store/index boundary instead of leaking into analytics.
package item

import (
	"fmt"
	"time"
)

// --- Status enum ---

// Status tracks the lifecycle of a work item. Transitions are
// caller-driven; nothing in this module infers them.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusBlocked    Status = "blocked"
	StatusDone       Status = "done"
)

var validStatuses = map[Status]bool{
	StatusTodo:       true,
	StatusInProgress: true,
	StatusBlocked:    true,
	StatusDone:       true,
}

// ValidateStatus returns an error if the status is not recognized.
func ValidateStatus(s Status) error {
	if !validStatuses[s] {
		return &ValidationError{Field: "status", Msg: fmt.Sprintf("invalid status %q: must be one of: todo, in-progress, blocked, done", s)}
	}
	return nil
}

// --- Priority enum ---

// Priority orders items by urgency. Weight converts it to the numeric
// coefficient used by the analytics scoring formulas.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

var validPriorities = map[Priority]bool{
	PriorityLow:      true,
	PriorityMedium:   true,
	PriorityHigh:     true,
	PriorityCritical: true,
}

// ValidatePriority returns an error if the priority is not recognized.
func ValidatePriority(p Priority) error {
	if !validPriorities[p] {
		return &ValidationError{Field: "priority", Msg: fmt.Sprintf("invalid priority %q: must be one of: low, medium, high, critical", p)}
	}
	return nil
}

// Weight returns the numeric weight of a priority: critical=4, high=3,
// medium=2, low=1. Unknown priorities weigh 1 (they should never pass
// validation in the first place).
func (p Priority) Weight() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// --- Item type enum ---

// Type categorizes what kind of work an item represents.
type Type string

const (
	TypeFeature Type = "feature"
	TypeBug     Type = "bug"
	TypeTrack   Type = "track"
	TypeEpic    Type = "epic"
)

var validTypes = map[Type]bool{
	TypeFeature: true,
	TypeBug:     true,
	TypeTrack:   true,
	TypeEpic:    true,
}

// ValidateType returns an error if the item type is not recognized.
func ValidateType(t Type) error {
	if !validTypes[t] {
		return &ValidationError{Field: "item_type", Msg: fmt.Sprintf("invalid item type %q: must be one of: feature, bug, track, epic", t)}
	}
	return nil
}

// --- Edge kind enum ---

// EdgeKind is the relation type of a directed edge. blocks(a→b) means
// b cannot start until a is done; the blocked_by view is derived, never
// stored. parent_of groups items hierarchically (track → feature).
type EdgeKind string

const (
	KindBlocks   EdgeKind = "blocks"
	KindParentOf EdgeKind = "parent_of"
)

var validKinds = map[EdgeKind]bool{
	KindBlocks:   true,
	KindParentOf: true,
}

// ValidateKind returns an error if the edge kind is not recognized.
func ValidateKind(k EdgeKind) error {
	if !validKinds[k] {
		return &ValidationError{Field: "kind", Msg: fmt.Sprintf("invalid edge kind %q: must be one of: blocks, parent_of", k)}
	}
	return nil
}

// --- Core data structures ---

// WorkItem is a trackable unit of work, persisted as one document.
// Timestamps are RFC3339 UTC strings; UpdatedAt is never earlier than
// CreatedAt.
type WorkItem struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Status         Status   `json:"status"`
	Priority       Priority `json:"priority"`
	Type           Type     `json:"item_type"`
	EstimatedHours *float64 `json:"estimated_effort_hours,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// Validate checks every enum field and the effort estimate.
func (w *WorkItem) Validate() error {
	if w.ID == "" {
		return &ValidationError{Field: "id", Msg: "id must not be empty"}
	}
	if err := ValidateStatus(w.Status); err != nil {
		return err
	}
	if err := ValidatePriority(w.Priority); err != nil {
		return err
	}
	if err := ValidateType(w.Type); err != nil {
		return err
	}
	if w.EstimatedHours != nil && *w.EstimatedHours < 0 {
		return &ValidationError{Field: "estimated_effort_hours", Msg: "effort estimate must be non-negative"}
	}
	return nil
}

// Edge is a directed relation between two work items. Stored once, in
// the document of the From item; the reverse view is always derived.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// Validate checks endpoints and kind. Endpoint existence is the store's
// responsibility — this only checks shape.
func (e Edge) Validate() error {
	if e.From == "" || e.To == "" {
		return &ValidationError{Field: "edge", Msg: "edge endpoints must not be empty"}
	}
	if e.From == e.To {
		return &ValidationError{Field: "edge", Msg: fmt.Sprintf("item %q cannot depend on itself", e.From)}
	}
	return ValidateKind(e.Kind)
}

// Now returns the current time as an RFC3339 UTC string, the timestamp
// format used throughout the store and index.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
