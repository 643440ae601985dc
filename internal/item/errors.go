package item

import "fmt"

// ValidationError reports a malformed item or edge: unknown enum value,
// dangling edge endpoint, negative effort. It is rejected at the
// store/index boundary and never reaches the analytics engine.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// NotFoundError reports a lookup for an id that does not exist in the
// store or in a snapshot. It is propagated to the caller, never
// silently defaulted.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("work item %q not found", e.ID)
}
