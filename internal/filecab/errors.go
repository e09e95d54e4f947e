package filecab

import "fmt"

// ConflictError reports that a move's computed destination already exists.
// The move is aborted and the source is left in place; callers can use
// Destination to offer "reveal existing file" as a recovery action.
type ConflictError struct {
	Destination string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("destination already exists: %s", e.Destination)
}

// AccessError reports that a configured location cannot be read or written.
// The affected location is treated as unavailable; other locations keep
// functioning.
type AccessError struct {
	Location string
	Err      error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("location unavailable: %s: %v", e.Location, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// ValidationError reports an invalid edit, such as a duplicate rule name in a
// rule set or a duplicate variable name within a rule. It is surfaced inline
// and never blocks unrelated operations.
type ValidationError struct {
	Subject string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Subject, e.Reason)
}
