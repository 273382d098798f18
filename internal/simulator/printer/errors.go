package printer

import "fmt"

// ValidationError reports a command parameter outside its allowed range.
// It never changes printer state.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}
