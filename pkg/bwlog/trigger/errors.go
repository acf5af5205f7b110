package trigger

import "fmt"

// ValidationError reports a problem with the file as a whole: an
// unsupported version, no triggers, or too many of them.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("trigger file: %s: %s", e.Field, e.Message)
}

// TriggerError reports a problem with one entry of the triggers list.
// The entry is named by ID when it has one, otherwise by Index.
type TriggerError struct {
	Index   int
	ID      string
	Field   string
	Message string
	Cause   error // regexp compile error, if any
}

func (e *TriggerError) Error() string {
	name := fmt.Sprintf("trigger[%d]", e.Index)
	if e.ID != "" {
		name = fmt.Sprintf("trigger %q", e.ID)
	}
	return name + ": " + e.Field + ": " + e.Message
}

func (e *TriggerError) Unwrap() error {
	return e.Cause
}
