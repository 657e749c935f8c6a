package harmonize

import "fmt"

// ValidationError reports malformed call parameters. It aborts the whole
// batch before any matching happens; per-name outcomes are never errors.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
