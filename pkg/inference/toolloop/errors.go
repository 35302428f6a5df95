package toolloop

import "fmt"

// LoopNotTerminatingError is returned when the model still requests tools after
// MaxIterations model calls.
type LoopNotTerminatingError struct {
	MaxIterations int
	PendingCalls  []string
}

func (e *LoopNotTerminatingError) Error() string {
	return fmt.Sprintf("model still requesting tools after %d iterations (pending: %v)", e.MaxIterations, e.PendingCalls)
}
