package toolloop

import "fmt"

// State is a node of the dialogue state machine.
//
//	CALL_MODEL --tool calls--> CALL_TOOL --> CALL_MODEL
//	CALL_MODEL --text only--> TERMINATE
type State int

const (
	StateCallModel State = iota
	StateCallTool
	StateTerminate
)

func (s State) String() string {
	switch s {
	case StateCallModel:
		return "CALL_MODEL"
	case StateCallTool:
		return "CALL_TOOL"
	case StateTerminate:
		return "TERMINATE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// next picks the state following a model response.
func next(hasToolCalls bool) State {
	if hasToolCalls {
		return StateCallTool
	}
	return StateTerminate
}
