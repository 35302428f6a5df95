package tools

import "time"

// ToolConfig specifies how tool calls are executed during a run.
type ToolConfig struct {
	ExecutionTimeout  time.Duration     `json:"execution_timeout" yaml:"execution_timeout"`
	MaxParallelTools  int               `json:"max_parallel_tools" yaml:"max_parallel_tools"`
	ToolErrorHandling ToolErrorHandling `json:"tool_error_handling" yaml:"tool_error_handling"`
}

func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		ExecutionTimeout:  30 * time.Second,
		MaxParallelTools:  3,
		ToolErrorHandling: ToolErrorContinue,
	}
}

func (tc ToolConfig) WithExecutionTimeout(timeout time.Duration) ToolConfig {
	tc.ExecutionTimeout = timeout
	return tc
}

func (tc ToolConfig) WithMaxParallelTools(maxParallel int) ToolConfig {
	tc.MaxParallelTools = maxParallel
	return tc
}

func (tc ToolConfig) WithToolErrorHandling(handling ToolErrorHandling) ToolConfig {
	tc.ToolErrorHandling = handling
	return tc
}

// ToolErrorHandling defines what happens when a tool call fails.
type ToolErrorHandling string

const (
	ToolErrorContinue ToolErrorHandling = "continue" // Feed the error back to the model
	ToolErrorAbort    ToolErrorHandling = "abort"    // Stop the run on tool error
)

func (h ToolErrorHandling) IsValid() bool {
	return h == ToolErrorContinue || h == ToolErrorAbort
}
