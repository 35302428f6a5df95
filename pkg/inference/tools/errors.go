package tools

import (
	"fmt"
	"strings"
)

// ToolNotFoundError is returned when a call names a tool the registry does not declare.
type ToolNotFoundError struct {
	Name string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

// ToolArgumentError is returned when the arguments of a call do not match the tool schema.
type ToolArgumentError struct {
	Name       string
	Violations []string
}

func (e *ToolArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %s", e.Name, strings.Join(e.Violations, "; "))
}

// ToolExecutionError wraps a failure raised by the tool function itself.
type ToolExecutionError struct {
	Name   string
	CallID string
	Err    error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Name, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}
