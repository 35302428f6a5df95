package conversation

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// ToolCall is a request, carried by an assistant message, to invoke a registered tool.
type ToolCall struct {
	ID        string         `json:"id" yaml:"id"`
	Name      string         `json:"name" yaml:"name"`
	Arguments map[string]any `json:"arguments,omitempty" yaml:"arguments,omitempty"`
}

func (tc ToolCall) String() string {
	return fmt.Sprintf("ToolCall{ID: %s, Name: %s, Arguments: %v}", tc.ID, tc.Name, tc.Arguments)
}

// Message is one turn of a conversation.
//
// Assistant messages that request tools usually carry an empty Content. Tool messages
// always carry the ToolCallID of the call they answer.
type Message struct {
	Role       Role       `json:"role" yaml:"role"`
	Content    string     `json:"content,omitempty" yaml:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty" yaml:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty" yaml:"tool_call_id,omitempty"`
}

func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

func NewAssistantMessage(text string, calls ...ToolCall) Message {
	m := Message{Role: RoleAssistant, Content: text}
	if len(calls) > 0 {
		m.ToolCalls = append([]ToolCall{}, calls...)
	}
	return m
}

func NewToolResultMessage(callID string, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// HasToolCalls reports whether the message asks for at least one tool invocation.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

func (m Message) View() string {
	switch {
	case m.Role == RoleTool:
		return fmt.Sprintf("[tool %s]: %s", m.ToolCallID, strings.TrimRight(m.Content, "\n"))
	case m.HasToolCalls():
		names := make([]string, 0, len(m.ToolCalls))
		for _, c := range m.ToolCalls {
			names = append(names, c.Name)
		}
		return fmt.Sprintf("[%s]: %s (calls: %s)", m.Role, strings.TrimRight(m.Content, "\n"), strings.Join(names, ", "))
	default:
		return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Content, "\n"))
	}
}
