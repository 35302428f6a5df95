package engine

import (
	"context"

	"github.com/go-go-golems/hello-agent/pkg/conversation"
	"github.com/go-go-golems/hello-agent/pkg/inference/tools"
)

// Engine represents a language model backend. Given the conversation so far and the tools
// that may be called, it produces the next assistant message: either a final text answer or
// a request for one or more tool calls.
//
// Engines never modify conv. Failures are reported as *ModelInvocationError.
type Engine interface {
	RunInference(ctx context.Context, conv conversation.Conversation, tools []tools.ToolDefinition) (conversation.Message, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, conv conversation.Conversation, tools []tools.ToolDefinition) (conversation.Message, error)

func (f EngineFunc) RunInference(ctx context.Context, conv conversation.Conversation, tools []tools.ToolDefinition) (conversation.Message, error) {
	return f(ctx, conv, tools)
}
