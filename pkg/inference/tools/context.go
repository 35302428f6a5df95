package tools

import (
	"context"

	"github.com/go-go-golems/hello-agent/pkg/conversation"
)

type currentCallKey struct{}

// WithCurrentToolCall attaches the call being executed, so tool functions and error
// wrappers can see its id.
func WithCurrentToolCall(ctx context.Context, call conversation.ToolCall) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, currentCallKey{}, call)
}

func CurrentToolCallFromContext(ctx context.Context) (conversation.ToolCall, bool) {
	if ctx == nil {
		return conversation.ToolCall{}, false
	}
	call, ok := ctx.Value(currentCallKey{}).(conversation.ToolCall)
	return call, ok
}
