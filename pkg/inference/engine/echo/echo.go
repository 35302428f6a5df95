// Package echo provides an offline engine that answers with the user's last message.
package echo

import (
	"context"
	"time"

	"github.com/go-go-golems/hello-agent/pkg/conversation"
	"github.com/go-go-golems/hello-agent/pkg/inference/engine"
	"github.com/go-go-golems/hello-agent/pkg/inference/tools"
	"github.com/pkg/errors"
)

const Name = "echo"

type Engine struct {
	// Delay simulates model latency. The call fails if ctx ends first.
	Delay time.Duration
}

var _ engine.Engine = (*Engine)(nil)

func NewEngine() *Engine {
	return &Engine{}
}

func (e *Engine) RunInference(ctx context.Context, conv conversation.Conversation, _ []tools.ToolDefinition) (conversation.Message, error) {
	var text string
	found := false
	for i := len(conv) - 1; i >= 0; i-- {
		if conv[i].Role == conversation.RoleUser {
			text, found = conv[i].Content, true
			break
		}
	}
	if !found {
		return conversation.Message{}, engine.WrapModelError(Name, errors.New("no user message to echo"))
	}

	if e.Delay > 0 {
		select {
		case <-time.After(e.Delay):
		case <-ctx.Done():
			return conversation.Message{}, engine.WrapModelError(Name, ctx.Err())
		}
	}
	return conversation.NewAssistantMessage(text), nil
}
