package echo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-go-golems/hello-agent/pkg/conversation"
	"github.com/go-go-golems/hello-agent/pkg/inference/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEcho(t *testing.T) {
	conv := conversation.Conversation{
		conversation.NewUserMessage("first"),
		conversation.NewAssistantMessage("first"),
		conversation.NewUserMessage("Hello"),
	}
	msg, err := NewEngine().RunInference(context.Background(), conv, nil)
	require.NoError(t, err)
	assert.Equal(t, conversation.NewAssistantMessage("Hello"), msg)
}

func TestEcho_NoUserMessage(t *testing.T) {
	_, err := NewEngine().RunInference(context.Background(), nil, nil)
	var mie *engine.ModelInvocationError
	assert.True(t, errors.As(err, &mie))
}

func TestEcho_DelayHonoursContext(t *testing.T) {
	e := &Engine{Delay: time.Second}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := e.RunInference(ctx, conversation.Conversation{conversation.NewUserMessage("x")}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
