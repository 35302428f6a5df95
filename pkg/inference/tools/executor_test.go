package tools

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-go-golems/hello-agent/pkg/conversation"
	"github.com/go-go-golems/hello-agent/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type delayInput struct {
	Label   string `json:"label"`
	DelayMs int    `json:"delay_ms"`
}

type recordingSink struct {
	count atomic.Int32
}

func (s *recordingSink) PublishEvent(ev events.Event) error {
	s.count.Add(1)
	return nil
}

func delayRegistry(t *testing.T) *StaticRegistry {
	t.Helper()
	reg, err := NewRegistry(
		mustTool(t, "sleepy", func(ctx context.Context, in delayInput) (string, error) {
			select {
			case <-time.After(time.Duration(in.DelayMs) * time.Millisecond):
				return in.Label, nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}),
		mustTool(t, "fail", func(in operands) (int, error) { return 0, errors.New("boom") }),
	)
	require.NoError(t, err)
	return reg
}

func TestExecuteToolCalls_PreservesRequestOrder(t *testing.T) {
	reg := delayRegistry(t)
	exec := NewDefaultToolExecutor(DefaultToolConfig())

	calls := []conversation.ToolCall{
		{ID: "a", Name: "sleepy", Arguments: map[string]any{"label": "A", "delay_ms": 80}},
		{ID: "b", Name: "sleepy", Arguments: map[string]any{"label": "B", "delay_ms": 1}},
	}
	results, err := exec.ExecuteToolCalls(context.Background(), calls, reg)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "A", results[0].Content())
	assert.Equal(t, "b", results[1].ID)
	assert.Equal(t, "B", results[1].Content())
}

func TestExecuteToolCalls_ReportsFailuresInResults(t *testing.T) {
	reg := delayRegistry(t)
	exec := NewDefaultToolExecutor(DefaultToolConfig().WithMaxParallelTools(1))

	results, err := exec.ExecuteToolCalls(context.Background(), []conversation.ToolCall{
		{ID: "x", Name: "fail", Arguments: map[string]any{"a": 1, "b": 2}},
		{ID: "y", Name: "missing"},
	}, reg)
	require.NoError(t, err)
	require.Len(t, results, 2)

	var execErr *ToolExecutionError
	require.True(t, errors.As(results[0].Err, &execErr))
	assert.Equal(t, "Error: tool fail failed: boom", results[0].Content())

	var notFound *ToolNotFoundError
	require.True(t, errors.As(results[1].Err, &notFound))
}

func TestExecuteToolCalls_TimeoutBoundsEachCall(t *testing.T) {
	reg := delayRegistry(t)
	exec := NewDefaultToolExecutor(DefaultToolConfig().WithExecutionTimeout(10 * time.Millisecond))

	results, err := exec.ExecuteToolCalls(context.Background(), []conversation.ToolCall{
		{ID: "slow", Name: "sleepy", Arguments: map[string]any{"label": "S", "delay_ms": 2000}},
	}, reg)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, errors.Is(results[0].Err, context.DeadlineExceeded))
}

func TestExecuteToolCalls_CancelledContextReturnsNoResults(t *testing.T) {
	reg := delayRegistry(t)
	exec := NewDefaultToolExecutor(DefaultToolConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	results, err := exec.ExecuteToolCalls(ctx, []conversation.ToolCall{
		{ID: "slow", Name: "sleepy", Arguments: map[string]any{"label": "S", "delay_ms": 2000}},
	}, reg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, results)
}

func TestExecuteToolCalls_PublishesEvents(t *testing.T) {
	reg := delayRegistry(t)
	exec := NewDefaultToolExecutor(DefaultToolConfig())
	sink := &recordingSink{}
	ctx := events.WithEventSinks(context.Background(), sink)

	_, err := exec.ExecuteToolCalls(ctx, []conversation.ToolCall{
		{ID: "a", Name: "sleepy", Arguments: map[string]any{"label": "A", "delay_ms": 0}},
	}, reg)
	require.NoError(t, err)
	// one execute event, one result event
	assert.Equal(t, int32(2), sink.count.Load())
}

func TestToolResultContent(t *testing.T) {
	assert.Equal(t, "42", ToolResult{Value: 42}.Content())
	assert.Equal(t, "plain", ToolResult{Value: "plain"}.Content())
	assert.Equal(t, `{"x":1}`, ToolResult{Value: map[string]int{"x": 1}}.Content())
	assert.Equal(t, "Error: nope", ToolResult{Err: errors.New("nope")}.Content())

	msg := ToolResult{ID: "c1", Value: 6.5}.Message()
	assert.Equal(t, conversation.RoleTool, msg.Role)
	assert.Equal(t, "c1", msg.ToolCallID)
	assert.Equal(t, "6.5", msg.Content)
}
