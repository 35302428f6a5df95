package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-go-golems/hello-agent/pkg/conversation"
	"github.com/go-go-golems/hello-agent/pkg/events"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ToolExecutor runs the tool calls requested by one assistant message.
type ToolExecutor interface {
	ExecuteToolCalls(ctx context.Context, calls []conversation.ToolCall, registry Registry) ([]ToolResult, error)
}

// ToolResult is the outcome of a single tool call. Exactly one of Value and Err is meaningful.
type ToolResult struct {
	ID       string        `json:"id" yaml:"id"`
	Name     string        `json:"name" yaml:"name"`
	Value    interface{}   `json:"value,omitempty" yaml:"value,omitempty"`
	Err      error         `json:"-" yaml:"-"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Content renders the result as the text of a tool message: strings as-is, other values as
// JSON, failures as "Error: <message>".
func (r ToolResult) Content() string {
	if r.Err != nil {
		return fmt.Sprintf("Error: %s", r.Err.Error())
	}
	switch v := r.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	b, err := json.Marshal(r.Value)
	if err != nil {
		return fmt.Sprintf("%v", r.Value)
	}
	return string(b)
}

// Message converts the result into the tool message answering its call.
func (r ToolResult) Message() conversation.Message {
	return conversation.NewToolResultMessage(r.ID, r.Content())
}

// DefaultToolExecutor runs calls concurrently, bounded by MaxParallelTools, and reports results
// in request order.
type DefaultToolExecutor struct {
	config ToolConfig
}

var _ ToolExecutor = (*DefaultToolExecutor)(nil)

func NewDefaultToolExecutor(config ToolConfig) *DefaultToolExecutor {
	return &DefaultToolExecutor{config: config}
}

// ExecuteToolCalls returns one result per call. Tool failures are reported in the result,
// not as an error; the error is only set when ctx is done, in which case no results are
// returned.
func (e *DefaultToolExecutor) ExecuteToolCalls(ctx context.Context, calls []conversation.ToolCall, registry Registry) ([]ToolResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	if registry == nil {
		return nil, errors.New("no tool registry configured")
	}

	results := make([]ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	if e.config.MaxParallelTools > 0 {
		g.SetLimit(e.config.MaxParallelTools)
	}
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.executeOne(gctx, call, registry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "tool execution interrupted")
	}
	return results, nil
}

func (e *DefaultToolExecutor) executeOne(ctx context.Context, call conversation.ToolCall, registry Registry) ToolResult {
	start := time.Now()
	ctx = WithCurrentToolCall(ctx, call)
	if e.config.ExecutionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.ExecutionTimeout)
		defer cancel()
	}

	events.PublishEventToContext(ctx, events.NewEvent(ctx, events.EventTypeToolCallExecute, map[string]any{
		"id":        call.ID,
		"name":      call.Name,
		"arguments": call.Arguments,
	}))
	log.Debug().Str("tool", call.Name).Str("id", call.ID).Interface("arguments", call.Arguments).Msg("tools: executing tool call")

	value, err := registry.Invoke(ctx, call.Name, call.Arguments)
	result := ToolResult{
		ID:       call.ID,
		Name:     call.Name,
		Value:    value,
		Err:      err,
		Duration: time.Since(start),
	}

	payload := map[string]any{
		"id":          call.ID,
		"name":        call.Name,
		"result":      result.Content(),
		"duration_ms": result.Duration.Milliseconds(),
	}
	if err != nil {
		payload["error"] = err.Error()
		log.Debug().Err(err).Str("tool", call.Name).Str("id", call.ID).Msg("tools: tool call failed")
	} else {
		log.Debug().Str("tool", call.Name).Str("id", call.ID).Dur("duration", result.Duration).Msg("tools: tool call done")
	}
	events.PublishEventToContext(ctx, events.NewEvent(ctx, events.EventTypeToolResult, payload))
	return result
}
