package toolloop

import (
	"context"

	"github.com/go-go-golems/hello-agent/pkg/conversation"
	"github.com/go-go-golems/hello-agent/pkg/events"
	"github.com/go-go-golems/hello-agent/pkg/inference/engine"
	"github.com/go-go-golems/hello-agent/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Loop drives one user message through model and tool calls until the model answers with
// text. A Loop only holds read-only collaborators; concurrent Run calls are safe.
type Loop struct {
	eng      engine.Engine
	registry tools.Registry
	loopCfg  LoopConfig
	toolCfg  tools.ToolConfig

	executor tools.ToolExecutor

	snapshotHook SnapshotHook
}

// Result is what a run produced. On error, History holds the messages accumulated up to
// the failing step.
type Result struct {
	FinalText  string                    `json:"final_text" yaml:"final_text"`
	History    conversation.Conversation `json:"history" yaml:"history"`
	Iterations int                       `json:"iterations" yaml:"iterations"`
}

type Option func(*Loop)

func New(opts ...Option) *Loop {
	l := &Loop{
		loopCfg: DefaultLoopConfig(),
		toolCfg: tools.DefaultToolConfig(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.executor == nil {
		l.executor = tools.NewDefaultToolExecutor(l.toolCfg)
	}
	return l
}

func WithEngine(eng engine.Engine) Option {
	return func(l *Loop) { l.eng = eng }
}

func WithRegistry(reg tools.Registry) Option {
	return func(l *Loop) { l.registry = reg }
}

func WithLoopConfig(cfg LoopConfig) Option {
	return func(l *Loop) { l.loopCfg = cfg }
}

func WithToolConfig(cfg tools.ToolConfig) Option {
	return func(l *Loop) { l.toolCfg = cfg }
}

func WithExecutor(exec tools.ToolExecutor) Option {
	return func(l *Loop) { l.executor = exec }
}

func WithSnapshotHook(h SnapshotHook) Option {
	return func(l *Loop) { l.snapshotHook = h }
}

func (l *Loop) snapshot(ctx context.Context, history conversation.Conversation, phase string) {
	if l.snapshotHook != nil {
		l.snapshotHook(ctx, history, phase)
		return
	}
	if h, ok := SnapshotHookFromContext(ctx); ok {
		h(ctx, history, phase)
	}
}

func (l *Loop) engineName() string {
	if n, ok := l.eng.(interface{ Name() string }); ok {
		return n.Name()
	}
	return "engine"
}

// Run appends userText to history and alternates model and tool calls until the model
// answers without requesting tools. history must be empty or end with a complete exchange;
// it is never modified.
func (l *Loop) Run(ctx context.Context, history conversation.Conversation, userText string) (*Result, error) {
	if l == nil {
		return nil, errors.New("tool loop is nil")
	}
	if l.eng == nil {
		return nil, errors.New("tool loop engine is nil")
	}
	if l.registry == nil {
		return nil, errors.New("tool loop registry is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res := &Result{History: history.Clone()}
	if err := history.ValidateComplete(); err != nil {
		return res, errors.Wrap(err, "cannot start run")
	}

	maxIterations := l.loopCfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultLoopConfig().MaxIterations
	}

	res.History = res.History.Append(conversation.NewUserMessage(userText))
	declared := l.registry.DeclaredTools()

	var last conversation.Message
	state := StateCallModel
	for {
		log.Debug().Str("state", state.String()).Int("iteration", res.Iterations).Msg("toolloop: state")

		switch state {
		case StateCallModel:
			res.Iterations++
			ictx := events.WithIteration(ctx, res.Iterations)

			msg, err := l.callModel(ictx, res.History, declared)
			if err != nil {
				return res, l.fail(ictx, err)
			}
			res.History = res.History.Append(msg)
			last = msg
			l.snapshot(ictx, res.History, "post_inference")

			state = next(msg.HasToolCalls())
			if state == StateCallTool && res.Iterations >= maxIterations {
				pending := make([]string, 0, len(msg.ToolCalls))
				for _, c := range msg.ToolCalls {
					pending = append(pending, c.Name)
				}
				log.Warn().Int("max_iterations", maxIterations).Msg("toolloop: maximum iterations reached")
				return res, l.fail(ictx, &LoopNotTerminatingError{MaxIterations: maxIterations, PendingCalls: pending})
			}

		case StateCallTool:
			ictx := events.WithIteration(ctx, res.Iterations)
			msgs, err := l.callTools(ictx, last.ToolCalls)
			if err != nil {
				return res, l.fail(ictx, err)
			}
			res.History = res.History.Append(msgs...)
			l.snapshot(ictx, res.History, "post_tools")
			state = StateCallModel

		case StateTerminate:
			res.FinalText = last.Content
			events.PublishEventToContext(ctx, events.NewEvent(events.WithIteration(ctx, res.Iterations), events.EventTypeFinal, map[string]any{
				"text":       res.FinalText,
				"iterations": res.Iterations,
				"messages":   res.History.Len(),
			}))
			log.Debug().Int("iterations", res.Iterations).Int("messages", res.History.Len()).Msg("toolloop: done")
			return res, nil
		}
	}
}

func (l *Loop) callModel(ctx context.Context, history conversation.Conversation, declared []tools.ToolDefinition) (conversation.Message, error) {
	if err := ctx.Err(); err != nil {
		return conversation.Message{}, errors.Wrap(err, "run cancelled before model call")
	}
	l.snapshot(ctx, history, "pre_inference")
	events.PublishEventToContext(ctx, events.NewEvent(ctx, events.EventTypeModelCall, map[string]any{
		"messages": history.Len(),
		"tools":    len(declared),
	}))

	msg, err := l.eng.RunInference(ctx, history, declared)
	if err != nil {
		return conversation.Message{}, engine.WrapModelError(l.engineName(), err)
	}
	if msg.Role == "" {
		msg.Role = conversation.RoleAssistant
	}
	if msg.Role != conversation.RoleAssistant {
		return conversation.Message{}, engine.WrapModelError(l.engineName(), errors.Errorf("model returned a %s message", msg.Role))
	}
	seen := map[string]bool{}
	names := make([]string, 0, len(msg.ToolCalls))
	for _, c := range msg.ToolCalls {
		if c.ID == "" || seen[c.ID] {
			return conversation.Message{}, engine.WrapModelError(l.engineName(), errors.Errorf("tool call %s has a missing or duplicate id", c.Name))
		}
		seen[c.ID] = true
		names = append(names, c.Name)
	}

	events.PublishEventToContext(ctx, events.NewEvent(ctx, events.EventTypeModelResponse, map[string]any{
		"content":    msg.Content,
		"tool_calls": names,
	}))
	return msg, nil
}

// callTools runs all calls of one assistant message and returns their tool messages in
// request order. Either every call gets a message or an error is returned and none does.
func (l *Loop) callTools(ctx context.Context, calls []conversation.ToolCall) ([]conversation.Message, error) {
	for _, c := range calls {
		if _, err := l.registry.GetTool(c.Name); err != nil {
			var notFound *tools.ToolNotFoundError
			if errors.As(err, &notFound) {
				return nil, err
			}
			return nil, &tools.ToolNotFoundError{Name: c.Name}
		}
	}

	results, err := l.executor.ExecuteToolCalls(ctx, calls, l.registry)
	if err != nil {
		return nil, errors.Wrap(err, "tool execution interrupted")
	}
	if len(results) != len(calls) {
		return nil, errors.Errorf("executor returned %d results for %d calls", len(results), len(calls))
	}

	msgs := make([]conversation.Message, 0, len(results))
	for i, r := range results {
		if r.Err != nil {
			var notFound *tools.ToolNotFoundError
			if errors.As(r.Err, &notFound) || l.toolCfg.ToolErrorHandling == tools.ToolErrorAbort {
				return nil, r.Err
			}
			log.Debug().Err(r.Err).Str("tool", r.Name).Msg("toolloop: feeding tool error back to the model")
		}
		if r.ID == "" {
			r.ID = calls[i].ID
		}
		msgs = append(msgs, r.Message())
	}
	return msgs, nil
}

func (l *Loop) fail(ctx context.Context, err error) error {
	events.PublishEventToContext(ctx, events.NewEvent(ctx, events.EventTypeError, map[string]any{
		"error": err.Error(),
	}))
	log.Debug().Err(err).Msg("toolloop: run failed")
	return err
}
