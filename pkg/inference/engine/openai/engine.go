// Package openai implements the engine on top of the OpenAI chat completions API. Any
// OpenAI-compatible endpoint works, including Gemini's.
package openai

import (
	"context"
	"time"

	"github.com/go-go-golems/hello-agent/pkg/conversation"
	"github.com/go-go-golems/hello-agent/pkg/inference/engine"
	"github.com/go-go-golems/hello-agent/pkg/inference/tools"
	"github.com/go-go-golems/hello-agent/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
)

// Engine sends the whole conversation on every call and returns the first choice.
type Engine struct {
	name     string
	settings settings.APISettings
	client   *go_openai.Client
}

var _ engine.Engine = (*Engine)(nil)

func NewEngine(s *settings.APISettings) (*Engine, error) {
	if s == nil {
		return nil, errors.New("settings cannot be nil")
	}
	if s.Key == "" {
		return nil, errors.Errorf("no API key for %s", s.Provider)
	}
	if s.BaseURL == "" {
		return nil, errors.Errorf("no base URL for %s", s.Provider)
	}
	if s.Model == "" {
		return nil, errors.Errorf("no model for %s", s.Provider)
	}

	config := go_openai.DefaultConfig(s.Key)
	config.BaseURL = s.BaseURL
	return &Engine{
		name:     string(s.Provider) + "/" + s.Model,
		settings: *s,
		client:   go_openai.NewClientWithConfig(config),
	}, nil
}

func (e *Engine) Name() string {
	return e.name
}

func (e *Engine) makeRequest(conv conversation.Conversation, defs []tools.ToolDefinition) (go_openai.ChatCompletionRequest, error) {
	messages, err := MessagesFromConversation(conv)
	if err != nil {
		return go_openai.ChatCompletionRequest{}, err
	}
	req := go_openai.ChatCompletionRequest{
		Model:       e.settings.Model,
		Messages:    messages,
		Temperature: e.settings.Temperature,
		MaxTokens:   e.settings.MaxTokens,
		Tools:       ToolsFromDefinitions(defs),
	}
	if len(req.Tools) > 0 {
		req.ToolChoice = "auto"
	}
	return req, nil
}

func (e *Engine) RunInference(ctx context.Context, conv conversation.Conversation, defs []tools.ToolDefinition) (conversation.Message, error) {
	req, err := e.makeRequest(conv, defs)
	if err != nil {
		return conversation.Message{}, engine.WrapModelError(e.name, err)
	}

	if e.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.settings.Timeout)
		defer cancel()
	}

	log.Debug().
		Str("engine", e.name).
		Int("messages", len(req.Messages)).
		Int("tools", len(req.Tools)).
		Msg("OpenAI RunInference started")
	start := time.Now()

	resp, err := e.client.CreateChatCompletion(ctx, req)
	if err != nil {
		log.Debug().Err(err).Str("engine", e.name).Msg("OpenAI RunInference failed")
		return conversation.Message{}, engine.WrapModelError(e.name, err)
	}
	if len(resp.Choices) == 0 {
		return conversation.Message{}, engine.WrapModelError(e.name, errors.New("response contains no choices"))
	}

	choice := resp.Choices[0]
	if choice.FinishReason == go_openai.FinishReasonContentFilter {
		return conversation.Message{}, engine.WrapModelError(e.name, errors.New("response blocked by content filter"))
	}
	msg, err := MessageFromChoice(choice)
	if err != nil {
		return conversation.Message{}, engine.WrapModelError(e.name, err)
	}

	log.Debug().
		Str("engine", e.name).
		Str("finish_reason", string(choice.FinishReason)).
		Int("tool_calls", len(msg.ToolCalls)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("duration", time.Since(start)).
		Msg("OpenAI RunInference finished")
	return msg, nil
}
