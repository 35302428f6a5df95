package openai

import (
	"encoding/json"
	"strings"

	"github.com/go-go-golems/hello-agent/pkg/conversation"
	"github.com/go-go-golems/hello-agent/pkg/inference/tools"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
)

// MessagesFromConversation converts the conversation to chat completion messages.
func MessagesFromConversation(conv conversation.Conversation) ([]go_openai.ChatCompletionMessage, error) {
	out := make([]go_openai.ChatCompletionMessage, 0, len(conv))
	for i, m := range conv {
		switch m.Role {
		case conversation.RoleUser:
			out = append(out, go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleUser,
				Content: m.Content,
			})
		case conversation.RoleAssistant:
			msg := go_openai.ChatCompletionMessage{
				Role:    go_openai.ChatMessageRoleAssistant,
				Content: m.Content,
			}
			for _, call := range m.ToolCalls {
				args, err := argumentsToJSON(call.Arguments)
				if err != nil {
					return nil, errors.Wrapf(err, "message %d: tool call %s", i, call.ID)
				}
				msg.ToolCalls = append(msg.ToolCalls, go_openai.ToolCall{
					ID:   call.ID,
					Type: go_openai.ToolTypeFunction,
					Function: go_openai.FunctionCall{
						Name:      call.Name,
						Arguments: args,
					},
				})
			}
			out = append(out, msg)
		case conversation.RoleTool:
			out = append(out, go_openai.ChatCompletionMessage{
				Role:       go_openai.ChatMessageRoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		default:
			return nil, errors.Errorf("message %d: unsupported role %q", i, m.Role)
		}
	}
	return out, nil
}

// ToolsFromDefinitions declares the tools as functions with their JSON schema.
func ToolsFromDefinitions(defs []tools.ToolDefinition) []go_openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]go_openai.Tool, 0, len(defs))
	for _, def := range defs {
		out = append(out, go_openai.Tool{
			Type: go_openai.ToolTypeFunction,
			Function: &go_openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}

// MessageFromChoice converts a completion choice into an assistant message. Tool calls without
// an id get a generated one, so their results can still be paired.
func MessageFromChoice(choice go_openai.ChatCompletionChoice) (conversation.Message, error) {
	calls := make([]conversation.ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		if tc.Function.Name == "" {
			return conversation.Message{}, errors.New("tool call without function name")
		}
		args, err := argumentsFromJSON(tc.Function.Arguments)
		if err != nil {
			return conversation.Message{}, errors.Wrapf(err, "tool call %s", tc.Function.Name)
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		calls = append(calls, conversation.ToolCall{ID: id, Name: tc.Function.Name, Arguments: args})
	}
	return conversation.NewAssistantMessage(choice.Message.Content, calls...), nil
}

func argumentsToJSON(args map[string]any) (string, error) {
	if len(args) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func argumentsFromJSON(s string) (map[string]any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]any{}, nil
	}
	// UseNumber keeps integers above 2^53 exact
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		return nil, errors.Wrap(err, "arguments are not a JSON object")
	}
	if dec.More() {
		return nil, errors.New("arguments are not a single JSON object")
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
