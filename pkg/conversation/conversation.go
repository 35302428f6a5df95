package conversation

import (
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
)

// ErrIncompleteExchange is returned when a conversation ends with an assistant turn whose
// tool calls have not all been answered.
var ErrIncompleteExchange = errors.New("conversation ends with unanswered tool calls")

// Conversation is the ordered, append-only list of messages exchanged so far.
//
// Values are treated as immutable: Append returns a new Conversation and never writes into
// the receiver's backing array, so a caller holding an earlier Conversation keeps seeing the
// same messages.
type Conversation []Message

// Append concatenates msgs onto c and returns the result as a fresh slice.
func (c Conversation) Append(msgs ...Message) Conversation {
	out := make(Conversation, 0, len(c)+len(msgs))
	out = append(out, c...)
	out = append(out, msgs...)
	return out
}

// Clone returns a deep copy, including the argument maps of every tool call.
func (c Conversation) Clone() Conversation {
	if c == nil {
		return nil
	}
	return clone.Clone(c).(Conversation)
}

func (c Conversation) Len() int {
	return len(c)
}

// LastAssistant returns the most recent assistant message.
func (c Conversation) LastAssistant() (Message, bool) {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Role == RoleAssistant {
			return c[i], true
		}
	}
	return Message{}, false
}

// PendingToolCalls returns the calls of the trailing assistant message that have no tool
// result yet, in request order.
func (c Conversation) PendingToolCalls() []ToolCall {
	i := len(c) - 1
	answered := map[string]bool{}
	for ; i >= 0 && c[i].Role == RoleTool; i-- {
		answered[c[i].ToolCallID] = true
	}
	if i < 0 || !c[i].HasToolCalls() {
		return nil
	}
	var pending []ToolCall
	for _, call := range c[i].ToolCalls {
		if !answered[call.ID] {
			pending = append(pending, call)
		}
	}
	return pending
}

// ValidateComplete checks that the conversation is empty or ends with a complete exchange,
// i.e. there is no dangling tool call.
func (c Conversation) ValidateComplete() error {
	if pending := c.PendingToolCalls(); len(pending) > 0 {
		return errors.Wrapf(ErrIncompleteExchange, "%d pending, first is %s (%s)", len(pending), pending[0].Name, pending[0].ID)
	}
	return nil
}

// Validate checks the structural invariants of the whole conversation:
//   - roles are known and tool messages carry a tool call id
//   - every tool message answers a call of the assistant message right before the tool run
//   - every tool call is answered exactly once before the next user or assistant message
//
// A trailing assistant message with unanswered calls is accepted; use ValidateComplete to
// reject it.
func (c Conversation) Validate() error {
	var open map[string]bool
	closeRun := func(idx int) error {
		for id, done := range open {
			if !done {
				return errors.Errorf("message %d: tool call %s was never answered", idx, id)
			}
		}
		open = nil
		return nil
	}

	for i, m := range c {
		if !m.Role.IsValid() {
			return errors.Errorf("message %d: unknown role %q", i, m.Role)
		}
		switch m.Role {
		case RoleTool:
			if m.ToolCallID == "" {
				return errors.Errorf("message %d: tool message without tool_call_id", i)
			}
			done, ok := open[m.ToolCallID]
			if !ok {
				return errors.Errorf("message %d: tool result %s does not answer a preceding call", i, m.ToolCallID)
			}
			if done {
				return errors.Errorf("message %d: tool call %s answered twice", i, m.ToolCallID)
			}
			open[m.ToolCallID] = true
		default:
			if err := closeRun(i); err != nil {
				return err
			}
			if m.HasToolCalls() {
				open = make(map[string]bool, len(m.ToolCalls))
				for _, call := range m.ToolCalls {
					if call.ID == "" {
						return errors.Errorf("message %d: tool call %s without id", i, call.Name)
					}
					if _, dup := open[call.ID]; dup {
						return errors.Errorf("message %d: duplicate tool call id %s", i, call.ID)
					}
					open[call.ID] = false
				}
			}
		}
	}
	return nil
}
