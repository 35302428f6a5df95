package conversation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleExchange() Conversation {
	return Conversation{
		NewUserMessage("What is 6 times 7?"),
		NewAssistantMessage("", ToolCall{ID: "call-1", Name: "multiply", Arguments: map[string]any{"a": 6, "b": 7}}),
		NewToolResultMessage("call-1", "42"),
		NewAssistantMessage("42"),
	}
}

func TestAppend_DoesNotAliasReceiver(t *testing.T) {
	base := make(Conversation, 0, 8)
	base = append(base, NewUserMessage("hi"))

	a := base.Append(NewAssistantMessage("hello"))
	b := base.Append(NewAssistantMessage("bonjour"))

	require.Len(t, base, 1)
	require.Len(t, a, 2)
	require.Len(t, b, 2)
	assert.Equal(t, "hello", a[1].Content)
	assert.Equal(t, "bonjour", b[1].Content)
}

func TestClone_DeepCopiesArguments(t *testing.T) {
	c := sampleExchange()
	cp := c.Clone()
	cp[1].ToolCalls[0].Arguments["a"] = 100

	assert.Equal(t, 6, c[1].ToolCalls[0].Arguments["a"])
	assert.Nil(t, Conversation(nil).Clone())
}

func TestLastAssistant(t *testing.T) {
	m, ok := sampleExchange().LastAssistant()
	require.True(t, ok)
	assert.Equal(t, "42", m.Content)

	_, ok = Conversation{NewUserMessage("x")}.LastAssistant()
	assert.False(t, ok)
}

func TestPendingToolCalls(t *testing.T) {
	c := Conversation{
		NewUserMessage("sum and product"),
		NewAssistantMessage("",
			ToolCall{ID: "a", Name: "add"},
			ToolCall{ID: "b", Name: "multiply"},
		),
	}
	pending := c.PendingToolCalls()
	require.Len(t, pending, 2)
	assert.Equal(t, "a", pending[0].ID)

	c = c.Append(NewToolResultMessage("a", "3"))
	pending = c.PendingToolCalls()
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ID)

	c = c.Append(NewToolResultMessage("b", "2"))
	assert.Empty(t, c.PendingToolCalls())
	assert.Empty(t, sampleExchange().PendingToolCalls())
	assert.Empty(t, Conversation{}.PendingToolCalls())
}

func TestValidateComplete(t *testing.T) {
	require.NoError(t, Conversation{}.ValidateComplete())
	require.NoError(t, sampleExchange().ValidateComplete())

	dangling := sampleExchange()[:2]
	err := dangling.ValidateComplete()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncompleteExchange))
}

func TestValidate(t *testing.T) {
	require.NoError(t, sampleExchange().Validate())

	cases := map[string]Conversation{
		"orphan tool result": {
			NewUserMessage("hi"),
			NewToolResultMessage("nope", "x"),
		},
		"unanswered call before user": {
			NewUserMessage("hi"),
			NewAssistantMessage("", ToolCall{ID: "a", Name: "add"}),
			NewUserMessage("again"),
		},
		"answered twice": {
			NewUserMessage("hi"),
			NewAssistantMessage("", ToolCall{ID: "a", Name: "add"}),
			NewToolResultMessage("a", "1"),
			NewToolResultMessage("a", "1"),
		},
		"missing tool_call_id": {
			NewUserMessage("hi"),
			{Role: RoleTool, Content: "1"},
		},
		"unknown role": {
			{Role: "system", Content: "be nice"},
		},
		"duplicate call ids": {
			NewAssistantMessage("", ToolCall{ID: "a", Name: "add"}, ToolCall{ID: "a", Name: "add"}),
		},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, c.Validate())
		})
	}
}

func TestMessageView(t *testing.T) {
	c := sampleExchange()
	assert.Equal(t, "[user]: What is 6 times 7?", c[0].View())
	assert.Equal(t, "[assistant]:  (calls: multiply)", c[1].View())
	assert.Equal(t, "[tool call-1]: 42", c[2].View())
}
