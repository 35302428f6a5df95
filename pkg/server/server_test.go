package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-go-golems/hello-agent/pkg/conversation"
	"github.com/go-go-golems/hello-agent/pkg/events"
	"github.com/go-go-golems/hello-agent/pkg/inference/engine"
	"github.com/go-go-golems/hello-agent/pkg/inference/engine/echo"
	"github.com/go-go-golems/hello-agent/pkg/inference/toolloop"
	"github.com/go-go-golems/hello-agent/pkg/inference/tools"
	"github.com/go-go-golems/hello-agent/pkg/inference/tools/builtin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context, history conversation.Conversation, text string) (*toolloop.Result, error)

func (f runnerFunc) Run(ctx context.Context, history conversation.Conversation, text string) (*toolloop.Result, error) {
	return f(ctx, history, text)
}

// calculatorEngine asks for multiply(6, 7) and then repeats the tool result.
var calculatorEngine = engine.EngineFunc(func(ctx context.Context, conv conversation.Conversation, _ []tools.ToolDefinition) (conversation.Message, error) {
	last := conv[len(conv)-1]
	if last.Role == conversation.RoleUser {
		return conversation.NewAssistantMessage("", conversation.ToolCall{
			ID: "call-1", Name: "multiply", Arguments: map[string]any{"a": 6, "b": 7},
		}), nil
	}
	return conversation.NewAssistantMessage(last.Content), nil
})

type sinkRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *sinkRecorder) PublishEvent(e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e.Error
}

func TestChat_Echo(t *testing.T) {
	loop := toolloop.New(toolloop.WithEngine(echo.NewEngine()), toolloop.WithRegistry(builtin.Registry()))
	h := New(loop).Handler()

	rec := postChat(t, h, `{"message":"Hello","thread_id":"t-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Run-Id"))
	assert.JSONEq(t, `{"response":"Hello"}`, rec.Body.String())
}

func TestChat_ToolRoundTripAndEvents(t *testing.T) {
	loop := toolloop.New(toolloop.WithEngine(calculatorEngine), toolloop.WithRegistry(builtin.Registry()))
	sink := &sinkRecorder{}
	h := New(loop, WithEventSinks(sink)).Handler()

	rec := postChat(t, h, `{"message":"What is 6 times 7?","thread_id":"thread-42"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"42"}`, rec.Body.String())

	require.NotEmpty(t, sink.events)
	for _, e := range sink.events {
		assert.Equal(t, "thread-42", e.Metadata.ThreadID)
		assert.Equal(t, rec.Header().Get("X-Run-Id"), e.Metadata.RunID)
	}
	assert.Equal(t, events.EventTypeFinal, sink.events[len(sink.events)-1].Type)
}

func TestChat_EachRequestStartsWithEmptyHistory(t *testing.T) {
	var lengths []int
	runner := runnerFunc(func(ctx context.Context, history conversation.Conversation, text string) (*toolloop.Result, error) {
		lengths = append(lengths, len(history))
		return &toolloop.Result{FinalText: text}, nil
	})
	h := New(runner).Handler()

	postChat(t, h, `{"message":"one","thread_id":"same"}`)
	postChat(t, h, `{"message":"two","thread_id":"same"}`)
	assert.Equal(t, []int{0, 0}, lengths)
}

func TestChat_BadRequests(t *testing.T) {
	h := New(runnerFunc(func(ctx context.Context, history conversation.Conversation, text string) (*toolloop.Result, error) {
		t.Fatal("runner must not be called")
		return nil, nil
	})).Handler()

	for name, body := range map[string]string{
		"not json":        `{"message":`,
		"missing message": `{"thread_id":"t"}`,
		"wrong type":      `{"message":42}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := postChat(t, h, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChat_EmptyMessageIsForwarded(t *testing.T) {
	var got *string
	h := New(runnerFunc(func(ctx context.Context, history conversation.Conversation, text string) (*toolloop.Result, error) {
		got = &text
		return &toolloop.Result{FinalText: "?"}, nil
	})).Handler()

	rec := postChat(t, h, `{"message":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "", *got)
}

func TestChat_ErrorStatuses(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"model":     {&engine.ModelInvocationError{Engine: "gemini", Err: errors.New("timeout")}, http.StatusBadGateway},
		"cap":       {&toolloop.LoopNotTerminatingError{MaxIterations: 10}, http.StatusInternalServerError},
		"not found": {&tools.ToolNotFoundError{Name: "exponent"}, http.StatusInternalServerError},
		"tool":      {&tools.ToolExecutionError{Name: "divide", Err: errors.New("division by zero")}, http.StatusInternalServerError},
		"wrapped":   {errors.Wrap(&engine.ModelInvocationError{Engine: "x", Err: errors.New("y")}, "run"), http.StatusBadGateway},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			h := New(runnerFunc(func(ctx context.Context, history conversation.Conversation, text string) (*toolloop.Result, error) {
				return &toolloop.Result{}, c.err
			})).Handler()
			rec := postChat(t, h, `{"message":"hi","thread_id":"t"}`)
			assert.Equal(t, c.status, rec.Code)
			assert.Equal(t, c.err.Error(), decodeError(t, rec))
		})
	}
}

func TestChat_TimeoutIsServiceUnavailable(t *testing.T) {
	h := New(runnerFunc(func(ctx context.Context, history conversation.Conversation, text string) (*toolloop.Result, error) {
		<-ctx.Done()
		return &toolloop.Result{}, ctx.Err()
	}), WithRequestTimeout(10*time.Millisecond)).Handler()

	rec := postChat(t, h, `{"message":"slow","thread_id":"t"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestChat_RateLimited(t *testing.T) {
	h := New(runnerFunc(func(ctx context.Context, history conversation.Conversation, text string) (*toolloop.Result, error) {
		return &toolloop.Result{FinalText: "ok"}, nil
	}), WithRateLimit(0.001, 1)).Handler()

	assert.Equal(t, http.StatusOK, postChat(t, h, `{"message":"a"}`).Code)
	rec := postChat(t, h, `{"message":"b"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// other routes are not limited
	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestDocsAndHealth(t *testing.T) {
	h := New(runnerFunc(nil)).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.1.0", doc["openapi"])
	paths := doc["paths"].(map[string]any)
	assert.Contains(t, paths, "/chat")
	assert.Contains(t, rec.Body.String(), `"thread_id"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scalar", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-url="/openapi.json"`)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	s := New(runnerFunc(nil))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
