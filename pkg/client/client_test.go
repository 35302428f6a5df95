package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-go-golems/hello-agent/pkg/inference/engine/echo"
	"github.com/go-go-golems/hello-agent/pkg/inference/toolloop"
	"github.com/go-go-golems/hello-agent/pkg/inference/tools/builtin"
	"github.com/go-go-golems/hello-agent/pkg/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChat_AgainstServer(t *testing.T) {
	loop := toolloop.New(toolloop.WithEngine(echo.NewEngine()), toolloop.WithRegistry(builtin.Registry()))
	srv := httptest.NewServer(server.New(loop).Handler())
	defer srv.Close()

	c := New(srv.URL + "/")
	answer, err := c.Chat(context.Background(), "Hello", "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "Hello", answer)
	require.NoError(t, c.Health(context.Background()))
}

func TestChat_AcceptsTextParts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "t", req["thread_id"])
		_, _ = w.Write([]byte(`{"response":[{"type":"text","text":"4"},{"type":"text","text":"2"}]}`))
	}))
	defer srv.Close()

	answer, err := New(srv.URL).Chat(context.Background(), "6*7", "t")
	require.NoError(t, err)
	assert.Equal(t, "42", answer)
}

func TestChat_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"model invocation failed"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), "hi", "t")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "model invocation failed", apiErr.Message)
}

func TestChat_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Chat(context.Background(), "hi", "t")
	var unreachable *BackendUnreachableError
	require.True(t, errors.As(err, &unreachable))
	assert.Contains(t, err.Error(), "cannot reach backend")

	assert.Error(t, New(url).Health(context.Background()))
}

func TestChat_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"oops":true}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), "hi", "t")
	assert.Error(t, err)
}
