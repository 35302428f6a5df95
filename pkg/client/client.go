// Package client talks to the hello-agent HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "http://localhost:8000"

// BackendUnreachableError is returned when no HTTP response could be obtained.
type BackendUnreachableError struct {
	URL string
	Err error
}

func (e *BackendUnreachableError) Error() string {
	return fmt.Sprintf("cannot reach backend at %s: %v", e.URL, e.Err)
}

func (e *BackendUnreachableError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 3 * time.Minute},
	}
}

type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

type chatResponse struct {
	Response responseText `json:"response"`
}

// responseText accepts either a plain string or a list of {"text": ...} parts, as returned
// by some providers, and joins the parts.
type responseText string

func (r *responseText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*r = responseText(s)
		return nil
	}
	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &parts); err != nil {
		return errors.New("response is neither a string nor a list of text parts")
	}
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		texts = append(texts, p.Text)
	}
	*r = responseText(strings.Join(texts, ""))
	return nil
}

// Chat sends one message and returns the agent's answer.
func (c *Client) Chat(ctx context.Context, message string, threadID string) (string, error) {
	body, err := json.Marshal(chatRequest{Message: message, ThreadID: threadID})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode request")
	}
	url := c.BaseURL + "/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	log.Debug().Str("url", url).Str("thread_id", threadID).Msg("client: sending chat request")
	resp, err := httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.Wrap(ctx.Err(), "chat request cancelled")
		}
		return "", &BackendUnreachableError{URL: c.BaseURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil {
			switch {
			case e.Error != "":
				msg = e.Error
			case e.Detail != "":
				msg = e.Detail
			}
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &APIError{Status: resp.StatusCode, Message: msg}
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", errors.Wrap(err, "failed to decode response")
	}
	return string(out.Response), nil
}

// Health checks that the backend answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return &BackendUnreachableError{URL: c.BaseURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}
