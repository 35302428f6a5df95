package events

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type EventType string

const (
	EventTypeModelCall       EventType = "model-call"
	EventTypeModelResponse   EventType = "model-response"
	EventTypeToolCallExecute EventType = "tool-call-execute"
	EventTypeToolResult      EventType = "tool-result"
	EventTypeFinal           EventType = "final"
	EventTypeError           EventType = "error"
)

// EventMetadata identifies the run an event belongs to.
type EventMetadata struct {
	ID        uuid.UUID `json:"id" yaml:"id"`
	RunID     string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	ThreadID  string    `json:"thread_id,omitempty" yaml:"thread_id,omitempty"`
	Iteration int       `json:"iteration" yaml:"iteration"`
}

// Event is a single observation emitted while a run progresses.
type Event struct {
	Type     EventType      `json:"type" yaml:"type"`
	Metadata EventMetadata  `json:"metadata" yaml:"metadata"`
	Payload  map[string]any `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// NewEvent creates an event stamped with a fresh id and the metadata attached to ctx.
func NewEvent(ctx context.Context, t EventType, payload map[string]any) Event {
	md := MetadataFromContext(ctx)
	md.ID = uuid.New()
	return Event{Type: t, Metadata: md, Payload: payload}
}

func NewEventFromJson(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, errors.Wrap(err, "failed to unmarshal event")
	}
	if ev.Type == "" {
		return Event{}, errors.New("event has no type")
	}
	return ev, nil
}
