package events

import (
	"context"

	"github.com/rs/zerolog/log"
)

// ctxKey is an unexported type for keys defined in this package.
type ctxKey int

const (
	ctxKeyEventSinks ctxKey = iota
	ctxKeyMetadata
)

// WithEventSinks attaches one or more EventSink instances to the context, in addition to
// the ones already present.
func WithEventSinks(ctx context.Context, sinks ...EventSink) context.Context {
	if len(sinks) == 0 {
		return ctx
	}
	existing := GetEventSinks(ctx)
	combined := append([]EventSink{}, existing...)
	combined = append(combined, sinks...)
	return context.WithValue(ctx, ctxKeyEventSinks, combined)
}

// GetEventSinks returns the list of EventSinks attached to the context.
func GetEventSinks(ctx context.Context) []EventSink {
	if v := ctx.Value(ctxKeyEventSinks); v != nil {
		if sinks, ok := v.([]EventSink); ok {
			return sinks
		}
	}
	return nil
}

// PublishEventToContext publishes the event to all EventSinks stored in the context.
// If no sinks are present, this is a no-op.
func PublishEventToContext(ctx context.Context, event Event) {
	sinks := GetEventSinks(ctx)
	if len(sinks) == 0 {
		log.Trace().Str("component", "events.context").Str("event_type", string(event.Type)).Msg("PublishEventToContext: no sinks in context")
		return
	}
	for _, sink := range sinks {
		// Best-effort: a failing sink never disrupts the run
		if err := sink.PublishEvent(event); err != nil {
			log.Debug().Err(err).Str("event_type", string(event.Type)).Msg("PublishEventToContext: sink failed")
		}
	}
}

// WithMetadata attaches run metadata that NewEvent copies into every event.
func WithMetadata(ctx context.Context, md EventMetadata) context.Context {
	return context.WithValue(ctx, ctxKeyMetadata, md)
}

func MetadataFromContext(ctx context.Context) EventMetadata {
	if ctx == nil {
		return EventMetadata{}
	}
	md, _ := ctx.Value(ctxKeyMetadata).(EventMetadata)
	return md
}

// WithIteration returns a context whose metadata carries the given loop iteration.
func WithIteration(ctx context.Context, iteration int) context.Context {
	md := MetadataFromContext(ctx)
	md.Iteration = iteration
	return WithMetadata(ctx, md)
}
