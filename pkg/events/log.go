package events

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogEventHandler is a watermill handler writing each event to the global logger.
// Malformed payloads are logged and dropped, so one bad message never stalls the topic.
func LogEventHandler(msg *message.Message) error {
	ev, err := NewEventFromJson(msg.Payload)
	if err != nil {
		log.Warn().Err(err).Str("message_id", msg.UUID).Msg("events: dropping malformed event")
		return nil
	}
	logEvent(ev)
	return nil
}

// LogEvents consumes topic from subscriber until ctx is done or the subscription closes,
// logging every event.
func LogEvents(ctx context.Context, subscriber message.Subscriber, topic string) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return errors.Wrapf(err, "failed to subscribe to %s", topic)
	}
	return LogMessages(ctx, messages)
}

// LogMessages logs and acks messages from an existing subscription.
func LogMessages(ctx context.Context, messages <-chan *message.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			_ = LogEventHandler(msg)
			msg.Ack()
		}
	}
}

func logEvent(ev Event) {
	level := zerolog.DebugLevel
	switch ev.Type {
	case EventTypeError:
		level = zerolog.WarnLevel
	case EventTypeFinal:
		level = zerolog.InfoLevel
	}
	log.WithLevel(level).
		Str("event_type", string(ev.Type)).
		Str("event_id", ev.Metadata.ID.String()).
		Str("run_id", ev.Metadata.RunID).
		Str("thread_id", ev.Metadata.ThreadID).
		Int("iteration", ev.Metadata.Iteration).
		Fields(ev.Payload).
		Msg("event")
}
