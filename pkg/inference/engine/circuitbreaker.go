package engine

import (
	"context"
	"time"

	"github.com/go-go-golems/hello-agent/pkg/conversation"
	"github.com/go-go-golems/hello-agent/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32
	// Timeout is how long the circuit stays open before letting a probe through.
	Timeout time.Duration
	// Interval clears the failure counts while closed. 0 uses the default.
	Interval time.Duration
}

// CircuitBreakerEngine wraps an Engine so that repeated model failures fail fast instead of
// piling up requests against a broken provider.
type CircuitBreakerEngine struct {
	name    string
	inner   Engine
	breaker *gobreaker.CircuitBreaker[conversation.Message]
}

var _ Engine = (*CircuitBreakerEngine)(nil)

func NewCircuitBreakerEngine(name string, inner Engine, cfg CircuitBreakerConfig) *CircuitBreakerEngine {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[conversation.Message](gobreaker.Settings{
		Name:        "engine:" + name,
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
		IsSuccessful: func(err error) bool {
			// a caller giving up says nothing about the provider's health
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &CircuitBreakerEngine{name: name, inner: inner, breaker: cb}
}

func (e *CircuitBreakerEngine) RunInference(ctx context.Context, conv conversation.Conversation, tools []tools.ToolDefinition) (conversation.Message, error) {
	msg, err := e.breaker.Execute(func() (conversation.Message, error) {
		return e.inner.RunInference(ctx, conv, tools)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return conversation.Message{}, &ModelInvocationError{
				Engine: e.name,
				Err:    errors.Wrap(err, "circuit open"),
			}
		}
		return conversation.Message{}, WrapModelError(e.name, err)
	}
	return msg, nil
}

// Name reports the wrapped engine's name, so errors raised around the breaker name the
// provider.
func (e *CircuitBreakerEngine) Name() string {
	return e.name
}

func (e *CircuitBreakerEngine) State() gobreaker.State {
	return e.breaker.State()
}
