package factory

import (
	"github.com/go-go-golems/hello-agent/pkg/inference/engine"
	"github.com/go-go-golems/hello-agent/pkg/inference/engine/echo"
	"github.com/go-go-golems/hello-agent/pkg/inference/engine/openai"
	"github.com/go-go-golems/hello-agent/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// EngineFactory creates inference engines based on provider settings.
type EngineFactory interface {
	// CreateEngine creates an Engine for settings.Provider.
	CreateEngine(settings *settings.APISettings) (engine.Engine, error)
	SupportedProviders() []string
	// DefaultProvider is used when settings.Provider is empty.
	DefaultProvider() string
}

// StandardEngineFactory builds the openai, gemini and echo engines. Remote engines are
// wrapped in a circuit breaker.
type StandardEngineFactory struct{}

var _ EngineFactory = (*StandardEngineFactory)(nil)

func NewStandardEngineFactory() *StandardEngineFactory {
	return &StandardEngineFactory{}
}

func (f *StandardEngineFactory) CreateEngine(s *settings.APISettings) (engine.Engine, error) {
	if s == nil {
		return nil, errors.New("settings cannot be nil")
	}
	provider := s.Provider
	if provider == "" {
		provider = settings.Provider(f.DefaultProvider())
	}

	switch provider {
	case settings.ProviderOpenAI, settings.ProviderGemini:
		withProvider := *s
		withProvider.Provider = provider
		e, err := openai.NewEngine(&withProvider)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid settings for provider %s", provider)
		}
		log.Debug().Str("provider", string(provider)).Str("model", s.Model).Str("base_url", s.BaseURL).Msg("engine created")
		return engine.NewCircuitBreakerEngine(e.Name(), e, engine.CircuitBreakerConfig{
			MaxFailures: s.CircuitBreaker.MaxFailures,
			Timeout:     s.CircuitBreaker.OpenTimeout,
		}), nil
	case settings.ProviderEcho:
		return echo.NewEngine(), nil
	default:
		return nil, errors.Errorf("unsupported provider: %s (supported: %v)", provider, f.SupportedProviders())
	}
}

func (f *StandardEngineFactory) SupportedProviders() []string {
	return []string{string(settings.ProviderGemini), string(settings.ProviderOpenAI), string(settings.ProviderEcho)}
}

func (f *StandardEngineFactory) DefaultProvider() string {
	return string(settings.ProviderGemini)
}

// NewEngineFromSettings creates an engine with the standard factory.
func NewEngineFromSettings(s *settings.Settings) (engine.Engine, error) {
	if s == nil {
		return nil, errors.New("settings cannot be nil")
	}
	return NewStandardEngineFactory().CreateEngine(&s.API)
}
