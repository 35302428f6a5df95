// Package settings holds the runtime configuration of the agent, loaded through viper from
// flags, environment variables and config files.
package settings

import (
	"os"
	"strings"
	"time"

	"github.com/go-go-golems/hello-agent/pkg/inference/tools"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
	ProviderEcho   Provider = "echo"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultGeminiModel   = "gemini-2.5-flash"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
)

type CircuitBreakerSettings struct {
	MaxFailures uint32        `mapstructure:"max-failures" yaml:"max_failures"`
	OpenTimeout time.Duration `mapstructure:"open-timeout" yaml:"open_timeout"`
}

// APISettings configures the model provider.
type APISettings struct {
	Provider       Provider               `mapstructure:"provider" yaml:"provider"`
	Key            string                 `mapstructure:"key" yaml:"-"`
	BaseURL        string                 `mapstructure:"base-url" yaml:"base_url,omitempty"`
	Model          string                 `mapstructure:"model" yaml:"model,omitempty"`
	Temperature    float32                `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens      int                    `mapstructure:"max-tokens" yaml:"max_tokens,omitempty"`
	Timeout        time.Duration          `mapstructure:"timeout" yaml:"timeout"`
	CircuitBreaker CircuitBreakerSettings `mapstructure:"circuit-breaker" yaml:"circuit_breaker"`
}

type LoopSettings struct {
	MaxIterations int `mapstructure:"max-iterations" yaml:"max_iterations"`
}

type ToolSettings struct {
	MaxParallel      int           `mapstructure:"max-parallel" yaml:"max_parallel"`
	ExecutionTimeout time.Duration `mapstructure:"execution-timeout" yaml:"execution_timeout"`
	ErrorHandling    string        `mapstructure:"error-handling" yaml:"error_handling"`
}

type ServerSettings struct {
	Address        string        `mapstructure:"address" yaml:"address"`
	RateLimit      float64       `mapstructure:"rate-limit" yaml:"rate_limit"`
	RateBurst      int           `mapstructure:"rate-burst" yaml:"rate_burst"`
	RequestTimeout time.Duration `mapstructure:"request-timeout" yaml:"request_timeout"`
}

type Settings struct {
	API    APISettings    `mapstructure:"api" yaml:"api"`
	Loop   LoopSettings   `mapstructure:"loop" yaml:"loop"`
	Tools  ToolSettings   `mapstructure:"tools" yaml:"tools"`
	Server ServerSettings `mapstructure:"server" yaml:"server"`
}

// SetDefaults registers every known key, so environment variables are picked up by
// Unmarshal even when no config file mentions them.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api.provider", string(ProviderGemini))
	v.SetDefault("api.key", "")
	v.SetDefault("api.base-url", "")
	v.SetDefault("api.model", "")
	v.SetDefault("api.temperature", 0.0)
	v.SetDefault("api.max-tokens", 0)
	v.SetDefault("api.timeout", 60*time.Second)
	v.SetDefault("api.circuit-breaker.max-failures", 5)
	v.SetDefault("api.circuit-breaker.open-timeout", 30*time.Second)

	v.SetDefault("loop.max-iterations", 10)

	toolDefaults := tools.DefaultToolConfig()
	v.SetDefault("tools.max-parallel", toolDefaults.MaxParallelTools)
	v.SetDefault("tools.execution-timeout", toolDefaults.ExecutionTimeout)
	v.SetDefault("tools.error-handling", string(toolDefaults.ToolErrorHandling))

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.rate-limit", 5.0)
	v.SetDefault("server.rate-burst", 10)
	v.SetDefault("server.request-timeout", 2*time.Minute)
}

// NewViper returns a viper instance with defaults registered and environment binding set up
// for the HELLO_AGENT prefix.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("HELLO_AGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)
	return v
}

// FromViper decodes the settings and resolves the provider specific defaults.
func FromViper(v *viper.Viper) (*Settings, error) {
	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	s.API.Provider = Provider(strings.ToLower(string(s.API.Provider)))
	s.API.resolveDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (a *APISettings) resolveDefaults() {
	switch a.Provider {
	case ProviderGemini:
		if a.BaseURL == "" {
			a.BaseURL = DefaultGeminiBaseURL
		}
		if a.Model == "" {
			a.Model = DefaultGeminiModel
		}
		if a.Key == "" {
			a.Key = os.Getenv("GOOGLE_API_KEY")
		}
	case ProviderOpenAI:
		if a.BaseURL == "" {
			a.BaseURL = DefaultOpenAIBaseURL
		}
		if a.Model == "" {
			a.Model = DefaultOpenAIModel
		}
		if a.Key == "" {
			a.Key = os.Getenv("OPENAI_API_KEY")
		}
	case ProviderEcho:
		if a.Model == "" {
			a.Model = "echo"
		}
	}
}

// IsRemote reports whether the provider needs network access and an API key.
func (a *APISettings) IsRemote() bool {
	return a.Provider != ProviderEcho
}

func (s *Settings) Validate() error {
	switch s.API.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderEcho:
	default:
		return errors.Errorf("unknown provider %q (expected gemini, openai or echo)", s.API.Provider)
	}
	if s.API.IsRemote() && s.API.Key == "" {
		if s.API.Provider == ProviderGemini {
			return errors.New("no API key for gemini: set GOOGLE_API_KEY or api.key")
		}
		return errors.New("no API key for openai: set OPENAI_API_KEY or api.key")
	}
	if s.Loop.MaxIterations < 1 {
		return errors.Errorf("loop.max-iterations must be at least 1, got %d", s.Loop.MaxIterations)
	}
	if !tools.ToolErrorHandling(s.Tools.ErrorHandling).IsValid() {
		return errors.Errorf("tools.error-handling must be continue or abort, got %q", s.Tools.ErrorHandling)
	}
	return nil
}

// ToolConfig converts the tool settings into the executor configuration.
func (s *Settings) ToolConfig() tools.ToolConfig {
	return tools.DefaultToolConfig().
		WithMaxParallelTools(s.Tools.MaxParallel).
		WithExecutionTimeout(s.Tools.ExecutionTimeout).
		WithToolErrorHandling(tools.ToolErrorHandling(s.Tools.ErrorHandling))
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}
