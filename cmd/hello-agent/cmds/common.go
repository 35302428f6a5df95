// Package cmds holds the cobra commands of the hello-agent binary.
package cmds

import (
	"github.com/go-go-golems/hello-agent/pkg/inference/engine"
	"github.com/go-go-golems/hello-agent/pkg/inference/engine/factory"
	"github.com/go-go-golems/hello-agent/pkg/inference/toolloop"
	"github.com/go-go-golems/hello-agent/pkg/inference/tools"
	"github.com/go-go-golems/hello-agent/pkg/inference/tools/builtin"
	"github.com/go-go-golems/hello-agent/pkg/settings"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// bindFlags maps command flags onto settings keys of the global viper instance.
func bindFlags(cmd *cobra.Command, keys map[string]string) {
	for key, flag := range keys {
		cobra.CheckErr(viper.BindPFlag(key, cmd.Flags().Lookup(flag)))
	}
}

func loadSettings() (*settings.Settings, error) {
	s, err := settings.FromViper(viper.GetViper())
	if err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return s, nil
}

// buildLoop wires the configured engine and the built-in tools into a tool loop.
func buildLoop(s *settings.Settings, opts ...toolloop.Option) (*toolloop.Loop, error) {
	eng, err := factory.NewEngineFromSettings(s)
	if err != nil {
		return nil, err
	}
	return newLoop(s, eng, builtin.Registry(), opts...), nil
}

func newLoop(s *settings.Settings, eng engine.Engine, reg tools.Registry, opts ...toolloop.Option) *toolloop.Loop {
	base := []toolloop.Option{
		toolloop.WithEngine(eng),
		toolloop.WithRegistry(reg),
		toolloop.WithLoopConfig(toolloop.DefaultLoopConfig().WithMaxIterations(s.Loop.MaxIterations)),
		toolloop.WithToolConfig(s.ToolConfig()),
	}
	return toolloop.New(append(base, opts...)...)
}
