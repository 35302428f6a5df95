package cmds

import (
	"io"

	"github.com/go-go-golems/hello-agent/pkg/inference/tools"
	"github.com/go-go-golems/hello-agent/pkg/inference/tools/builtin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type toolListing struct {
	Name        string                `yaml:"name"`
	Description string                `yaml:"description"`
	Parameters  []tools.ParameterSpec `yaml:"parameters"`
}

func NewToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools the model can call",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTools(cmd.OutOrStdout(), builtin.Registry())
		},
	}
}

func printTools(w io.Writer, reg tools.Registry) error {
	declared := reg.DeclaredTools()
	listing := make([]toolListing, 0, len(declared))
	for _, td := range declared {
		listing = append(listing, toolListing{
			Name:        td.Name,
			Description: td.Description,
			Parameters:  td.ParameterSpecs(),
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(listing); err != nil {
		return errors.Wrap(err, "failed to encode tools")
	}
	return enc.Close()
}
