// Package builtin holds the arithmetic tools the agent ships with.
package builtin

import (
	"math"
	"sync"

	"github.com/go-go-golems/hello-agent/pkg/inference/tools"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type IntOperands struct {
	A int `json:"a" jsonschema:"required,description=First integer"`
	B int `json:"b" jsonschema:"required,description=Second integer"`
}

type NumberOperands struct {
	A float64 `json:"a" jsonschema:"required,description=First number"`
	B float64 `json:"b" jsonschema:"required,description=Second number"`
}

// ErrDivisionByZero is returned by divide when b is zero.
var ErrDivisionByZero = errors.New("division by zero")

// ErrIntegerOverflow is returned by multiply when the product does not fit an int.
var ErrIntegerOverflow = errors.New("integer overflow")

func Multiply(in IntOperands) (int, error) {
	if in.A == 0 || in.B == 0 {
		return 0, nil
	}
	if (in.A == -1 && in.B == math.MinInt) || (in.B == -1 && in.A == math.MinInt) {
		return 0, errors.Wrapf(ErrIntegerOverflow, "%d * %d", in.A, in.B)
	}
	p := in.A * in.B
	if p/in.B != in.A {
		return 0, errors.Wrapf(ErrIntegerOverflow, "%d * %d", in.A, in.B)
	}
	return p, nil
}

func Add(in NumberOperands) float64 {
	return in.A + in.B
}

func Subtract(in NumberOperands) float64 {
	return in.A - in.B
}

func Divide(in NumberOperands) (float64, error) {
	if in.B == 0 {
		return 0, ErrDivisionByZero
	}
	return in.A / in.B, nil
}

type builtinTool struct {
	name        string
	description string
	fn          interface{}
}

var builtinTools = []builtinTool{
	{"multiply", "Multiply a and b.", Multiply},
	{"add", "Add a and b.", Add},
	{"subtract", "Subtract b from a.", Subtract},
	{"divide", "Divide a by b. Fails when b is zero.", Divide},
}

// Definitions builds fresh tool definitions for every builtin tool.
func Definitions() ([]tools.ToolDefinition, error) {
	defs := make([]tools.ToolDefinition, 0, len(builtinTools))
	for _, s := range builtinTools {
		def, err := tools.NewToolFromFunc(s.name, s.description, s.fn)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to create %s tool", s.name)
		}
		defs = append(defs, *def)
	}
	return defs, nil
}

var (
	registryOnce sync.Once
	registry     *tools.StaticRegistry
)

// Registry returns the process-wide registry of builtin tools. It is built on first use and
// shared by every run.
func Registry() *tools.StaticRegistry {
	registryOnce.Do(func() {
		defs, err := Definitions()
		if err == nil {
			registry, err = tools.NewRegistry(defs...)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("builtin: failed to build tool registry")
		}
	})
	return registry
}
