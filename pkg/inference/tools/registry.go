package tools

import (
	"context"

	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

// Registry is the read-only view of the tools available to a conversation.
type Registry interface {
	GetTool(name string) (*ToolDefinition, error)
	DeclaredTools() []ToolDefinition
	Invoke(ctx context.Context, name string, args map[string]any) (interface{}, error)
}

type registeredTool struct {
	def    ToolDefinition
	schema *gojsonschema.Schema
}

// StaticRegistry is built once and never modified, so it can be shared by concurrent runs
// without locking.
type StaticRegistry struct {
	order []string
	tools map[string]registeredTool
}

var _ Registry = (*StaticRegistry)(nil)

// NewRegistry builds a registry from defs, keeping their order for DeclaredTools.
func NewRegistry(defs ...ToolDefinition) (*StaticRegistry, error) {
	r := &StaticRegistry{
		order: make([]string, 0, len(defs)),
		tools: make(map[string]registeredTool, len(defs)),
	}
	for _, def := range defs {
		if def.Name == "" {
			return nil, errors.New("tool name cannot be empty")
		}
		if strcase.ToSnake(def.Name) != def.Name {
			return nil, errors.Errorf("tool name %q is not snake_case", def.Name)
		}
		if _, exists := r.tools[def.Name]; exists {
			return nil, errors.Errorf("tool %s registered twice", def.Name)
		}
		schema, err := compileSchema(def.Parameters)
		if err != nil {
			return nil, errors.Wrapf(err, "tool %s", def.Name)
		}
		r.order = append(r.order, def.Name)
		r.tools[def.Name] = registeredTool{def: def, schema: schema}
	}
	log.Debug().Strs("tools", r.order).Msg("tools: registry built")
	return r, nil
}

// GetTool retrieves a tool by name.
func (r *StaticRegistry) GetTool(name string) (*ToolDefinition, error) {
	tool, exists := r.tools[name]
	if !exists {
		return nil, &ToolNotFoundError{Name: name}
	}
	def := tool.def
	return &def, nil
}

// DeclaredTools returns the tools in registration order. The slice is a fresh copy.
func (r *StaticRegistry) DeclaredTools() []ToolDefinition {
	out := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name].def)
	}
	return out
}

// Invoke validates args against the tool schema and runs the tool.
func (r *StaticRegistry) Invoke(ctx context.Context, name string, args map[string]any) (interface{}, error) {
	tool, exists := r.tools[name]
	if !exists {
		return nil, &ToolNotFoundError{Name: name}
	}

	violations, err := validateArguments(tool.schema, args)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &ToolArgumentError{Name: name, Violations: violations}
	}

	result, err := tool.def.Function.Execute(ctx, args)
	if err != nil {
		callID := ""
		if call, ok := CurrentToolCallFromContext(ctx); ok {
			callID = call.ID
		}
		return nil, &ToolExecutionError{Name: name, CallID: callID, Err: err}
	}
	return result, nil
}

func (r *StaticRegistry) HasTool(name string) bool {
	_, exists := r.tools[name]
	return exists
}

func (r *StaticRegistry) Count() int {
	return len(r.order)
}
