package tools

import (
	"context"
	"encoding/json"
	"math"
	"math/big"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ToolDefinition declares a tool the model may call: its unique name, a description the
// model uses to decide relevance, the JSON schema of its arguments and the function itself.
type ToolDefinition struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description" yaml:"description"`
	Parameters  *jsonschema.Schema `json:"parameters" yaml:"-"`
	Function    ToolFunc           `json:"-" yaml:"-"`
}

// ParameterSpec is the flattened view of one top-level argument of a tool.
type ParameterSpec struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool   `json:"required" yaml:"required"`
}

// ParameterSpecs lists the top-level properties of the tool schema in declaration order.
func (td ToolDefinition) ParameterSpecs() []ParameterSpec {
	if td.Parameters == nil || td.Parameters.Properties == nil {
		return nil
	}
	required := map[string]bool{}
	for _, r := range td.Parameters.Required {
		required[r] = true
	}
	var out []ParameterSpec
	for pair := td.Parameters.Properties.Oldest(); pair != nil; pair = pair.Next() {
		spec := ParameterSpec{Name: pair.Key, Required: required[pair.Key]}
		if pair.Value != nil {
			spec.Type = pair.Value.Type
			spec.Description = pair.Value.Description
		}
		out = append(out, spec)
	}
	return out
}

// ToolFunc wraps the Go function backing a tool with a pre-built executor.
type ToolFunc struct {
	Fn       interface{}
	executor func(context.Context, map[string]any) (interface{}, error)
}

// Execute decodes args into the function's input type and calls it.
func (tf ToolFunc) Execute(ctx context.Context, args map[string]any) (interface{}, error) {
	if tf.executor == nil {
		return nil, errors.New("tool function not properly initialized")
	}
	return tf.executor(ctx, args)
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// NewToolFromFunc creates a ToolDefinition from a Go function. Supported signatures are
//
//	func(Input) Result
//	func(Input) (Result, error)
//	func(context.Context, Input) (Result, error)
//	func(context.Context) (Result, error)
//
// The argument schema is reflected from Input.
func NewToolFromFunc(name, description string, fn interface{}) (*ToolDefinition, error) {
	funcType := reflect.TypeOf(fn)
	if funcType == nil || funcType.Kind() != reflect.Func {
		return nil, errors.New("provided value is not a function")
	}

	if funcType.NumOut() == 0 || funcType.NumOut() > 2 {
		return nil, errors.New("function must return (result) or (result, error)")
	}
	if funcType.NumOut() == 2 && !funcType.Out(1).Implements(errorType) {
		return nil, errors.New("second return value must be an error")
	}

	withContext := false
	var inputType reflect.Type
	switch funcType.NumIn() {
	case 0:
	case 1:
		if funcType.In(0) == contextType {
			withContext = true
		} else {
			inputType = funcType.In(0)
		}
	case 2:
		if funcType.In(0) != contextType {
			return nil, errors.New("two-arg tool function must be (context.Context, Input)")
		}
		withContext = true
		inputType = funcType.In(1)
	default:
		return nil, errors.New("function must take (Input), (context.Context, Input) or (context.Context)")
	}

	schema := generateSchema(inputType)

	return &ToolDefinition{
		Name:        name,
		Description: description,
		Parameters:  schema,
		Function: ToolFunc{
			Fn:       fn,
			executor: createExecutor(reflect.ValueOf(fn), withContext, inputType),
		},
	}, nil
}

func generateSchema(inputType reflect.Type) *jsonschema.Schema {
	if inputType == nil {
		return &jsonschema.Schema{Type: "object"}
	}
	reflector := jsonschema.Reflector{
		DoNotReference: true,
		Anonymous:      true,
		ExpandedStruct: true,
	}
	schema := reflector.ReflectFromType(inputType)
	// Providers and the argument validator expect a bare object schema.
	schema.Version = ""
	if schema.Type == "" && schema.Ref == "" {
		schema.Type = "object"
	}
	return schema
}

func createExecutor(fn reflect.Value, withContext bool, inputType reflect.Type) func(context.Context, map[string]any) (interface{}, error) {
	return func(ctx context.Context, args map[string]any) (interface{}, error) {
		in := make([]reflect.Value, 0, 2)
		if withContext {
			if ctx == nil {
				ctx = context.Background()
			}
			in = append(in, reflect.ValueOf(ctx))
		}
		if inputType != nil {
			input, err := decodeArguments(args, inputType)
			if err != nil {
				return nil, err
			}
			in = append(in, input)
		}

		log.Trace().
			Str("func_type", fn.Type().String()).
			Int("num_args", len(args)).
			Msg("tools: calling tool function")
		return extractResults(fn.Call(in))
	}
}

func decodeArguments(args map[string]any, inputType reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(inputType)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      ptr.Interface(),
		ErrorUnused: true,
		DecodeHook:  integerArgumentHook,
	})
	if err != nil {
		return reflect.Value{}, errors.Wrap(err, "failed to build argument decoder")
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := decoder.Decode(args); err != nil {
		return reflect.Value{}, errors.Wrap(err, "failed to decode arguments")
	}
	return ptr.Elem(), nil
}

// integerArgumentHook converts JSON numbers into integer fields exactly. Fractions and
// values that do not fit the target type are errors instead of being truncated or wrapped.
func integerArgumentHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := integerValue(data)
		if err != nil || i == nil {
			return data, err
		}
		if !i.IsInt64() || reflect.Zero(to).OverflowInt(i.Int64()) {
			return nil, errors.Errorf("%s is out of range for %s", i.String(), to)
		}
		return reflect.ValueOf(i.Int64()).Convert(to).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := integerValue(data)
		if err != nil || i == nil {
			return data, err
		}
		if !i.IsUint64() || reflect.Zero(to).OverflowUint(i.Uint64()) {
			return nil, errors.Errorf("%s is out of range for %s", i.String(), to)
		}
		return reflect.ValueOf(i.Uint64()).Convert(to).Interface(), nil
	default:
		return data, nil
	}
}

// integerValue returns the exact integer held by a float64 or json.Number, or nil for
// other types.
func integerValue(data interface{}) (*big.Int, error) {
	switch v := data.(type) {
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) || v != math.Trunc(v) {
			return nil, errors.Errorf("%v is not an integer", v)
		}
		i, _ := big.NewFloat(v).Int(nil)
		return i, nil
	case json.Number:
		i, ok := new(big.Int).SetString(v.String(), 10)
		if !ok {
			return nil, errors.Errorf("%s is not an integer", v.String())
		}
		return i, nil
	default:
		return nil, nil
	}
}

func extractResults(results []reflect.Value) (interface{}, error) {
	switch len(results) {
	case 1:
		return results[0].Interface(), nil
	case 2:
		result := results[0].Interface()
		if errInterface := results[1].Interface(); errInterface != nil {
			if err, ok := errInterface.(error); ok {
				return result, err
			}
			return result, errors.Errorf("unexpected error type: %T", errInterface)
		}
		return result, nil
	default:
		return nil, errors.Errorf("unexpected number of return values: %d", len(results))
	}
}
