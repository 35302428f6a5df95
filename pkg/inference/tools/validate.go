package tools

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// compileSchema turns a reflected schema into a gojsonschema validator.
func compileSchema(schema *jsonschema.Schema) (*gojsonschema.Schema, error) {
	if schema == nil {
		return nil, nil
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal tool schema")
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile tool schema")
	}
	return compiled, nil
}

// validateArguments returns the list of schema violations for args, empty when valid.
func validateArguments(schema *gojsonschema.Schema, args map[string]any) ([]string, error) {
	if schema == nil {
		return nil, nil
	}
	if args == nil {
		args = map[string]any{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate arguments")
	}
	if result.Valid() {
		return nil, nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return violations, nil
}
