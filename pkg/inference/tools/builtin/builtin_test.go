package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/go-go-golems/hello-agent/pkg/inference/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_DeclaresArithmeticTools(t *testing.T) {
	reg := Registry()
	require.Same(t, reg, Registry())

	names := []string{}
	for _, def := range reg.DeclaredTools() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"multiply", "add", "subtract", "divide"}, names)

	mul, err := reg.GetTool("multiply")
	require.NoError(t, err)
	specs := mul.ParameterSpecs()
	require.Len(t, specs, 2)
	assert.Equal(t, "integer", specs[0].Type)
	assert.True(t, specs[0].Required)
}

func TestMultiply(t *testing.T) {
	out, err := Registry().Invoke(context.Background(), "multiply", map[string]any{"a": float64(6), "b": float64(7)})
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}

func TestArithmetic(t *testing.T) {
	ctx := context.Background()
	reg := Registry()
	args := map[string]any{"a": 7.5, "b": 2.5}

	out, err := reg.Invoke(ctx, "add", args)
	require.NoError(t, err)
	assert.Equal(t, 10.0, out)

	out, err = reg.Invoke(ctx, "subtract", args)
	require.NoError(t, err)
	assert.Equal(t, 5.0, out)

	out, err = reg.Invoke(ctx, "divide", args)
	require.NoError(t, err)
	assert.Equal(t, 3.0, out)
}

func TestDivideByZero(t *testing.T) {
	_, err := Registry().Invoke(context.Background(), "divide", map[string]any{"a": 1, "b": 0})
	var execErr *tools.ToolExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.True(t, errors.Is(err, ErrDivisionByZero))
}

func TestMultiplyRejectsFractions(t *testing.T) {
	_, err := Registry().Invoke(context.Background(), "multiply", map[string]any{"a": 1.5, "b": 2})
	var argErr *tools.ToolArgumentError
	assert.True(t, errors.As(err, &argErr))
}

func TestMultiply_Overflow(t *testing.T) {
	ctx := context.Background()
	cases := map[string]map[string]any{
		"large factors":     {"a": float64(1e10), "b": float64(1e10)},
		"min int times -1":  {"a": json.Number("-9223372036854775808"), "b": float64(-1)},
		"max int times two": {"a": json.Number("9223372036854775807"), "b": float64(2)},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := Registry().Invoke(ctx, "multiply", args)
			require.Error(t, err, "got %v", out)
			var execErr *tools.ToolExecutionError
			assert.True(t, errors.As(err, &execErr))
			assert.True(t, errors.Is(err, ErrIntegerOverflow))
		})
	}
}

func TestMultiply_RejectsOutOfRangeArguments(t *testing.T) {
	ctx := context.Background()
	for _, args := range []map[string]any{
		{"a": float64(1e19), "b": float64(1)},
		{"a": json.Number("9223372036854775808"), "b": float64(1)},
		{"a": float64(-1e19), "b": float64(1)},
	} {
		_, err := Registry().Invoke(ctx, "multiply", args)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out of range")
	}
}

func TestMultiply_ExactLargeIntegers(t *testing.T) {
	ctx := context.Background()

	// 2^53 + 1 is not representable as a float64
	out, err := Registry().Invoke(ctx, "multiply", map[string]any{"a": json.Number("9007199254740993"), "b": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, 9007199254740993, out)

	out, err = Registry().Invoke(ctx, "multiply", map[string]any{"a": json.Number("3037000499"), "b": json.Number("3037000499")})
	require.NoError(t, err)
	assert.Equal(t, 9223372030926249001, out)

	out, err = Registry().Invoke(ctx, "multiply", map[string]any{"a": json.Number("-9223372036854775808"), "b": float64(1)})
	require.NoError(t, err)
	assert.Equal(t, math.MinInt64, out)
}
