package nodefactory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/easywork/internal/ewerr"
)

type limiter struct {
	max int
}

func registerLimiter(t *testing.T, f *Factory) {
	t.Helper()
	require.NoError(t, f.Register("limiter", []ParamSpec{{Name: "max", Default: 10}},
		func(resolved map[string]any) (any, error) {
			return &limiter{max: Extract(resolved, "max", 10)}, nil
		}))
}

func TestFactory_Create_UsesPositionalArg(t *testing.T) {
	f := New()
	registerLimiter(t, f)

	inst, err := f.Create("limiter", Args{Positional: []any{42}})
	require.NoError(t, err)
	assert.Equal(t, 42, inst.(*limiter).max)
}

func TestFactory_Create_UsesKeywordArgOverDefault(t *testing.T) {
	f := New()
	registerLimiter(t, f)

	inst, err := f.Create("limiter", Args{Keyword: map[string]any{"max": 7}})
	require.NoError(t, err)
	assert.Equal(t, 7, inst.(*limiter).max)
}

func TestFactory_Create_FallsBackToDefaultOnMissingArg(t *testing.T) {
	f := New()
	registerLimiter(t, f)

	inst, err := f.Create("limiter", Args{})
	require.NoError(t, err)
	assert.Equal(t, 10, inst.(*limiter).max)
}

func TestFactory_Create_FallsBackToDefaultOnTypeMismatch(t *testing.T) {
	f := New()
	registerLimiter(t, f)

	inst, err := f.Create("limiter", Args{Positional: []any{"not a number"}})
	require.NoError(t, err)
	assert.Equal(t, 10, inst.(*limiter).max)
}

func TestFactory_Create_CoercesConvertibleNumericType(t *testing.T) {
	f := New()
	registerLimiter(t, f)

	inst, err := f.Create("limiter", Args{Positional: []any{float64(5)}})
	require.NoError(t, err)
	assert.Equal(t, 5, inst.(*limiter).max)
}

func TestFactory_Create_UnknownNodeType(t *testing.T) {
	f := New()
	_, err := f.Create("missing", Args{})
	require.Error(t, err)

	var factoryErr *ewerr.FactoryError
	require.ErrorAs(t, err, &factoryErr)
	assert.Equal(t, "missing", factoryErr.Node)
}

func TestFactory_Create_MissingRequiredParamRejected(t *testing.T) {
	f := New()
	require.NoError(t, f.Register("needs_label", []ParamSpec{{Name: "label", Required: true}},
		func(resolved map[string]any) (any, error) {
			return &limiter{max: Extract(resolved, "label", 0)}, nil
		}))

	_, err := f.Create("needs_label", Args{})
	require.Error(t, err)

	var factoryErr *ewerr.FactoryError
	require.ErrorAs(t, err, &factoryErr)
	assert.Contains(t, factoryErr.Reason, "label")
}

func TestFactory_Create_RequiredParamSuppliedPositionally(t *testing.T) {
	f := New()
	require.NoError(t, f.Register("needs_label", []ParamSpec{{Name: "label", Required: true}},
		func(resolved map[string]any) (any, error) {
			return &limiter{max: Extract(resolved, "label", 0)}, nil
		}))

	inst, err := f.Create("needs_label", Args{Positional: []any{5}})
	require.NoError(t, err)
	assert.Equal(t, 5, inst.(*limiter).max)
}

func TestFactory_Register_DuplicateRejected(t *testing.T) {
	f := New()
	registerLimiter(t, f)
	err := f.Register("limiter", nil, func(map[string]any) (any, error) { return &limiter{}, nil })
	assert.Error(t, err)
}

func TestFactory_Names_Sorted(t *testing.T) {
	f := New()
	require.NoError(t, f.Register("zeta", nil, func(map[string]any) (any, error) { return &limiter{}, nil }))
	require.NoError(t, f.Register("alpha", nil, func(map[string]any) (any, error) { return &limiter{}, nil }))
	assert.Equal(t, []string{"alpha", "zeta"}, f.Names())
}

func TestFactory_IsRegistered(t *testing.T) {
	f := New()
	assert.False(t, f.IsRegistered("limiter"))
	registerLimiter(t, f)
	assert.True(t, f.IsRegistered("limiter"))
}

type widget struct{ name string }

func TestRegisterDefault_ZeroArgConstructor(t *testing.T) {
	f := New()
	require.NoError(t, RegisterDefault[widget](f, "widget"))
	inst, err := f.Create("widget", Args{})
	require.NoError(t, err)
	assert.IsType(t, &widget{}, inst)
}

func TestFactory_Create_ResolvesMultipleParamsByPositionAndKeyword(t *testing.T) {
	type pair struct{ a, b int }
	f := New()
	require.NoError(t, f.Register("pair", []ParamSpec{{Name: "a", Default: 1}, {Name: "b", Default: 2}},
		func(resolved map[string]any) (any, error) {
			return &pair{a: Extract(resolved, "a", 1), b: Extract(resolved, "b", 2)}, nil
		}))

	inst, err := f.Create("pair", Args{Positional: []any{9}, Keyword: map[string]any{"b": 99}})
	require.NoError(t, err)
	got := inst.(*pair)
	assert.Equal(t, 9, got.a)
	assert.Equal(t, 99, got.b)
}
