package convert

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/easywork/internal/typeid"
)

// ctyValueComparer lets go-cmp compare cty.Value correctly: cty.Value wraps
// an unexported implementation behind its own equality semantics
// (RawEquals), which reflect-based equality (including testify's
// assert.Equal) cannot be trusted to reproduce.
var ctyValueComparer = cmp.Comparer(func(a, b cty.Value) bool {
	return a.RawEquals(b)
})

func TestNumericConvert_Float64ToInt32(t *testing.T) {
	out, err := numericConvert(float64(7), reflect.TypeOf(int32(0)))
	require.NoError(t, err)
	assert.Equal(t, int32(7), out)
}

func TestRegistry_NumericWideningTable_RoundTrips(t *testing.T) {
	r := New()
	registerNumericCoercions(r)

	out, err := r.Convert(int32(42), typeid.OfType(reflect.TypeOf(int32(0))), typeid.OfType(reflect.TypeOf(float64(0))))
	require.NoError(t, err)
	assert.Equal(t, float64(42), out)

	back, err := r.Convert(out, typeid.OfType(reflect.TypeOf(float64(0))), typeid.OfType(reflect.TypeOf(int32(0))))
	require.NoError(t, err)
	assert.Equal(t, int32(42), back)
}

func TestCtyValueComparer_DetectsEqualAndUnequalNumbers(t *testing.T) {
	a, err := gocty.ToCtyValue(int64(5), cty.Number)
	require.NoError(t, err)
	b, err := gocty.ToCtyValue(int64(5), cty.Number)
	require.NoError(t, err)
	c, err := gocty.ToCtyValue(int64(6), cty.Number)
	require.NoError(t, err)

	assert.True(t, cmp.Equal(a, b, ctyValueComparer))
	assert.False(t, cmp.Equal(a, c, ctyValueComparer))
}
