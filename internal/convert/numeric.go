package convert

import (
	"reflect"

	"github.com/vk/easywork/internal/typeid"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// numericKinds are the built-in numerically coercible types: every
// predeclared Go integer and floating-point type (int32, int64, float32 and
// float64 among them, plus int, the type untyped integer constants default to).
var numericKinds = []reflect.Type{
	reflect.TypeOf(int(0)),
	reflect.TypeOf(int8(0)),
	reflect.TypeOf(int16(0)),
	reflect.TypeOf(int32(0)),
	reflect.TypeOf(int64(0)),
	reflect.TypeOf(uint(0)),
	reflect.TypeOf(uint8(0)),
	reflect.TypeOf(uint16(0)),
	reflect.TypeOf(uint32(0)),
	reflect.TypeOf(uint64(0)),
	reflect.TypeOf(float32(0)),
	reflect.TypeOf(float64(0)),
}

// registerNumericCoercions wires the built-in numeric widening table using
// go-cty's arbitrary-precision cty.Number as the intermediate
// representation.
func registerNumericCoercions(r *Registry) {
	for _, from := range numericKinds {
		for _, to := range numericKinds {
			if from == to {
				continue
			}
			from, to := from, to
			fromDesc := typeid.OfType(from)
			toDesc := typeid.OfType(to)
			_ = r.Register(fromDesc, toDesc, func(payload any) (any, error) {
				return numericConvert(payload, to)
			})
		}
	}
}

func numericConvert(payload any, to reflect.Type) (any, error) {
	ctyVal, err := gocty.ToCtyValue(payload, cty.Number)
	if err != nil {
		return nil, err
	}
	targetPtr := reflect.New(to)
	if err := gocty.FromCtyValue(ctyVal, targetPtr.Interface()); err != nil {
		return nil, err
	}
	return targetPtr.Elem().Interface(), nil
}
