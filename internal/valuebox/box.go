// Package valuebox implements a type-erased value container with safe
// casting and numeric coercion.
package valuebox

import (
	"fmt"
	"reflect"

	"github.com/vk/easywork/internal/convert"
	"github.com/vk/easywork/internal/typeid"
)

// Box holds a value of unknown static type alongside its TypeDescriptor.
// The zero value is the canonical empty box: HasValue() is false and its
// descriptor is the void descriptor.
type Box struct {
	payload any
	desc    typeid.Descriptor
}

// Empty returns a Box holding no value.
func Empty() Box {
	return Box{desc: typeid.Void()}
}

// Of captures v's runtime type and wraps it in a Box. Of(nil) is equivalent
// to Empty().
func Of(v any) Box {
	if v == nil {
		return Empty()
	}
	return Box{payload: v, desc: typeid.Of(v)}
}

// HasValue reports whether the box holds a value.
func (b Box) HasValue() bool { return b.payload != nil }

// Type returns the box's TypeDescriptor. For an empty box this is always
// the void descriptor.
func (b Box) Type() typeid.Descriptor {
	if b.payload == nil {
		return typeid.Void()
	}
	return b.desc
}

// Raw returns the untyped payload, or nil if the box is empty. Prefer Cast
// or CastTo for typed access.
func (b Box) Raw() any { return b.payload }

// CastTo extracts a value whose runtime type matches target, following an
// ordered cast policy:
//  1. exact descriptor match -> zero-cost extract
//  2. registered converter from the payload's type to target
//  3. built-in numeric coercion among the predeclared integer and float
//     types (registered as ordinary converters, so steps 2 and 3 share one path)
//  4. otherwise, a typed error naming source and target
//
// registry may be nil, in which case convert.Global is used. This reflect-
// driven entry point backs methodreg's invokers, which only know the
// argument's reflect.Type at registration time, not a compile-time U.
func CastTo(b Box, target typeid.Descriptor, registry *convert.Registry) (any, error) {
	if registry == nil {
		registry = convert.Global
	}
	if !b.HasValue() {
		return nil, fmt.Errorf("valuebox: cannot cast empty box to %s", target)
	}
	if b.desc.Equal(target) {
		return b.payload, nil
	}
	if t := target.Type(); t != nil && t.Kind() == reflect.Interface && reflect.TypeOf(b.payload).Implements(t) {
		return b.payload, nil
	}
	converted, err := registry.Convert(b.payload, b.desc, target)
	if err == nil {
		return converted, nil
	}
	return nil, fmt.Errorf("valuebox: cannot cast %s to %s: %w", b.desc, target, err)
}

// Cast extracts a value of type U from the box using the same policy as
// CastTo, for callers that know U at compile time.
func Cast[U any](b Box, registry *convert.Registry) (U, error) {
	var zero U
	target := typeid.Of(zero)
	if !b.HasValue() {
		return zero, fmt.Errorf("valuebox: cannot cast empty box to %s", target)
	}
	// Widen the target descriptor check to reflect.Type equality too, so
	// that casting to an interface type U (whose zero value carries no
	// concrete reflect.Type) still matches an exact payload of a concrete
	// implementing type via ordinary Go type assertion first.
	if v, ok := b.payload.(U); ok && (b.desc.Equal(target) || reflect.TypeOf(zero) == nil) {
		return v, nil
	}
	v, err := CastTo(b, target, registry)
	if err != nil {
		return zero, err
	}
	out, ok := v.(U)
	if !ok {
		return zero, fmt.Errorf("valuebox: converter for %s->%s produced incompatible type", b.desc, target)
	}
	return out, nil
}
