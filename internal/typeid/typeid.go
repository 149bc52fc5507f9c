// Package typeid provides the runtime identity of a Go type: a stable,
// map-usable key plus a human-readable name.
package typeid

import (
	"hash/fnv"
	"reflect"
)

// Descriptor is the identity of a type T, created lazily on first reference
// and immutable thereafter. Two descriptors are equal iff their Key()s match
// and, when both carry a reflect.Type, those types are identical.
type Descriptor struct {
	key  uint64
	name string
	typ  reflect.Type
}

var voidDescriptor = Descriptor{key: hashName("void"), name: "void", typ: nil}

// Void returns the canonical descriptor used by an empty ValueBox/Packet.
func Void() Descriptor { return voidDescriptor }

// Of returns the descriptor for the runtime type of v. If v is untyped nil,
// the canonical void descriptor is returned.
func Of(v any) Descriptor {
	if v == nil {
		return voidDescriptor
	}
	return OfType(reflect.TypeOf(v))
}

// OfType returns the descriptor for the given reflect.Type.
func OfType(t reflect.Type) Descriptor {
	if t == nil {
		return voidDescriptor
	}
	return Descriptor{key: hashName(t.String()), name: t.String(), typ: t}
}

// Key is the stable, map-usable identity of the type.
func (d Descriptor) Key() uint64 { return d.key }

// Name is the human-readable name of the type.
func (d Descriptor) Name() string { return d.name }

// Type returns the underlying reflect.Type, or nil for the void descriptor.
func (d Descriptor) Type() reflect.Type { return d.typ }

// IsVoid reports whether this descriptor denotes the absence of a value.
func (d Descriptor) IsVoid() bool { return d.key == voidDescriptor.key }

// Equal reports whether two descriptors denote the same type.
func (d Descriptor) Equal(other Descriptor) bool {
	if d.key != other.key {
		return false
	}
	// Keys hash reflect.Type.String(), which qualifies a named type by its
	// package name only, so two distinct types can share a key; the type
	// itself is the real ground truth whenever both sides carry one.
	if d.typ != nil && other.typ != nil {
		return d.typ == other.typ
	}
	return true
}

func (d Descriptor) String() string { return d.name }

// hashName derives the stable key from a type's name (reflect.Type.String())
// using FNV-1a, the same hash methodreg.Hash uses for method-ids.
func hashName(name string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}
