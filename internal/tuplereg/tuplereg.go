// Package tuplereg implements the tuple registry and TupleGetNode family.
//
// A "tuple type" here is any Go struct registered via Register[T]; its
// fields (in declaration order) play the role of tuple elements. A
// TupleGetNode projects one field out to its own output each pass.
package tuplereg

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/vk/easywork/internal/methodreg"
	"github.com/vk/easywork/internal/node"
	"github.com/vk/easywork/internal/typeid"
)

type entry struct {
	size   int
	fields []reflect.StructField
	typ    reflect.Type
}

type registry struct {
	mu      sync.Mutex
	entries map[uint64]entry
}

var global = &registry{entries: make(map[uint64]entry)}

// Register records T's field layout as a tuple type. It is idempotent:
// registering the same T twice is not an error.
func Register[T any]() {
	var zero T
	t := reflect.TypeOf(zero)
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("tuplereg: %s is not a struct", t))
	}
	key := typeid.Of(zero).Key()

	global.mu.Lock()
	defer global.mu.Unlock()
	if _, ok := global.entries[key]; ok {
		return
	}
	fields := make([]reflect.StructField, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		fields[i] = t.Field(i)
	}
	global.entries[key] = entry{size: t.NumField(), fields: fields, typ: t}
}

// Size returns the number of elements in the tuple type identified by desc,
// or 0 if it was never registered.
func Size(desc typeid.Descriptor) int {
	global.mu.Lock()
	defer global.mu.Unlock()
	e, ok := global.entries[desc.Key()]
	if !ok {
		return 0
	}
	return e.size
}

// getNode is the runtime node-class behind every TupleGetNode: it holds a
// fixed field index and projects that field out of whatever tuple struct
// its single upstream forwards.
type getNode struct {
	index int
}

// Forward extracts getNode's configured field from the incoming tuple
// struct. The incoming struct is accepted as `any` because its concrete
// type varies per registered tuple; the extraction happens by direct
// reflection rather than through a compile-time-known argument type.
func (g *getNode) Forward(in any) (any, error) {
	v := reflect.ValueOf(in)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct || g.index >= v.NumField() {
		return nil, fmt.Errorf("tuplereg: index %d out of range for %T", g.index, in)
	}
	return v.Field(g.index).Interface(), nil
}

func init() {
	if err := methodreg.Register[getNode]("Forward"); err != nil {
		panic(err)
	}
}

// CreateTupleGetNode builds a new graph node that extracts field `index`
// from tuple type desc each time it receives one. desc must have been
// registered via Register for some T with at least index+1 fields.
func CreateTupleGetNode(name string, desc typeid.Descriptor, index int) (*node.Node, error) {
	global.mu.Lock()
	e, ok := global.entries[desc.Key()]
	global.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("tuplereg: type %s not registered for TupleGetNode", desc)
	}
	if index < 0 || index >= e.size {
		return nil, fmt.Errorf("tuplereg: index %d out of range for tuple type %s (size %d)", index, desc, e.size)
	}
	return node.New(name, &getNode{index: index})
}
