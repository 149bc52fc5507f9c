// Package methodreg builds and stores, per node class, the compile-time
// table mapping method-id to an invoker, its declared argument types, and
// its return type.
package methodreg

import (
	"errors"
	"fmt"
	"hash/fnv"
	"reflect"
	"sync"

	"github.com/vk/easywork/internal/ewerr"
	"github.com/vk/easywork/internal/packet"
	"github.com/vk/easywork/internal/typeid"
	"github.com/vk/easywork/internal/valuebox"
)

// ID is the 64-bit hash of a method name, used as a stable key across
// MethodRegistry, per-node policy maps, and method-order lists.
type ID uint64

// Hash computes the method-id for a name using FNV-1a.
func Hash(name string) ID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return ID(h.Sum64())
}

// Well-known method ids. Go reflection can only invoke exported methods
// across packages, so the default pass-through method is exposed as
// "Forward" and hashed under that spelling.
var (
	IDForward = Hash("Forward")
	IDOpen    = Hash("Open")
	IDClose   = Hash("Close")
)

// Invoker is the type-erased call signature every registered method is
// reduced to: a pointer to the node instance plus a list of Packets in,
// one Packet out.
type Invoker func(nodePtr any, args []packet.Packet) (packet.Packet, error)

// MethodMeta is one class's registered method: its invoker plus the
// TypeDescriptors that drove its construction.
type MethodMeta struct {
	ID         ID
	Name       string
	ArgTypes   []typeid.Descriptor
	ReturnType typeid.Descriptor
	Invoke     Invoker
}

// ClassTable is the immutable, class-level method registry shared by every
// node instance of one Go type.
type ClassTable struct {
	class   string
	methods map[ID]*MethodMeta
	// names preserves the declaration order supplied to Register, used as
	// the default method-order basis.
	names []string
}

// Methods returns the registered method metadata, keyed by id.
func (c *ClassTable) Methods() map[ID]*MethodMeta { return c.methods }

// DeclaredOrder returns method-ids in the order they were declared to
// Register, the basis for a node's default method-order.
func (c *ClassTable) DeclaredOrder() []ID {
	out := make([]ID, len(c.names))
	for i, n := range c.names {
		out[i] = Hash(n)
	}
	return out
}

// Lookup returns the metadata for a method-id, if registered.
func (c *ClassTable) Lookup(id ID) (*MethodMeta, bool) {
	m, ok := c.methods[id]
	return m, ok
}

// registry is the process-global, write-once-at-init-time table of class
// name -> ClassTable.
type registry struct {
	mu      sync.RWMutex
	classes map[string]*ClassTable
}

var global = &registry{classes: make(map[string]*ClassTable)}

// Register builds a ClassTable for T by reflecting over the named exported
// methods on *T, and installs it in the global registry. Each method-id
// must appear exactly once; registering the same class twice is an error.
// Node authors call Register explicitly, typically from their package's
// init().
func Register[T any](methodNames ...string) error {
	var zero T
	ptrType := reflect.PtrTo(reflect.TypeOf(zero))
	class := ptrType.Elem().String()

	global.mu.Lock()
	defer global.mu.Unlock()
	if _, exists := global.classes[class]; exists {
		return fmt.Errorf("methodreg: class %q already registered", class)
	}

	table := &ClassTable{class: class, methods: make(map[ID]*MethodMeta), names: append([]string(nil), methodNames...)}
	for _, name := range methodNames {
		meta, err := buildMethodMeta(ptrType, name)
		if err != nil {
			return fmt.Errorf("methodreg: class %q: %w", class, err)
		}
		if _, dup := table.methods[meta.ID]; dup {
			return fmt.Errorf("methodreg: class %q: method-id collision for %q", class, name)
		}
		table.methods[meta.ID] = meta
	}
	global.classes[class] = table
	return nil
}

// TableFor returns the ClassTable registered for T, if any.
func TableFor[T any]() (*ClassTable, bool) {
	var zero T
	class := reflect.PtrTo(reflect.TypeOf(zero)).Elem().String()
	global.mu.RLock()
	defer global.mu.RUnlock()
	t, ok := global.classes[class]
	return t, ok
}

// TableForValue returns the ClassTable registered for the dynamic type of
// nodePtr (a *T), if any. Used by generic graph-assembly code that only
// holds node instances as `any`.
func TableForValue(nodePtr any) (*ClassTable, bool) {
	t := reflect.TypeOf(nodePtr)
	global.mu.RLock()
	defer global.mu.RUnlock()
	ct, ok := global.classes[t.Elem().String()]
	return ct, ok
}

func buildMethodMeta(ptrType reflect.Type, name string) (*MethodMeta, error) {
	m, ok := ptrType.MethodByName(name)
	if !ok {
		return nil, fmt.Errorf("method %q not found on %s", name, ptrType)
	}
	fnType := m.Func.Type() // includes receiver as In(0)
	numArgs := fnType.NumIn() - 1
	argTypes := make([]typeid.Descriptor, numArgs)
	for i := 0; i < numArgs; i++ {
		argTypes[i] = typeid.OfType(fnType.In(i + 1))
	}

	var retType typeid.Descriptor
	hasErrorOut := false
	switch fnType.NumOut() {
	case 0:
		retType = typeid.Void()
	case 1:
		if fnType.Out(0) == errorType {
			hasErrorOut = true
			retType = typeid.Void()
		} else {
			retType = typeid.OfType(fnType.Out(0))
		}
	case 2:
		if fnType.Out(1) != errorType {
			return nil, fmt.Errorf("method %q: second return value must be error", name)
		}
		hasErrorOut = true
		retType = typeid.OfType(fnType.Out(0))
	default:
		return nil, fmt.Errorf("method %q: too many return values", name)
	}

	id := Hash(name)
	invoke := func(nodePtr any, args []packet.Packet) (packet.Packet, error) {
		if len(args) != numArgs {
			return packet.Empty(), &ewerr.InvocationError{
				Node: fmt.Sprintf("%T", nodePtr), Method: name,
				Err: fmt.Errorf("expected %d args, got %d", numArgs, len(args)),
			}
		}
		argVals := make([]reflect.Value, numArgs)
		for i, p := range args {
			converted, err := valuebox.CastTo(p.Box, argTypes[i], nil)
			if err != nil {
				return packet.Empty(), &ewerr.ConversionError{
					Method: name, Arg: i, From: p.Box.Type().Name(), To: argTypes[i].Name(),
				}
			}
			argVals[i] = reflect.ValueOf(converted)
		}

		methodVal := reflect.ValueOf(nodePtr).MethodByName(name)
		results, err := safeCall(methodVal, argVals)
		if err != nil {
			return packet.Empty(), &ewerr.InvocationError{Node: fmt.Sprintf("%T", nodePtr), Method: name, Err: err}
		}

		if hasErrorOut {
			last := results[len(results)-1]
			if !last.IsNil() {
				return packet.Empty(), &ewerr.InvocationError{Node: fmt.Sprintf("%T", nodePtr), Method: name, Err: last.Interface().(error)}
			}
		}
		if fnType.NumOut() == 0 || (fnType.NumOut() == 1 && hasErrorOut) {
			return packet.Empty(), nil
		}
		return packet.Packet{Box: valuebox.Of(results[0].Interface())}, nil
	}

	return &MethodMeta{ID: id, Name: name, ArgTypes: argTypes, ReturnType: retType, Invoke: invoke}, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// safeCall recovers a panicking method invocation into an error so one
// node's bug cannot take down an entire dispatch pass.
func safeCall(fn reflect.Value, args []reflect.Value) (results []reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()
	return fn.Call(args), nil
}

// ErrUnknownMethod is returned by callers that look up a method-id not
// present in a ClassTable.
var ErrUnknownMethod = errors.New("methodreg: unknown method")
