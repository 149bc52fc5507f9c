// Package nodefactory implements a name-keyed registry of node-class
// constructors, resolving positional and keyword arguments against each
// class's declared parameter list (name + default), independently of
// methodreg's compile-time method tables.
package nodefactory

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/vk/easywork/internal/ewerr"
)

// Args is the positional/keyword argument bundle a caller supplies when
// creating a node instance: some parameters by position, some by name.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

// ParamSpec is one declared constructor parameter: its name (for keyword
// lookup and its position in the positional list) plus the value used when
// the caller supplies neither. A Required parameter has no usable default;
// Create rejects its absence with a FactoryError instead of falling back.
type ParamSpec struct {
	Name     string
	Default  any
	Required bool
}

// Ctor builds one node-class instance (typically a pointer, e.g. *Counter)
// from its resolved parameters, keyed by ParamSpec.Name. The returned
// value's class must already be registered with methodreg before the
// instance is handed to a graph.
type Ctor func(resolved map[string]any) (any, error)

type entry struct {
	params []ParamSpec
	ctor   Ctor
}

// Factory is a name -> constructor registry. The zero value is not usable;
// use New.
type Factory struct {
	mu      sync.RWMutex
	classes map[string]entry
}

// New returns an empty Factory.
func New() *Factory {
	return &Factory{classes: make(map[string]entry)}
}

// Register installs ctor under name with the given declared parameters.
// Registering the same name twice is an error. params may be empty for a
// zero-argument node class.
func (f *Factory) Register(name string, params []ParamSpec, ctor Ctor) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.classes[name]; exists {
		return fmt.Errorf("nodefactory: %q already registered", name)
	}
	f.classes[name] = entry{params: append([]ParamSpec(nil), params...), ctor: ctor}
	return nil
}

// RegisterDefault registers a zero-argument constructor for T, for node
// classes with no parameters.
func RegisterDefault[T any](f *Factory, name string) error {
	return f.Register(name, nil, func(map[string]any) (any, error) {
		var zero T
		return &zero, nil
	})
}

// Create builds a new instance of the node class registered under name,
// resolving args against that class's declared parameters before invoking
// its constructor.
func (f *Factory) Create(name string, args Args) (any, error) {
	f.mu.RLock()
	e, ok := f.classes[name]
	f.mu.RUnlock()
	if !ok {
		return nil, &ewerr.FactoryError{Node: name, Reason: "unknown node type"}
	}
	resolved, missing := resolve(e.params, args)
	if len(missing) > 0 {
		return nil, &ewerr.FactoryError{
			Node:   name,
			Reason: fmt.Sprintf("missing required parameter(s): %s", strings.Join(missing, ", ")),
		}
	}
	return e.ctor(resolved)
}

func resolve(params []ParamSpec, args Args) (map[string]any, []string) {
	resolved := make(map[string]any, len(params))
	var missing []string
	for i, p := range params {
		if v, ok := lookup(args, p.Name, i); ok {
			resolved[p.Name] = v
			continue
		}
		if p.Required {
			missing = append(missing, p.Name)
			continue
		}
		resolved[p.Name] = p.Default
	}
	return resolved, missing
}

func lookup(args Args, name string, index int) (any, bool) {
	if index >= 0 && index < len(args.Positional) {
		return args.Positional[index], true
	}
	if args.Keyword != nil {
		if v, ok := args.Keyword[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// IsRegistered reports whether name has a registered constructor.
func (f *Factory) IsRegistered(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.classes[name]
	return ok
}

// Names returns every registered node-type name, sorted.
func (f *Factory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.classes))
	for name := range f.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Extract coerces a resolved parameter to T, falling back to def if absent
// or if the stored value cannot be coerced. A Ctor calls this once per
// parameter to turn the untyped `resolved` map into typed fields.
func Extract[T any](resolved map[string]any, name string, def T) T {
	v, ok := resolved[name]
	if !ok || v == nil {
		return def
	}
	coerced, ok := coerce[T](v)
	if !ok {
		return def
	}
	return coerced
}

func coerce[T any](v any) (T, bool) {
	var zero T
	if t, ok := v.(T); ok {
		return t, true
	}
	target := reflect.TypeOf(zero)
	if target == nil {
		// T is an interface type (e.g. any) holding a nil zero value;
		// the direct assertion above is authoritative for it.
		return zero, false
	}
	rv := reflect.ValueOf(v)
	if rv.IsValid() && rv.Type().ConvertibleTo(target) {
		converted, ok := rv.Convert(target).Interface().(T)
		return converted, ok
	}
	return zero, false
}
