// Package convert holds the process-global TypeConverterRegistry: a
// write-once-at-init, read-many table of pairwise value converters keyed by
// (source, target) type descriptor, plus the built-in numeric coercions.
package convert

import (
	"fmt"
	"sync"

	"github.com/vk/easywork/internal/typeid"
)

// Func converts a payload of a registered source type into the registered
// target type, or reports an error.
type Func func(payload any) (any, error)

type key struct {
	from uint64
	to   uint64
}

// Registry is a process-scoped table of pairwise converters. The zero value
// is not usable; use New.
type Registry struct {
	mu         sync.RWMutex
	converters map[key]Func
	sealed     bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{converters: make(map[key]Func)}
}

// Register installs a converter from `from` to `to`. Registering a pair
// twice, or registering after the registry has been Seal()ed, is an error —
// the global registries in this runtime are write-once during
// initialization and read-only thereafter.
func (r *Registry) Register(from, to typeid.Descriptor, fn Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("convert: registry is sealed, cannot register %s->%s", from, to)
	}
	k := key{from.Key(), to.Key()}
	if _, exists := r.converters[k]; exists {
		return fmt.Errorf("convert: converter %s->%s already registered", from, to)
	}
	r.converters[k] = fn
	return nil
}

// Seal prevents further registration. Call once at the end of process
// initialization.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Has reports whether a converter from `from` to `to` is registered.
func (r *Registry) Has(from, to typeid.Descriptor) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.converters[key{from.Key(), to.Key()}]
	return ok
}

// Convert runs the registered converter from `from` to `to`, or reports
// ErrNoConverter if none is registered. In the casting path,
// valuebox.CastTo wraps the failure and methodreg's invokers report it as a
// typed ConversionError.
func (r *Registry) Convert(payload any, from, to typeid.Descriptor) (any, error) {
	r.mu.RLock()
	fn, ok := r.converters[key{from.Key(), to.Key()}]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNoConverter
	}
	return fn(payload)
}

// ErrNoConverter is returned by Convert when no converter is registered for
// the requested pair.
var ErrNoConverter = fmt.Errorf("convert: no converter registered")

// Global is the process-wide converter registry used by valuebox.CastTo and
// valuebox.Cast when no explicit registry is supplied. It is seeded with the built-in
// numeric coercions at init time and sealed immediately after.
var Global = New()

func init() {
	registerNumericCoercions(Global)
	Global.Seal()
}
