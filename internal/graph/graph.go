// Package graph implements the two-phase build/connect workflow that turns
// a set of named node instances and their declared upstream connections
// into an executable graph: Build finalizes the node set, and Connect
// derives precedence edges from upstream connections and rejects cycles.
package graph

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/vk/easywork/internal/convert"
	"github.com/vk/easywork/internal/ewerr"
	"github.com/vk/easywork/internal/methodreg"
	"github.com/vk/easywork/internal/node"
	"github.com/vk/easywork/internal/stopflag"
	"github.com/vk/easywork/internal/typeid"
)

// Assembler owns the named node set for one graph instance.
type Assembler struct {
	mu    sync.Mutex
	nodes map[string]*node.Node
	order []string // insertion order, used as the default execution order

	built     bool
	connected bool
	stop      *stopflag.Flag
}

// New returns an empty Assembler.
func New() *Assembler {
	return &Assembler{
		nodes: make(map[string]*node.Node),
		stop:  stopflag.New(),
	}
}

// AddNode registers impl under name, wrapping it with node.New. AddNode may
// only be called before Build.
func (a *Assembler) AddNode(name string, impl any) (*node.Node, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.built {
		return nil, &ewerr.AssemblyError{Reason: "cannot add nodes after Build"}
	}
	if _, exists := a.nodes[name]; exists {
		return nil, &ewerr.AssemblyError{Reason: fmt.Sprintf("node %q already exists", name)}
	}
	n, err := node.New(name, impl)
	if err != nil {
		return nil, &ewerr.AssemblyError{Reason: err.Error()}
	}
	a.nodes[name] = n
	a.order = append(a.order, name)
	return n, nil
}

// Node looks up a registered node by name.
func (a *Assembler) Node(name string) (*node.Node, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n, ok := a.nodes[name]
	return n, ok
}

// Nodes returns all registered nodes in insertion order.
func (a *Assembler) Nodes() []*node.Node {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*node.Node, len(a.order))
	for i, name := range a.order {
		out[i] = a.nodes[name]
	}
	return out
}

// StopFlag returns the graph's shared cooperative-stop flag.
func (a *Assembler) StopFlag() *stopflag.Flag {
	return a.stop
}

// AddUpstream declares that toName's named method receives fromName's
// output, by name rather than by *node.Node reference. Must be called
// before Build; upstream connections are consumed into precedence edges
// when Connect runs.
func (a *Assembler) AddUpstream(fromName, toName, methodName string) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.built {
		return 0, &ewerr.AssemblyError{Reason: "cannot add connections after Build"}
	}
	from, ok := a.nodes[fromName]
	if !ok {
		return 0, &ewerr.AssemblyError{Reason: fmt.Sprintf("unknown upstream node %q", fromName)}
	}
	to, ok := a.nodes[toName]
	if !ok {
		return 0, &ewerr.AssemblyError{Reason: fmt.Sprintf("unknown downstream node %q", toName)}
	}
	return to.AddUpstream(from, methodName), nil
}

// Build finalizes the node set: it attaches the shared stop flag to every
// node and freezes AddNode/AddUpstream.
func (a *Assembler) Build() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.built {
		return &ewerr.AssemblyError{Reason: "Build already called"}
	}
	for _, n := range a.nodes {
		n.AttachStopFlag(a.stop)
	}
	a.built = true
	return nil
}

// Connect derives the precedence graph from every node's declared upstream
// connections and rejects it if a cycle exists. Connect may only be called
// once, after Build.
func (a *Assembler) Connect() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.built {
		return &ewerr.AssemblyError{Reason: "Connect called before Build"}
	}
	if a.connected {
		return &ewerr.AssemblyError{Reason: "Connect already called"}
	}

	edges := make(map[string][]string) // name -> downstream names
	for _, name := range a.order {
		edges[name] = nil
	}
	for _, name := range a.order {
		n := a.nodes[name]
		for _, u := range n.Upstreams() {
			edges[u.Upstream.Name] = append(edges[u.Upstream.Name], name)
		}
	}

	if cyc := detectCycle(a.order, edges); cyc != "" {
		return &ewerr.AssemblyError{Reason: fmt.Sprintf("cycle detected involving node %q", cyc)}
	}

	a.connected = true
	return nil
}

// detectCycle runs a classic three-color DFS over the dependents graph.
func detectCycle(order []string, edges map[string][]string) string {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var cycleNode string
	var visit func(name string) bool
	visit = func(name string) bool {
		if permanent[name] {
			return false
		}
		if temporary[name] {
			cycleNode = name
			return true
		}
		temporary[name] = true
		for _, next := range edges[name] {
			if visit(next) {
				return true
			}
		}
		delete(temporary, name)
		permanent[name] = true
		return false
	}

	for _, name := range order {
		if !permanent[name] {
			if visit(name) {
				return cycleNode
			}
		}
	}
	return ""
}

// Validate checks every node's declared upstream connections against its
// class's method table and reports all mismatches at once, rather than
// failing at the first bad dispatch during execution: arity (connected-port
// count vs. declared argument count) and, per connected port, whether the
// upstream's declared output type reaches the target argument type at all —
// equal, convertible via the global TypeConverterRegistry, or a numeric-kind
// pair the runtime widens automatically.
func (a *Assembler) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var mismatches []string
	for _, name := range a.order {
		n := a.nodes[name]
		table := n.Table()
		var groups []methodreg.ID
		grouped := make(map[methodreg.ID][]node.UpstreamConnection)
		for _, u := range n.Upstreams() {
			if _, seen := grouped[u.MethodID]; !seen {
				groups = append(groups, u.MethodID)
			}
			grouped[u.MethodID] = append(grouped[u.MethodID], u)
		}
		for _, id := range groups {
			conns := grouped[id]
			meta, ok := table.Lookup(id)
			if !ok {
				mismatches = append(mismatches, fmt.Sprintf("node %q: no method registered for id %d", name, id))
				continue
			}
			if len(meta.ArgTypes) != len(conns) {
				mismatches = append(mismatches, fmt.Sprintf(
					"node %q: method %q expects %d args, %d upstream port(s) connected",
					name, meta.Name, len(meta.ArgTypes), len(conns)))
				continue
			}
			for i, u := range conns {
				upstreamMeta, ok := u.Upstream.Table().Lookup(methodreg.IDForward)
				if !ok {
					continue
				}
				target := meta.ArgTypes[i]
				if typeCompatible(upstreamMeta.ReturnType.Type(), target.Type()) {
					continue
				}
				mismatches = append(mismatches, fmt.Sprintf(
					"node %q: method %q port %d: upstream %q produces %s, not assignable to %s",
					name, meta.Name, i, u.Upstream.Name, upstreamMeta.ReturnType, target))
			}
		}
	}
	if len(mismatches) > 0 {
		return &ewerr.ValidationError{Mismatches: mismatches}
	}
	return nil
}

// typeCompatible reports whether a value of type from can reach a parameter
// of type to: equal, an interface that from implements (mirroring
// valuebox.CastTo's own reflect.Type.Implements check), registered in the
// global TypeConverterRegistry, or both predeclared int/uint/float types,
// which the runtime widens without requiring an explicit converter
// registration.
func typeCompatible(from, to reflect.Type) bool {
	if from == nil || to == nil {
		return true
	}
	if from == to {
		return true
	}
	if to.Kind() == reflect.Interface && from.Implements(to) {
		return true
	}
	fromDesc, toDesc := typeid.OfType(from), typeid.OfType(to)
	if fromDesc.Equal(toDesc) {
		return true
	}
	if convert.Global.Has(fromDesc, toDesc) {
		return true
	}
	return isNumericKind(from.Kind()) && isNumericKind(to.Kind()) &&
		from.PkgPath() == "" && to.PkgPath() == ""
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// Reset clears every node's output slot, lowers the stop flag, and unfreezes
// built/connected, so a subsequent Build/Connect pair re-runs cleanly on the
// same node set instead of failing with "Build already called". The node
// set and its declared upstream connections are untouched: Reset re-arms the
// lifecycle, it does not undo AddNode/AddUpstream.
func (a *Assembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stop.Reset()
	a.built = false
	a.connected = false
	for _, name := range a.order {
		a.nodes[name].ClearOutput()
	}
}
