// Package node implements the Node runtime instance: upstream connections,
// per-method policy, per-port input buffers, lifecycle flags, and the
// current output slot.
package node

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/easywork/internal/ctxlog"
	"github.com/vk/easywork/internal/ewerr"
	"github.com/vk/easywork/internal/methodreg"
	"github.com/vk/easywork/internal/packet"
	"github.com/vk/easywork/internal/stopflag"
)

// MethodPolicy is a method's per-node dispatch configuration.
type MethodPolicy struct {
	SyncEnabled bool
	MaxQueue    int // 0 means unbounded
}

// UpstreamConnection records one incoming edge: which upstream node feeds
// which of this node's methods, at which port index.
type UpstreamConnection struct {
	Upstream *Node
	MethodID methodreg.ID
	Port     int
}

// Node is a vertex in the graph. The zero value is not usable; use New.
type Node struct {
	// Name is the human-readable, user-declared instance name.
	Name string

	impl  any
	table *methodreg.ClassTable

	mu          sync.Mutex
	upstreams   []UpstreamConnection
	buffers     [][]packet.Packet
	policy      map[methodreg.ID]MethodPolicy
	order       []methodreg.ID
	customOrder bool

	output packet.Packet
	opened bool

	stop *stopflag.Flag
}

// New wraps impl (a pointer to a node-class instance, e.g. *Counter) as a
// graph Node. impl's class must already be registered via methodreg.Register.
func New(name string, impl any) (*Node, error) {
	table, ok := methodreg.TableForValue(impl)
	if !ok {
		return nil, fmt.Errorf("node: class %T is not registered with methodreg", impl)
	}
	return &Node{
		Name:   name,
		impl:   impl,
		table:  table,
		policy: make(map[methodreg.ID]MethodPolicy),
	}, nil
}

// Impl returns the underlying node-class instance.
func (n *Node) Impl() any { return n.impl }

// Table returns the node class's immutable method registry.
func (n *Node) Table() *methodreg.ClassTable { return n.table }

// AttachStopFlag binds the graph's cooperative-stop flag, done by
// GraphAssembler during Build.
func (n *Node) AttachStopFlag(f *stopflag.Flag) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stop = f
}

// Stop signals the graph's executor to exit after the current pass.
func (n *Node) Stop() {
	n.mu.Lock()
	f := n.stop
	n.mu.Unlock()
	if f != nil {
		f.Stop()
	}
}

// AddUpstream connects upstream's output to this node's method `methodName`
// (default "Forward" if empty), appending a new port. Returns the new
// port's index.
func (n *Node) AddUpstream(upstream *Node, methodName string) int {
	if methodName == "" {
		methodName = "Forward"
	}
	id := methodreg.Hash(methodName)

	n.mu.Lock()
	defer n.mu.Unlock()
	port := len(n.upstreams)
	n.upstreams = append(n.upstreams, UpstreamConnection{Upstream: upstream, MethodID: id, Port: port})
	n.buffers = append(n.buffers, nil)
	if !n.customOrder {
		n.order = defaultOrderLocked(n)
	}
	return port
}

// ClearUpstreams removes all upstream connections and their buffers. A
// customized method-order survives a clear; only the default
// (connection-derived) order is recomputed.
func (n *Node) ClearUpstreams() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.upstreams = nil
	n.buffers = nil
	if !n.customOrder {
		n.order = nil
	}
}

// Upstreams returns a snapshot of the node's upstream connections.
func (n *Node) Upstreams() []UpstreamConnection {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]UpstreamConnection, len(n.upstreams))
	copy(out, n.upstreams)
	return out
}

// SetMethodOrder overrides the attempt order for this node's methods.
// ID_FORWARD is always forced last, even in a custom order.
func (n *Node) SetMethodOrder(names []string) {
	ids := make([]methodreg.ID, 0, len(names))
	for _, name := range names {
		ids = append(ids, methodreg.Hash(name))
	}
	ids = forwardLast(ids)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.order = ids
	n.customOrder = true
}

// EffectiveOrder returns the method-order to use for the next dispatch
// pass: the custom order if one was set, else the default (insertion order
// of method-ids observed through connections, forward last).
func (n *Node) EffectiveOrder() []methodreg.ID {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]methodreg.ID, len(n.order))
	copy(out, n.order)
	return out
}

func defaultOrderLocked(n *Node) []methodreg.ID {
	seen := make(map[methodreg.ID]bool)
	var ids []methodreg.ID
	for _, u := range n.upstreams {
		if !seen[u.MethodID] {
			seen[u.MethodID] = true
			ids = append(ids, u.MethodID)
		}
	}
	return forwardLast(ids)
}

func forwardLast(ids []methodreg.ID) []methodreg.ID {
	out := make([]methodreg.ID, 0, len(ids))
	hasForward := false
	for _, id := range ids {
		if id == methodreg.IDForward {
			hasForward = true
			continue
		}
		out = append(out, id)
	}
	if hasForward {
		out = append(out, methodreg.IDForward)
	}
	return out
}

// SetMethodSync enables or disables timestamp-alignment for a method.
func (n *Node) SetMethodSync(name string, enabled bool) {
	id := methodreg.Hash(name)
	n.mu.Lock()
	defer n.mu.Unlock()
	p := n.policy[id]
	p.SyncEnabled = enabled
	n.policy[id] = p
}

// SetMethodQueueSize bounds a method's per-port FIFO. size=0 means
// unbounded.
func (n *Node) SetMethodQueueSize(name string, size int) {
	id := methodreg.Hash(name)
	n.mu.Lock()
	defer n.mu.Unlock()
	p := n.policy[id]
	p.MaxQueue = size
	n.policy[id] = p
}

// Policy returns the current policy for a method-id.
func (n *Node) Policy(id methodreg.ID) MethodPolicy {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.policy[id]
}

// EnqueuePort appends a packet to port p's FIFO, honoring max_queue by
// dropping the oldest entries if the bound would be exceeded.
func (n *Node) EnqueuePort(port int, methodID methodreg.ID, p packet.Packet) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.buffers[port] = append(n.buffers[port], p)
	max := n.policy[methodID].MaxQueue
	if max > 0 {
		if over := len(n.buffers[port]) - max; over > 0 {
			n.buffers[port] = n.buffers[port][over:]
		}
	}
}

// PortLen returns the number of buffered packets at port.
func (n *Node) PortLen(port int) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.buffers[port])
}

// PortFront returns (without removing) the oldest packet at port.
func (n *Node) PortFront(port int) (packet.Packet, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.buffers[port]) == 0 {
		return packet.Packet{}, false
	}
	return n.buffers[port][0], true
}

// PortPop removes and returns the oldest packet at port.
func (n *Node) PortPop(port int) (packet.Packet, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.buffers[port]) == 0 {
		return packet.Packet{}, false
	}
	p := n.buffers[port][0]
	n.buffers[port] = n.buffers[port][1:]
	return p, true
}

// PortDropFront removes the oldest packet at port without returning it, used
// by the sync barrier to discard a misaligned front.
func (n *Node) PortDropFront(port int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.buffers[port]) > 0 {
		n.buffers[port] = n.buffers[port][1:]
	}
}

// Output returns the node's current output slot.
func (n *Node) Output() packet.Packet {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.output
}

// SetOutput overwrites the output slot. The last write within a dispatch
// pass wins.
func (n *Node) SetOutput(p packet.Packet) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.output = p
}

// ClearOutput empties the output slot, used at the start of a pass.
func (n *Node) ClearOutput() {
	n.SetOutput(packet.Empty())
}

// IsOpen reports whether the node is currently opened.
func (n *Node) IsOpen() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.opened
}

// Open transitions idle->opened, invoking ID_OPEN if the class registered
// one. A missing ID_OPEN is not an error. Double-Open is a no-op: it logs a
// LifecycleWarning through ctx's logger rather than erroring.
func (n *Node) Open(ctx context.Context, args []packet.Packet) error {
	n.mu.Lock()
	if n.opened {
		n.mu.Unlock()
		logLifecycleWarning(ctx, n.Name, "Open called on an already-opened node")
		return nil
	}
	n.opened = true
	n.mu.Unlock()

	if meta, ok := n.table.Lookup(methodreg.IDOpen); ok {
		_, err := meta.Invoke(n.impl, args)
		return err
	}
	return nil
}

// Close transitions opened->idle, invoking ID_CLOSE if registered. Double-
// Close is likewise a no-op that logs a LifecycleWarning instead of erroring.
func (n *Node) Close(ctx context.Context, args []packet.Packet) error {
	n.mu.Lock()
	if !n.opened {
		n.mu.Unlock()
		logLifecycleWarning(ctx, n.Name, "Close called on an already-closed node")
		return nil
	}
	n.opened = false
	n.mu.Unlock()

	if meta, ok := n.table.Lookup(methodreg.IDClose); ok {
		_, err := meta.Invoke(n.impl, args)
		return err
	}
	return nil
}

// logLifecycleWarning reports a non-fatal lifecycle misuse (double Open,
// double Close, Dispatch while idle) without failing the caller.
func logLifecycleWarning(ctx context.Context, nodeName, reason string) {
	w := &ewerr.LifecycleWarning{Node: nodeName, Reason: reason}
	ctxlog.FromContext(ctx).Warn(w.Error())
}

// Invoke is the public type-erased call used by tools and tests to eagerly
// call a method outside the normal dispatch pass. It runs the same
// registered invoker that Open/Close call for ID_OPEN/ID_CLOSE.
func (n *Node) Invoke(methodName string, args []packet.Packet) (packet.Packet, error) {
	id := methodreg.Hash(methodName)
	meta, ok := n.table.Lookup(id)
	if !ok {
		return packet.Empty(), fmt.Errorf("node: method %q not registered on %T: %w", methodName, n.impl, methodreg.ErrUnknownMethod)
	}
	return meta.Invoke(n.impl, args)
}

// TypeInfo exposes the method-id -> {arg types, return type} map alongside
// the class name and exposed method names, for embedders that need runtime
// introspection of a node's shape.
type TypeInfo struct {
	ClassName string
	Methods   map[methodreg.ID]MethodTypeInfo
}

// MethodTypeInfo is one method's declared signature.
type MethodTypeInfo struct {
	Name       string
	ArgTypes   []string
	ReturnType string
}

// Describe builds this node's TypeInfo snapshot.
func (n *Node) Describe() TypeInfo {
	out := TypeInfo{Methods: make(map[methodreg.ID]MethodTypeInfo)}
	for id, meta := range n.table.Methods() {
		args := make([]string, len(meta.ArgTypes))
		for i, a := range meta.ArgTypes {
			args[i] = a.Name()
		}
		out.Methods[id] = MethodTypeInfo{Name: meta.Name, ArgTypes: args, ReturnType: meta.ReturnType.Name()}
	}
	out.ClassName = fmt.Sprintf("%T", n.impl)
	return out
}
