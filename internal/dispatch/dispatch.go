// Package dispatch implements the logic that drives one pass of a single
// node: source detection, per-method input gathering with optional
// timestamp alignment, invocation, and output-slot handoff between
// adjacent nodes.
package dispatch

import (
	"context"

	"github.com/vk/easywork/internal/ctxlog"
	"github.com/vk/easywork/internal/ewerr"
	"github.com/vk/easywork/internal/methodreg"
	"github.com/vk/easywork/internal/node"
	"github.com/vk/easywork/internal/packet"
)

// IsSource reports whether n has no upstream connections.
func IsSource(n *node.Node) bool {
	return len(n.Upstreams()) == 0
}

// portGroup is the set of ports feeding one method-id, in connection order.
type portGroup struct {
	methodID methodreg.ID
	ports    []int
}

// RunPass executes exactly one dispatch pass for n: for a source node, it
// invokes "Forward" with no arguments; for a node with upstreams, it walks
// n's effective method order, and for each method whose every feeding port
// has a buffered packet, pops one packet per port (honoring sync alignment),
// invokes the method, and writes the result to n's output slot. The last
// successful invocation in a pass wins the output slot.
//
// A ConversionError or InvocationError raised by a method invocation is
// caught here, logged, and swallowed: the output slot simply stays empty
// for this pass (it was already cleared above), and the graph keeps running
// rather than halting on one bad packet. RunPass therefore never returns an
// error; ctx is used only to reach the active logger.
func RunPass(ctx context.Context, n *node.Node) {
	if !n.IsOpen() {
		logLifecycleWarning(ctx, n, "Dispatch called on an idle node")
		return
	}

	n.ClearOutput()

	if IsSource(n) {
		runSource(ctx, n)
		return
	}
	runJoin(ctx, n)
}

func runSource(ctx context.Context, n *node.Node) {
	table := n.Table()
	meta, ok := table.Lookup(methodreg.IDForward)
	if !ok {
		return
	}
	if len(meta.ArgTypes) != 0 {
		// A source's forward takes no arguments by construction; a method
		// requiring arguments on a node with no upstreams can never fire.
		return
	}
	out, err := meta.Invoke(n.Impl(), nil)
	if err != nil {
		logDispatchError(ctx, n, err)
		return
	}
	if out.HasValue() {
		out.Ts = packet.NowNs()
		n.SetOutput(out)
	}
}

func runJoin(ctx context.Context, n *node.Node) {
	groups := groupPortsByMethod(n)
	order := n.EffectiveOrder()
	if len(order) == 0 {
		order = defaultOrderFromGroups(n.Table(), groups)
	}

	for _, id := range order {
		grp, ok := groups[id]
		if !ok {
			continue
		}
		tryInvokeGroup(ctx, n, grp)
	}
}

// logDispatchError reports a caught ConversionError/InvocationError without
// propagating it, keeping the graph live under transient per-pass failures.
func logDispatchError(ctx context.Context, n *node.Node, err error) {
	ctxlog.FromContext(ctx).Warn("dispatch error", "node", n.Name, "error", err)
}

// logLifecycleWarning reports a non-fatal lifecycle misuse — here, a
// RunPass call reaching an idle (unopened or already-closed) node.
func logLifecycleWarning(ctx context.Context, n *node.Node, reason string) {
	w := &ewerr.LifecycleWarning{Node: n.Name, Reason: reason}
	ctxlog.FromContext(ctx).Warn(w.Error())
}

func groupPortsByMethod(n *node.Node) map[methodreg.ID]*portGroup {
	groups := make(map[methodreg.ID]*portGroup)
	for _, u := range n.Upstreams() {
		g, ok := groups[u.MethodID]
		if !ok {
			g = &portGroup{methodID: u.MethodID}
			groups[u.MethodID] = g
		}
		g.ports = append(g.ports, u.Port)
	}
	return groups
}

// defaultOrderFromGroups derives a deterministic default order when n has
// no custom or connection-derived order of its own: the class's declared
// method order (DeclaredOrder), filtered down to the methods that actually
// have a fed group this pass, forward last. Without this, iterating groups
// directly (a map) would make the default order nondeterministic across
// passes.
func defaultOrderFromGroups(table *methodreg.ClassTable, groups map[methodreg.ID]*portGroup) []methodreg.ID {
	var ordered []methodreg.ID
	for _, id := range table.DeclaredOrder() {
		if _, ok := groups[id]; ok {
			ordered = append(ordered, id)
		}
	}
	return forwardLastIDs(ordered)
}

func forwardLastIDs(ids []methodreg.ID) []methodreg.ID {
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

// tryInvokeGroup attempts to fire one method given the ports feeding it. The
// method only fires once every feeding port has a ready packet; ports are
// aligned by timestamp first when sync is enabled for this method. A failed
// invocation is logged and swallowed rather than returned: the output slot
// simply stays unset for this method this pass.
func tryInvokeGroup(ctx context.Context, n *node.Node, grp *portGroup) bool {
	meta, ok := n.Table().Lookup(grp.methodID)
	if !ok {
		return false
	}
	if len(meta.ArgTypes) != len(grp.ports) {
		// Arity mismatch between the number of connected ports and the
		// method's declared parameter count: this connection topology can
		// never satisfy the method, so it never fires.
		return false
	}

	if n.Policy(grp.methodID).SyncEnabled {
		if !alignPorts(n, grp.ports) {
			return false
		}
	}

	args := make([]packet.Packet, len(grp.ports))
	for i, port := range grp.ports {
		p, ok := n.PortFront(port)
		if !ok {
			return false
		}
		args[i] = p
	}

	for _, port := range grp.ports {
		n.PortPop(port)
	}

	out, err := meta.Invoke(n.Impl(), args)
	if err != nil {
		logDispatchError(ctx, n, err)
		return false
	}
	if out.HasValue() {
		out.Ts = maxTimestamp(args)
		n.SetOutput(out)
	}
	return true
}

// alignPorts drops older fronts across grp's ports until every port's front
// packet shares the same timestamp, or any port runs dry. Returns false if
// alignment could not be reached this pass.
func alignPorts(n *node.Node, ports []int) bool {
	const maxAttempts = 1 << 16
	for attempt := 0; attempt < maxAttempts; attempt++ {
		var maxTs int64
		ready := true
		for _, port := range ports {
			p, ok := n.PortFront(port)
			if !ok {
				ready = false
				break
			}
			if p.Ts > maxTs {
				maxTs = p.Ts
			}
		}
		if !ready {
			return false
		}

		aligned := true
		for _, port := range ports {
			p, _ := n.PortFront(port)
			if p.Ts != maxTs {
				n.PortDropFront(port)
				aligned = false
			}
		}
		if aligned {
			return true
		}
	}
	return false
}

func maxTimestamp(args []packet.Packet) int64 {
	var max int64
	for _, p := range args {
		if p.Ts > max {
			max = p.Ts
		}
	}
	if max == 0 {
		return packet.NowNs()
	}
	return max
}

// Forward delivers a just-produced output packet from src across one edge to
// dst's buffered port, called by the executor once per precedence edge after
// src's pass completes.
func Forward(src, dst *node.Node, port int) {
	out := src.Output()
	if !out.HasValue() {
		return
	}
	conns := dst.Upstreams()
	if port < 0 || port >= len(conns) {
		return
	}
	dst.EnqueuePort(port, conns[port].MethodID, out)
}
