// Callers depend directly on *Assembler (graph.go) rather than an
// interface: state (buffers, output slot, policy) lives on *node.Node
// itself, so there is no separate mutable store to facade over.
package graph
