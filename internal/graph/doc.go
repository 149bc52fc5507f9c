// Package graph assembles named node instances and their upstream
// connections into an executable graph.
//
// # Lifecycle
//
//  1. AddNode registers each node instance under a unique name.
//  2. AddUpstream wires method-level connections between registered nodes.
//  3. Build freezes the node set and attaches the shared stop flag.
//  4. Connect derives precedence edges from the declared connections and
//     rejects the graph if it contains a cycle.
//  5. Validate checks every connection's arity against its target method's
//     declared signature, aggregating every mismatch into one error.
//
// A caller typically calls Validate before handing the Assembler to an
// executor, and Reset between repeated runs of the same graph.
package graph
