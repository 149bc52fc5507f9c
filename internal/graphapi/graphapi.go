// Package graphapi is the embedder-facing surface over graph assembly,
// node construction, and execution: create_graph/node.*/executor.*/tuple.*,
// composing internal/graph, internal/nodefactory, internal/runexec, and
// internal/tuplereg behind one stable API, a single entrypoint struct
// wrapping the engine's internal packages for an embedder.
package graphapi

import (
	"context"

	"github.com/vk/easywork/internal/graph"
	"github.com/vk/easywork/internal/node"
	"github.com/vk/easywork/internal/nodefactory"
	"github.com/vk/easywork/internal/runexec"
	"github.com/vk/easywork/internal/tuplereg"
	"github.com/vk/easywork/internal/typeid"
)

// Graph wraps a graph.Assembler together with the factory used to create
// its nodes, so CreateNode can resolve a type name to an instance before
// handing it to the assembler.
type Graph struct {
	assembler *graph.Assembler
	factory   *nodefactory.Factory
}

// CreateGraph returns a new, empty Graph backed by factory for node
// construction (`create_graph()` in the embedder API).
func CreateGraph(factory *nodefactory.Factory) *Graph {
	return &Graph{assembler: graph.New(), factory: factory}
}

// stopAttacher is implemented by source node classes (e.g. nodes.Counter)
// that need to call Stop on the graph's shared stop flag without holding a
// direct reference to the *node.Node wrapping them.
type stopAttacher interface {
	AttachStop(func())
}

// CreateNode builds a new instance of the node class registered under
// typeName in this Graph's factory and registers it in the graph under
// name (`node = factory.create(name, positional_args, keyword_args)`
// followed by implicit graph registration).
func (g *Graph) CreateNode(typeName, name string, args nodefactory.Args) (*node.Node, error) {
	impl, err := g.factory.Create(typeName, args)
	if err != nil {
		return nil, err
	}
	n, err := g.assembler.AddNode(name, impl)
	if err != nil {
		return nil, err
	}
	if sa, ok := impl.(stopAttacher); ok {
		sa.AttachStop(n.Stop)
	}
	return n, nil
}

// Node looks up a previously created node by name.
func (g *Graph) Node(name string) (*node.Node, bool) {
	return g.assembler.Node(name)
}

// TypeInfo reports the declared method signatures of the node registered
// under name (`node.type_info`), for embedders that need runtime
// introspection of a node's shape without a reference to its Go type.
func (g *Graph) TypeInfo(name string) (node.TypeInfo, bool) {
	n, ok := g.assembler.Node(name)
	if !ok {
		return node.TypeInfo{}, false
	}
	return n.Describe(), true
}

// Nodes returns every node in this graph, in creation order.
func (g *Graph) Nodes() []*node.Node {
	return g.assembler.Nodes()
}

// AddUpstream declares that toName's method receives fromName's output
// (`node.add_upstream`). methodName="" means "Forward".
func (g *Graph) AddUpstream(fromName, toName, methodName string) (int, error) {
	return g.assembler.AddUpstream(fromName, toName, methodName)
}

// Build finalizes the node set (`graph.build()`).
func (g *Graph) Build() error {
	return g.assembler.Build()
}

// Connect derives precedence edges and rejects cycles (`graph.connect()`).
func (g *Graph) Connect() error {
	return g.assembler.Connect()
}

// Validate checks every connection's arity against its target method's
// declared signature.
func (g *Graph) Validate() error {
	return g.assembler.Validate()
}

// Reset clears every node's output slot and lowers the stop flag
// (`graph.reset()`).
func (g *Graph) Reset() {
	g.assembler.Reset()
}

// Assembler exposes the underlying *graph.Assembler to Executor, which
// needs it to drive dispatch passes.
func (g *Graph) Assembler() *graph.Assembler {
	return g.assembler
}

// Executor drives execution of a Graph (`executor.open/run/close`).
type Executor struct {
	inner *runexec.Executor
}

// NewExecutor returns an Executor with the given worker-pool size.
func NewExecutor(numWorkers int) *Executor {
	return &Executor{inner: runexec.New(numWorkers)}
}

// Open opens every node in g (`executor.open(nodes)`).
func (e *Executor) Open(ctx context.Context, g *Graph) error {
	return runexec.Open(ctx, g.Nodes())
}

// Run drives dispatch passes over g until its stop flag is raised or ctx
// is canceled (`executor.run(graph)`). Nodes must already be Open.
func (e *Executor) Run(ctx context.Context, g *Graph) error {
	return e.inner.RunUntilStopped(ctx, g.assembler)
}

// Close closes every node in g (`executor.close(nodes)`).
func (e *Executor) Close(ctx context.Context, g *Graph) error {
	return runexec.Close(ctx, g.Nodes())
}

// RunToCompletion is the common-case convenience combining Open, Run, and
// Close into one call, for callers that do not need the granular
// open/run/close split.
func (e *Executor) RunToCompletion(ctx context.Context, g *Graph) error {
	return e.inner.Run(ctx, g.assembler)
}

// CreateTupleGetNode builds a node that projects field index out of the
// tuple type desc each pass (`tuple.create_get_node`).
func CreateTupleGetNode(name string, desc typeid.Descriptor, index int) (*node.Node, error) {
	return tuplereg.CreateTupleGetNode(name, desc, index)
}

// TupleSize returns the arity of the tuple type desc, or 0 if unregistered
// (`tuple.size`).
func TupleSize(desc typeid.Descriptor) int {
	return tuplereg.Size(desc)
}
