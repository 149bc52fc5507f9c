// Package runexec implements the graph executor: Open every node once,
// repeatedly drive one dispatch pass per node in dependency order until the
// graph's cooperative-stop flag is raised, then Close every node. Within a
// single pass, independent nodes run concurrently across a worker pool, the
// same channel-driven fan-out the rest of the package corpus uses for
// concurrent graph execution, generalized from "run once to completion" to
// "run passes in a loop while a stop flag is unset".
package runexec

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/easywork/internal/ctxlog"
	"github.com/vk/easywork/internal/dispatch"
	"github.com/vk/easywork/internal/ewerr"
	"github.com/vk/easywork/internal/graph"
	"github.com/vk/easywork/internal/node"
)

// DefaultWorkers is used when New is called with numWorkers <= 0.
const DefaultWorkers = 8

// Executor drives repeated dispatch passes over an assembled graph.
type Executor struct {
	numWorkers int
}

// New returns an Executor with the given worker-pool size.
func New(numWorkers int) *Executor {
	if numWorkers <= 0 {
		numWorkers = DefaultWorkers
	}
	return &Executor{numWorkers: numWorkers}
}

type edge struct {
	dst  *node.Node
	port int
}

// Open opens every node in nodes, the embedder-facing granular equivalent
// of the first phase of Run.
func Open(ctx context.Context, nodes []*node.Node) error {
	for _, n := range nodes {
		if err := n.Open(ctx, nil); err != nil {
			return fmt.Errorf("runexec: opening node %q: %w", n.Name, err)
		}
	}
	return nil
}

// Close closes every node in nodes. An individual Close error is logged
// immediately so a caller cleaning up after a failed Run still closes every
// other node, and every such error is also aggregated into the single
// returned error (nil if every node closed cleanly), for callers that want
// to fail loudly on a dirty shutdown.
func Close(ctx context.Context, nodes []*node.Node) error {
	logger := ctxlog.FromContext(ctx)
	var errs []error
	for _, n := range nodes {
		if err := n.Close(ctx, nil); err != nil {
			logger.Warn("error closing node", "node", n.Name, "error", err)
			errs = append(errs, fmt.Errorf("closing node %q: %w", n.Name, err))
		}
	}
	return ewerr.Join(errs...)
}

// RunUntilStopped loops calling one dispatch pass across every node in a,
// layer by layer in dependency order, until a's stop flag is raised or ctx
// is canceled. Nodes must already be open; the caller is responsible for
// Open/Close around this call (Run does both for the common case).
func (e *Executor) RunUntilStopped(ctx context.Context, a *graph.Assembler) error {
	layers, downstream := computeLayers(a.Nodes())
	stop := a.StopFlag()
	for !stop.Stopped() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.runPass(ctx, layers, downstream); err != nil {
			return err
		}
	}
	return nil
}

// Run opens every node in a, then loops calling one dispatch pass across
// every node, layer by layer in dependency order, until a's stop flag is
// raised or ctx is canceled. Every node is closed on the way out regardless
// of how Run returns; a Close failure is joined onto the run error rather
// than dropped.
func (e *Executor) Run(ctx context.Context, a *graph.Assembler) (err error) {
	nodes := a.Nodes()
	if err := Open(ctx, nodes); err != nil {
		return err
	}
	defer func() {
		err = ewerr.Join(err, Close(ctx, nodes))
	}()
	return e.RunUntilStopped(ctx, a)
}

// runPass executes one dispatch pass across every layer, running all nodes
// within a layer concurrently across e.numWorkers workers, and forwarding
// each node's freshly produced output to its downstream ports before the
// next layer runs.
func (e *Executor) runPass(ctx context.Context, layers [][]*node.Node, downstream map[*node.Node][]edge) error {
	for _, layer := range layers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.runLayer(ctx, layer); err != nil {
			return err
		}
		for _, n := range layer {
			for _, e := range downstream[n] {
				dispatch.Forward(n, e.dst, e.port)
			}
		}
	}
	return nil
}

func (e *Executor) runLayer(ctx context.Context, layer []*node.Node) error {
	jobs := make(chan *node.Node, len(layer))
	for _, n := range layer {
		jobs <- n
	}
	close(jobs)

	errs := make(chan error, len(layer))
	var wg sync.WaitGroup

	workers := e.numWorkers
	if workers > len(layer) {
		workers = len(layer)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				if ctx.Err() != nil {
					errs <- ctx.Err()
					continue
				}
				dispatch.RunPass(ctx, n)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// computeLayers performs a Kahn topological sort over the node set's
// upstream connections, grouping nodes with no remaining unresolved
// dependency into the same layer so they can run concurrently. It also
// returns the per-node downstream edge list runPass uses to forward each
// node's output once its layer finishes.
func computeLayers(nodes []*node.Node) ([][]*node.Node, map[*node.Node][]edge) {
	indegree := make(map[*node.Node]int, len(nodes))
	downstream := make(map[*node.Node][]edge)
	for _, n := range nodes {
		indegree[n] = 0
	}
	for _, n := range nodes {
		for _, u := range n.Upstreams() {
			indegree[n]++
			downstream[u.Upstream] = append(downstream[u.Upstream], edge{dst: n, port: u.Port})
		}
	}

	remaining := make(map[*node.Node]int, len(nodes))
	for n, d := range indegree {
		remaining[n] = d
	}

	var layers [][]*node.Node
	var current []*node.Node
	for _, n := range nodes {
		if remaining[n] == 0 {
			current = append(current, n)
		}
	}
	for len(current) > 0 {
		layers = append(layers, current)
		var next []*node.Node
		for _, n := range current {
			for _, e := range downstream[n] {
				remaining[e.dst]--
				if remaining[e.dst] == 0 {
					next = append(next, e.dst)
				}
			}
		}
		current = next
	}
	return layers, downstream
}
