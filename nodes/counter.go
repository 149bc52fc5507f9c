// Package nodes is a sample node library exercising the graph runtime:
// a counter source, arithmetic and text transforms, a sink, a tuple
// fan-out pair, a control-before-forward node, an HCL-configured node,
// and a Socket.IO streaming sink.
package nodes

import (
	"github.com/vk/easywork/internal/methodreg"
	"github.com/vk/easywork/internal/nodefactory"
)

// Counter is a source node: each pass it emits the next integer starting
// from Start, until it has emitted Limit values (Limit<=0 means
// unbounded), at which point it stops the graph.
type Counter struct {
	Start int
	Limit int

	next    int
	emitted int
	stop    func()
}

// Forward produces the next value in the sequence. Counter is a source
// because it declares no arguments. The pass that emits the Limit-th value
// also raises the stop flag, so the graph stops after this value has been
// forwarded rather than on a following, valueless pass.
func (c *Counter) Forward() (int, error) {
	if c.emitted == 0 {
		c.next = c.Start
	}
	v := c.next
	c.next++
	c.emitted++
	if c.Limit > 0 && c.emitted >= c.Limit && c.stop != nil {
		c.stop()
	}
	return v, nil
}

// AttachStop lets the graph wire this node's own Stop call, since Counter
// has no direct reference to the node wrapping it.
func (c *Counter) AttachStop(stop func()) {
	c.stop = stop
}

func init() {
	if err := methodreg.Register[Counter]("Forward"); err != nil {
		panic(err)
	}
}

// RegisterCounter installs "counter" in f: positional/keyword params
// "start" (default 0) and "limit" (default 0, meaning unbounded).
func RegisterCounter(f *nodefactory.Factory) error {
	return f.Register("counter", []nodefactory.ParamSpec{
		{Name: "start", Default: 0},
		{Name: "limit", Default: 0},
	}, func(resolved map[string]any) (any, error) {
		return &Counter{
			Start: nodefactory.Extract(resolved, "start", 0),
			Limit: nodefactory.Extract(resolved, "limit", 0),
		}, nil
	})
}
