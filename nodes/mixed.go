package nodes

import (
	"github.com/vk/easywork/internal/methodreg"
	"github.com/vk/easywork/internal/nodefactory"
)

// Gate is a control-before-forward node: its SetEnabled method (wired from
// a separate upstream) gates whether Forward passes its input through.
// Method order matters here — SetEnabled must run before Forward within
// the same pass for a freshly delivered control value to take effect. A
// node's default method order already attempts Forward last;
// node.SetMethodOrder states the order explicitly and also keeps Forward
// last.
type Gate struct {
	enabled bool
}

// SetEnabled updates the gate's state. It declares no return value, so it
// never writes the node's output slot.
func (g *Gate) SetEnabled(on bool) {
	g.enabled = on
}

// Forward returns x while the gate is enabled and 0 while it is disabled.
func (g *Gate) Forward(x int) (int, error) {
	if !g.enabled {
		return 0, nil
	}
	return x, nil
}

func init() {
	if err := methodreg.Register[Gate]("SetEnabled", "Forward"); err != nil {
		panic(err)
	}
}

// RegisterGate installs "gate" in f, taking no parameters. A caller wires
// Gate's SetEnabled and Forward methods to two distinct upstreams; the
// default method order runs SetEnabled before Forward within a pass, and
// node.SetMethodOrder([]string{"SetEnabled", "Forward"}) makes that order
// explicit.
func RegisterGate(f *nodefactory.Factory) error {
	return nodefactory.RegisterDefault[Gate](f, "gate")
}
