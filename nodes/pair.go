package nodes

import (
	"github.com/vk/easywork/internal/methodreg"
	"github.com/vk/easywork/internal/nodefactory"
	"github.com/vk/easywork/internal/tuplereg"
)

// Pair is a registered tuple type: its fields play the role of tuple
// elements for tuplereg.CreateTupleGetNode.
type Pair struct {
	First  int
	Second int
}

// PairEmitter is a source node that emits a Pair each pass, for a caller
// wiring two downstream tuplereg get-nodes off of one output.
type PairEmitter struct {
	next int
}

// Forward produces the next Pair.
func (p *PairEmitter) Forward() (Pair, error) {
	p.next++
	return Pair{First: p.next, Second: p.next * p.next}, nil
}

func init() {
	tuplereg.Register[Pair]()
	if err := methodreg.Register[PairEmitter]("Forward"); err != nil {
		panic(err)
	}
}

// RegisterPairEmitter installs "pair_emitter" in f, taking no parameters.
func RegisterPairEmitter(f *nodefactory.Factory) error {
	return nodefactory.RegisterDefault[PairEmitter](f, "pair_emitter")
}
