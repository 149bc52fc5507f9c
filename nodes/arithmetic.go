package nodes

import (
	"github.com/vk/easywork/internal/methodreg"
	"github.com/vk/easywork/internal/nodefactory"
)

// Multiply scales its single upstream input by Factor.
type Multiply struct {
	Factor int
}

// Forward multiplies x by Factor.
func (m *Multiply) Forward(x int) (int, error) {
	return x * m.Factor, nil
}

// JoinBack sums two upstream inputs, the join-method counterpart to
// PairEmitter's fan-out.
type JoinBack struct{}

// Forward adds a and b.
func (j *JoinBack) Forward(a, b int) (int, error) {
	return a + b, nil
}

func init() {
	if err := methodreg.Register[Multiply]("Forward"); err != nil {
		panic(err)
	}
	if err := methodreg.Register[JoinBack]("Forward"); err != nil {
		panic(err)
	}
}

// RegisterMultiply installs "multiply" in f: one param "factor" (default 1).
func RegisterMultiply(f *nodefactory.Factory) error {
	return f.Register("multiply", []nodefactory.ParamSpec{{Name: "factor", Default: 1}},
		func(resolved map[string]any) (any, error) {
			return &Multiply{Factor: nodefactory.Extract(resolved, "factor", 1)}, nil
		})
}

// RegisterJoinBack installs "join_back" in f, taking no parameters.
func RegisterJoinBack(f *nodefactory.Factory) error {
	return nodefactory.RegisterDefault[JoinBack](f, "join_back")
}
