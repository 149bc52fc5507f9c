package nodes

import (
	"fmt"

	"github.com/vk/easywork/internal/methodreg"
	"github.com/vk/easywork/internal/nodefactory"
)

// ToText formats its upstream input using Format (an fmt verb, default
// "%v"), producing a string.
type ToText struct {
	Format string
}

// Forward renders v as text.
func (t *ToText) Forward(v any) (string, error) {
	format := t.Format
	if format == "" {
		format = "%v"
	}
	return fmt.Sprintf(format, v), nil
}

// Sink consumes its single upstream input and produces nothing; it exists
// to terminate a chain that a test or caller inspects via Received.
type Sink struct {
	Received []any
}

// Forward records v. A sink's Forward returns no value, so it never
// contributes to its own output slot.
func (s *Sink) Forward(v any) {
	s.Received = append(s.Received, v)
}

func init() {
	if err := methodreg.Register[ToText]("Forward"); err != nil {
		panic(err)
	}
	if err := methodreg.Register[Sink]("Forward"); err != nil {
		panic(err)
	}
}

// RegisterToText installs "to_text" in f: one param "format" (default "%v").
func RegisterToText(f *nodefactory.Factory) error {
	return f.Register("to_text", []nodefactory.ParamSpec{{Name: "format", Default: "%v"}},
		func(resolved map[string]any) (any, error) {
			return &ToText{Format: nodefactory.Extract(resolved, "format", "%v")}, nil
		})
}

// RegisterSink installs "sink" in f, taking no parameters.
func RegisterSink(f *nodefactory.Factory) error {
	return nodefactory.RegisterDefault[Sink](f, "sink")
}
