package nodes

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/vk/easywork/internal/methodreg"
	"github.com/vk/easywork/internal/nodefactory"
)

// configSpec is ConfigNode's decoded static configuration, the same shape
// an HCL step's input struct takes.
type configSpec struct {
	Label      string `hcl:"label"`
	Multiplier int    `hcl:"multiplier,optional"`
}

// ConfigNode is a source node whose static configuration arrives as an
// hcl.Body supplied at construction time (through nodefactory, not through
// Open's arguments — every node's Open/Close run with zero arguments), and
// is decoded with gohcl.DecodeBody the same way the engine's own step
// arguments are decoded. It emits Label repeated Multiplier times once per
// pass while open.
type ConfigNode struct {
	body hcl.Body

	spec   configSpec
	opened bool
}

// Open decodes the body supplied at construction into ConfigNode's
// configSpec.
func (c *ConfigNode) Open() error {
	c.spec = configSpec{Multiplier: 1}
	if diags := gohcl.DecodeBody(c.body, nil, &c.spec); diags.HasErrors() {
		return diags
	}
	c.opened = true
	return nil
}

// Close marks the node closed; the decoded configuration is kept, and
// Forward emits an empty string until the next Open.
func (c *ConfigNode) Close() {
	c.opened = false
}

// Forward emits Label repeated Multiplier times, joined with itself, as a
// minimal demonstration of config-driven output; real node authors would
// do domain work here instead.
func (c *ConfigNode) Forward() (string, error) {
	if !c.opened {
		return "", nil
	}
	out := ""
	for i := 0; i < c.spec.Multiplier; i++ {
		out += c.spec.Label
	}
	return out, nil
}

func init() {
	if err := methodreg.Register[ConfigNode]("Open", "Close", "Forward"); err != nil {
		panic(err)
	}
}

// RegisterConfigNode installs "config_node" in f: one param "body" (an
// hcl.Body, default an empty body) consumed at construction time rather
// than at Open.
func RegisterConfigNode(f *nodefactory.Factory) error {
	return f.Register("config_node", []nodefactory.ParamSpec{{Name: "body", Default: hcl.EmptyBody()}},
		func(resolved map[string]any) (any, error) {
			return &ConfigNode{body: nodefactory.Extract[hcl.Body](resolved, "body", hcl.EmptyBody())}, nil
		})
}
