package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/easywork/internal/methodreg"
	"github.com/vk/easywork/internal/packet"
)

type testSource struct{ n int }

func (s *testSource) Forward() (int, error) {
	s.n++
	return s.n, nil
}

type testDoubler struct{}

func (d *testDoubler) Forward(x int) (int, error) {
	return x * 2, nil
}

type testJoiner struct{}

func (j *testJoiner) Forward(a int, b int) (int, error) {
	return a + b, nil
}

type testFloatSource struct{}

func (s *testFloatSource) Forward() (float64, error) {
	return 1.5, nil
}

type testStringSource struct{}

func (s *testStringSource) Forward() (string, error) {
	return "hello", nil
}

type testAnySink struct{}

func (s *testAnySink) Forward(v any) (any, error) {
	return v, nil
}

func init() {
	_ = methodreg.Register[testSource]("Forward")
	_ = methodreg.Register[testDoubler]("Forward")
	_ = methodreg.Register[testJoiner]("Forward")
	_ = methodreg.Register[testFloatSource]("Forward")
	_ = methodreg.Register[testStringSource]("Forward")
	_ = methodreg.Register[testAnySink]("Forward")
}

func TestAssembler_AddNode_DuplicateRejected(t *testing.T) {
	a := New()
	_, err := a.AddNode("src", &testSource{})
	require.NoError(t, err)

	_, err = a.AddNode("src", &testSource{})
	assert.Error(t, err)
}

func TestAssembler_AddNode_UnregisteredClassRejected(t *testing.T) {
	a := New()
	_, err := a.AddNode("unknown", &struct{}{})
	assert.Error(t, err)
}

func TestAssembler_Build_FreezesTopology(t *testing.T) {
	a := New()
	_, err := a.AddNode("src", &testSource{})
	require.NoError(t, err)

	require.NoError(t, a.Build())

	_, err = a.AddNode("other", &testSource{})
	assert.Error(t, err)

	_, err = a.AddUpstream("src", "src", "Forward")
	assert.Error(t, err)
}

func TestAssembler_Connect_RequiresBuildFirst(t *testing.T) {
	a := New()
	_, err := a.AddNode("src", &testSource{})
	require.NoError(t, err)

	err = a.Connect()
	assert.Error(t, err)
}

func TestAssembler_Connect_AcceptsLinearChain(t *testing.T) {
	a := New()
	_, err := a.AddNode("src", &testSource{})
	require.NoError(t, err)
	_, err = a.AddNode("dbl", &testDoubler{})
	require.NoError(t, err)

	_, err = a.AddUpstream("src", "dbl", "")
	require.NoError(t, err)

	require.NoError(t, a.Build())
	assert.NoError(t, a.Connect())
}

func TestAssembler_Connect_DetectsCycle(t *testing.T) {
	a := New()
	_, err := a.AddNode("a", &testDoubler{})
	require.NoError(t, err)
	_, err = a.AddNode("b", &testDoubler{})
	require.NoError(t, err)

	_, err = a.AddUpstream("a", "b", "")
	require.NoError(t, err)
	_, err = a.AddUpstream("b", "a", "")
	require.NoError(t, err)

	require.NoError(t, a.Build())
	assert.Error(t, a.Connect())
}

func TestAssembler_Validate_ArityMismatch(t *testing.T) {
	a := New()
	_, err := a.AddNode("src", &testSource{})
	require.NoError(t, err)
	_, err = a.AddNode("joiner", &testJoiner{})
	require.NoError(t, err)

	// testJoiner.Forward needs 2 args; only one port is connected.
	_, err = a.AddUpstream("src", "joiner", "")
	require.NoError(t, err)

	require.NoError(t, a.Build())
	require.NoError(t, a.Connect())

	assert.Error(t, a.Validate())
}

func TestAssembler_Validate_MatchingArity(t *testing.T) {
	a := New()
	_, err := a.AddNode("src1", &testSource{})
	require.NoError(t, err)
	_, err = a.AddNode("src2", &testSource{})
	require.NoError(t, err)
	_, err = a.AddNode("joiner", &testJoiner{})
	require.NoError(t, err)

	_, err = a.AddUpstream("src1", "joiner", "")
	require.NoError(t, err)
	_, err = a.AddUpstream("src2", "joiner", "")
	require.NoError(t, err)

	require.NoError(t, a.Build())
	require.NoError(t, a.Connect())

	assert.NoError(t, a.Validate())
}

func TestAssembler_Validate_NumericCoercionAccepted(t *testing.T) {
	a := New()
	_, err := a.AddNode("src", &testFloatSource{})
	require.NoError(t, err)
	_, err = a.AddNode("dbl", &testDoubler{})
	require.NoError(t, err)

	// testFloatSource returns float64, testDoubler.Forward wants int: not
	// equal, but numerically coercible, so Validate must accept it.
	_, err = a.AddUpstream("src", "dbl", "")
	require.NoError(t, err)

	require.NoError(t, a.Build())
	require.NoError(t, a.Connect())

	assert.NoError(t, a.Validate())
}

func TestAssembler_Validate_IncompatibleTypeRejected(t *testing.T) {
	a := New()
	_, err := a.AddNode("src", &testStringSource{})
	require.NoError(t, err)
	_, err = a.AddNode("dbl", &testDoubler{})
	require.NoError(t, err)

	// testStringSource returns string; testDoubler.Forward wants int. Not
	// equal, not convertible, not a numeric-kind pair: Validate must reject
	// this and name the offending port in the error.
	_, err = a.AddUpstream("src", "dbl", "")
	require.NoError(t, err)

	require.NoError(t, a.Build())
	require.NoError(t, a.Connect())

	err = a.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port 0")
	assert.Contains(t, err.Error(), "dbl")
}

func TestAssembler_Validate_InterfaceTargetAcceptsAnyImplementor(t *testing.T) {
	a := New()
	_, err := a.AddNode("src", &testSource{})
	require.NoError(t, err)
	_, err = a.AddNode("sink", &testAnySink{})
	require.NoError(t, err)

	// testSource returns int; testAnySink.Forward takes `any`. Not equal,
	// not in convert.Global, not a numeric-kind pair — but int implements
	// the empty interface, so Validate must accept it, matching
	// valuebox.CastTo's own Implements check.
	_, err = a.AddUpstream("src", "sink", "")
	require.NoError(t, err)

	require.NoError(t, a.Build())
	require.NoError(t, a.Connect())

	assert.NoError(t, a.Validate())
}

func TestAssembler_Reset_ClearsOutputAndStopFlag(t *testing.T) {
	a := New()
	n, err := a.AddNode("src", &testSource{})
	require.NoError(t, err)
	require.NoError(t, a.Build())
	require.NoError(t, a.Connect())

	n.Stop()
	assert.True(t, a.StopFlag().Stopped())
	n.SetOutput(packet.From(1, 1))
	require.True(t, n.Output().HasValue())

	a.Reset()
	assert.False(t, a.StopFlag().Stopped())
	assert.False(t, n.Output().HasValue())
}

func TestAssembler_Reset_AllowsRebuildAndReconnect(t *testing.T) {
	a := New()
	_, err := a.AddNode("src", &testSource{})
	require.NoError(t, err)
	require.NoError(t, a.Build())
	require.NoError(t, a.Connect())

	a.Reset()

	require.NoError(t, a.Build())
	require.NoError(t, a.Connect())
}

func TestAssembler_Nodes_PreservesInsertionOrder(t *testing.T) {
	a := New()
	_, err := a.AddNode("first", &testSource{})
	require.NoError(t, err)
	_, err = a.AddNode("second", &testDoubler{})
	require.NoError(t, err)

	names := make([]string, 0, 2)
	for _, n := range a.Nodes() {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"first", "second"}, names)
}
