package methodreg

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/easywork/internal/packet"
)

type sample struct{}

func (s *sample) Open() error                     { return nil }
func (s *sample) Forward(a int, b string) (int, error) {
	if b == "fail" {
		return 0, errors.New("boom")
	}
	return a, nil
}
func (s *sample) Quiet(x int) { /* no return value */ }

func init() {
	_ = Register[sample]("Open", "Forward", "Quiet")
}

func TestRegister_DuplicateClassRejected(t *testing.T) {
	err := Register[sample]("Open")
	assert.Error(t, err)
}

func TestRegister_MissingMethodRejected(t *testing.T) {
	type other struct{}
	err := Register[other]("NoSuchMethod")
	assert.Error(t, err)
}

func TestTableForValue_ResolvesClassTable(t *testing.T) {
	table, ok := TableForValue(&sample{})
	require.True(t, ok)
	assert.Equal(t, 3, len(table.Methods()))
}

func TestTableFor_ResolvesSameTableAsValue(t *testing.T) {
	byType, ok := TableFor[sample]()
	require.True(t, ok)

	byValue, ok := TableForValue(&sample{})
	require.True(t, ok)

	assert.Same(t, byType, byValue)
}

func TestClassTable_DeclaredOrder_MatchesRegistrationOrder(t *testing.T) {
	table, ok := TableFor[sample]()
	require.True(t, ok)

	assert.Equal(t, []ID{IDOpen, IDForward, Hash("Quiet")}, table.DeclaredOrder())
}

func TestMethodMeta_Invoke_ConvertsArgsAndReturnsValue(t *testing.T) {
	table, ok := TableFor[sample]()
	require.True(t, ok)
	meta, ok := table.Lookup(IDForward)
	require.True(t, ok)

	out, err := meta.Invoke(&sample{}, []packet.Packet{packet.From(7, 1), packet.From("ok", 1)})
	require.NoError(t, err)
	assert.Equal(t, 7, out.Box.Raw())
}

func TestMethodMeta_Invoke_WrapsMethodErrorAsInvocationError(t *testing.T) {
	table, ok := TableFor[sample]()
	require.True(t, ok)
	meta, ok := table.Lookup(IDForward)
	require.True(t, ok)

	_, err := meta.Invoke(&sample{}, []packet.Packet{packet.From(7, 1), packet.From("fail", 1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invocation error")
}

func TestMethodMeta_Invoke_WrongArityReturnsConversionlessError(t *testing.T) {
	table, ok := TableFor[sample]()
	require.True(t, ok)
	meta, ok := table.Lookup(IDForward)
	require.True(t, ok)

	_, err := meta.Invoke(&sample{}, []packet.Packet{packet.From(7, 1)})
	assert.Error(t, err)
}

func TestMethodMeta_Invoke_NoReturnValueYieldsEmptyPacket(t *testing.T) {
	table, ok := TableFor[sample]()
	require.True(t, ok)
	meta, ok := table.Lookup(Hash("Quiet"))
	require.True(t, ok)

	out, err := meta.Invoke(&sample{}, []packet.Packet{packet.From(1, 1)})
	require.NoError(t, err)
	assert.False(t, out.HasValue())
}

func TestHash_IsStableAndDistinctPerName(t *testing.T) {
	assert.Equal(t, Hash("Forward"), Hash("Forward"))
	assert.NotEqual(t, Hash("Forward"), Hash("Open"))
}
