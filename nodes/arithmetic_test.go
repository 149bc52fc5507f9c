package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/easywork/internal/nodefactory"
)

func TestMultiply_Forward(t *testing.T) {
	m := &Multiply{Factor: 3}
	v, err := m.Forward(4)
	require.NoError(t, err)
	assert.Equal(t, 12, v)
}

func TestJoinBack_Forward(t *testing.T) {
	j := &JoinBack{}
	v, err := j.Forward(2, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestRegisterMultiply_DefaultFactor(t *testing.T) {
	f := nodefactory.New()
	require.NoError(t, RegisterMultiply(f))

	impl, err := f.Create("multiply", nodefactory.Args{})
	require.NoError(t, err)
	assert.Equal(t, 1, impl.(*Multiply).Factor)
}
