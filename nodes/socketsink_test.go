package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/easywork/internal/nodefactory"
)

func TestSocketSinkNode_Forward_NoopBeforeConnect(t *testing.T) {
	s := &SocketSinkNode{EmitEvent: "data"}
	// io is nil until Open runs; Forward must not panic or block.
	s.Forward(42)
}

func TestSocketSinkNode_Open_InvalidURL(t *testing.T) {
	s := &SocketSinkNode{URL: "://not-a-url"}
	err := s.Open()
	assert.Error(t, err)
}

func TestRegisterSocketSinkNode_ResolvesParams(t *testing.T) {
	f := nodefactory.New()
	require.NoError(t, RegisterSocketSinkNode(f))

	impl, err := f.Create("socket_sink", nodefactory.Args{Keyword: map[string]any{
		"url": "wss://example.test/socket.io", "emit_event": "tick",
	}})
	require.NoError(t, err)
	s := impl.(*SocketSinkNode)
	assert.Equal(t, "wss://example.test/socket.io", s.URL)
	assert.Equal(t, "tick", s.EmitEvent)
	assert.Equal(t, "/", s.Namespace)
}
