package nodes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToText_Forward_DefaultFormat(t *testing.T) {
	tt := &ToText{}
	v, err := tt.Forward(42)
	require.NoError(t, err)
	assert.Equal(t, "42", v)
}

func TestToText_Forward_CustomFormat(t *testing.T) {
	tt := &ToText{Format: "value=%d"}
	v, err := tt.Forward(7)
	require.NoError(t, err)
	assert.Equal(t, "value=7", v)
}

func TestSink_Forward_Accumulates(t *testing.T) {
	s := &Sink{}
	s.Forward("a")
	s.Forward("b")
	assert.Equal(t, []any{"a", "b"}, s.Received)
}
