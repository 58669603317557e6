package input

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCharQueueFIFO(t *testing.T) {
	m := &Manager{}
	m.PushChar('a')
	m.PushChar('b')

	r, ok := m.ReadKey()
	require.True(t, ok)
	require.Equal(t, 'a', r)

	r, ok = m.ReadKey()
	require.True(t, ok)
	require.Equal(t, 'b', r)

	_, ok = m.ReadKey()
	require.False(t, ok)
}

func TestCursorQueueFIFO(t *testing.T) {
	m := &Manager{}
	m.PushCursor(CursorInfo{X: 1, Y: 2})
	m.PushCursor(CursorInfo{X: 3, Y: 4})

	c, ok := m.ReadCursor()
	require.True(t, ok)
	require.EqualValues(t, 1, c.X)

	c, ok = m.ReadCursor()
	require.True(t, ok)
	require.EqualValues(t, 3, c.X)
}
