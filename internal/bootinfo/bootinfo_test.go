package bootinfo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupFindsRootFile(t *testing.T) {
	info := &Info{RootFiles: []RootFile{{Name: "HELLO0.ELF", Bytes: []byte{1, 2, 3}}}}
	data, ok := info.Lookup("HELLO0.ELF")
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3}, data)

	_, ok = info.Lookup("MISSING.ELF")
	require.False(t, ok)
}

func TestTakeTwicePanics(t *testing.T) {
	mu.Lock()
	instance = &Info{}
	taken = false
	mu.Unlock()

	Take()
	require.Panics(t, func() { Take() })
}
