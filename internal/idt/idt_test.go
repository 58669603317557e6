package idt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewIDTPointsUnconfiguredVectorsAtTrampoline(t *testing.T) {
	trampoline := uintptr(0xffff800000001000)
	table := New(0x08, trampoline)

	for i, e := range table.Entries {
		addr := uintptr(e.OffsetLow) | uintptr(e.OffsetMid)<<16 | uintptr(e.OffsetHigh)<<32
		require.Equal(t, trampoline, addr, "vector %d", i)
	}
}

func TestSetHandlerRoundTripsAddress(t *testing.T) {
	var e Entry
	addr := uintptr(0x1234_5678_9abc_def0)
	e.SetHandler(addr, 0x08, 1, 0)

	got := uintptr(e.OffsetLow) | uintptr(e.OffsetMid)<<16 | uintptr(e.OffsetHigh)<<32
	require.Equal(t, addr, got)
	require.EqualValues(t, 1, e.ISTIndex)
	require.NotZero(t, e.Attr&attrPresent)
}

func TestDecodePageFaultCause(t *testing.T) {
	_, cause := DecodePageFaultCause(0xdead0000, 0b0110)
	require.False(t, cause.Present)
	require.True(t, cause.Write)
	require.True(t, cause.User)
}

func TestDispatchTimerSignalsEOIOnly(t *testing.T) {
	calls := 0
	eoi := eoiFunc(func() { calls++ })
	panicked := false
	Dispatch(VectorTimer, &Info{}, 0, eoi, func(Vector, *Info, uint64) { panicked = true })
	require.Equal(t, 1, calls)
	require.False(t, panicked)
}

func TestDispatchPageFaultIsFatal(t *testing.T) {
	var gotVector Vector
	var gotCR2 uint64
	Dispatch(VectorPageFault, &Info{}, 0xbeef, nil, func(v Vector, info *Info, cr2 uint64) {
		gotVector = v
		gotCR2 = cr2
	})
	require.Equal(t, VectorPageFault, gotVector)
	require.EqualValues(t, 0xbeef, gotCR2)
}

type eoiFunc func()

func (f eoiFunc) SignalEndOfInterrupt() { f() }
