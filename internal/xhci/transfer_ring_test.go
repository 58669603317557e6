package xhci

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mochios/kernel/internal/kerrors"
)

func newTestTransferRing(baseAddr uint64) *TransferRing {
	next := uint64(0x10000)
	addrOf := func(buf []byte) uint64 {
		addr := next
		next += transferBufferSize
		return addr
	}
	return NewTransferRing(baseAddr, addrOf)
}

func TestFillRingPopulatesEveryNonLinkSlot(t *testing.T) {
	tr := newTestTransferRing(0x1000)
	tr.FillRing(transferBufferSize)

	for i := 0; i < transferBufferCount; i++ {
		require.EqualValues(t, TrbTypeNormal, tr.Ring().Entries[i].Type())
	}
	require.EqualValues(t, TrbTypeLink, tr.Ring().Entries[linkIndex].Type())
}

func TestDequeueTRBRejectsMismatchedPointer(t *testing.T) {
	tr := newTestTransferRing(0x1000)
	tr.FillRing(transferBufferSize)

	_, err := tr.DequeueTRB(0xdeadbeef, transferBufferSize)
	require.ErrorIs(t, err, kerrors.ErrUnexpectedTrbPtr)
}

func TestDequeueTRBAdvancesAndReArmsSlot(t *testing.T) {
	tr := newTestTransferRing(0x1000)
	tr.FillRing(transferBufferSize)

	firstPtr := tr.TrbPtr()
	buf, err := tr.DequeueTRB(firstPtr, transferBufferSize)
	require.NoError(t, err)
	require.Len(t, buf, transferBufferSize)

	// The dequeue index advanced to the next slot.
	require.NotEqual(t, firstPtr, tr.TrbPtr())
	// The rest of the lap dequeues in order; each call re-arms a slot
	// through CommandRing.Push and would return that Push's error.
	for i := 0; i < transferBufferCount-1; i++ {
		ptr := tr.TrbPtr()
		_, err := tr.DequeueTRB(ptr, transferBufferSize)
		require.NoError(t, err)
	}
}
