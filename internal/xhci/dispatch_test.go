package xhci

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mochios/kernel/internal/executor"
)

type recordingERDP struct {
	writes []uint64
	low4   uint64
}

func (r *recordingERDP) ReadERDP() uint64       { return r.low4 }
func (r *recordingERDP) WriteERDP(addr uint64) { r.writes = append(r.writes, addr); r.low4 = addr & 0xf }

func TestDispatcherResolvesMatchingWaiterAndPrunes(t *testing.T) {
	erdp := &recordingERDP{}
	ring := NewEventRing(0x5000, erdp)
	ring.Push(TRB{Data: 0x1234, Control: typeField(TrbTypeTransferEvent) | (2 << 24)})

	d := NewDispatcher(ring)
	trbAddr := uint64(0x1234)
	slot := uint8(2)
	waiter := NewEventWaitInfo(EventWaitCond{TrbType: TrbTypeTransferEvent, TrbAddr: &trbAddr, Slot: &slot})
	d.Register(waiter)

	require.Equal(t, executor.Pending, d.Poll())
	require.True(t, waiter.Fulfilled())
	require.Len(t, d.waiters, 0)
}

func TestDispatcherIgnoresNonMatchingEvent(t *testing.T) {
	erdp := &recordingERDP{}
	ring := NewEventRing(0x5000, erdp)
	ring.Push(TRB{Data: 0x9999, Control: typeField(TrbTypeTransferEvent) | (9 << 24)})

	d := NewDispatcher(ring)
	trbAddr := uint64(0x1234)
	waiter := NewEventWaitInfo(EventWaitCond{TrbType: TrbTypeTransferEvent, TrbAddr: &trbAddr})
	d.Register(waiter)

	d.Poll()
	require.False(t, waiter.Fulfilled())
	require.Len(t, d.waiters, 1)
}
