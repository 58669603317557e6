package xhci

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mochios/kernel/internal/executor"
)

func addrPtr(v uint64) *uint64 { return &v }
func slotPtr(v uint8) *uint8   { return &v }

// Testable property 8 (spec.md §8): a waiter with
// {type=X, slot=Some(5), trb_addr=Some(A)} is resolved by a TRB with
// exactly those values; one differing field leaves it unresolved.
func TestEventWaitInfoExactMatch(t *testing.T) {
	const addr = uint64(0xcafe000)
	cond := EventWaitCond{TrbType: TrbTypeCommandCompletionEvent, Slot: slotPtr(5), TrbAddr: addrPtr(addr)}
	w := NewEventWaitInfo(cond)

	matching := TRB{Control: typeField(TrbTypeCommandCompletionEvent)}
	require.True(t, w.TryResolve(matching, addr, 5))
	require.True(t, w.Fulfilled())
}

func TestEventWaitInfoMismatchedSlotLeavesUnresolved(t *testing.T) {
	const addr = uint64(0xcafe000)
	cond := EventWaitCond{TrbType: TrbTypeCommandCompletionEvent, Slot: slotPtr(5), TrbAddr: addrPtr(addr)}
	w := NewEventWaitInfo(cond)

	trb := TRB{Control: typeField(TrbTypeCommandCompletionEvent)}
	require.False(t, w.TryResolve(trb, addr, 6)) // slot differs
	require.False(t, w.Fulfilled())
}

func TestEventWaitInfoMismatchedAddrLeavesUnresolved(t *testing.T) {
	cond := EventWaitCond{TrbType: TrbTypeCommandCompletionEvent, Slot: slotPtr(5), TrbAddr: addrPtr(0x1000)}
	w := NewEventWaitInfo(cond)

	trb := TRB{Control: typeField(TrbTypeCommandCompletionEvent)}
	require.False(t, w.TryResolve(trb, 0x2000, 5))
	require.False(t, w.Fulfilled())
}

func TestEventWaitInfoMismatchedTypeLeavesUnresolved(t *testing.T) {
	cond := EventWaitCond{TrbType: TrbTypeCommandCompletionEvent, Slot: slotPtr(5), TrbAddr: addrPtr(0x1000)}
	w := NewEventWaitInfo(cond)

	trb := TRB{Control: typeField(TrbTypeTransferEvent)}
	require.False(t, w.TryResolve(trb, 0x1000, 5))
	require.False(t, w.Fulfilled())
}

type fakeEventClock struct {
	counter uint64
	period  uint64
}

func (c *fakeEventClock) Counter() uint64           { return c.counter }
func (c *fakeEventClock) PeriodFemtoseconds() uint64 { return c.period }

func TestEventFutureTimesOutToUnresolved(t *testing.T) {
	clock := &fakeEventClock{period: 1_000_000} // 1ns/tick
	w := NewEventWaitInfo(EventWaitCond{TrbType: TrbTypeTransferEvent})
	f := NewEventFutureWithTimeout(w, clock, 1) // 1ms deadline

	require.Equal(t, executor.Pending, f.Poll())
	clock.counter += 2_000_000_000 // far past the deadline
	require.Equal(t, executor.Ready, f.Poll())
	require.False(t, f.Resolved())
}
