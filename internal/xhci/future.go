package xhci

import (
	"sync"
	"sync/atomic"

	"github.com/mochios/kernel/internal/executor"
	"github.com/mochios/kernel/internal/hpet"
)

// EventWaitCond is what a registered waiter is looking for in a posted
// event TRB (spec.md §3 "EventWaitInfo"). Fields left nil/zero-value via
// their pointer forms are wildcards.
type EventWaitCond struct {
	TrbType TrbType
	TrbAddr *uint64
	Slot    *uint8
}

// Matches reports whether trb, whose physical address is trbAddr and whose
// slot ID is slot, satisfies cond: every non-wildcard field must match
// exactly (spec.md §8 property 8: "one differing field leaves it
// unresolved").
func (cond EventWaitCond) Matches(trb TRB, trbAddr uint64, slot uint8) bool {
	if trb.Type() != cond.TrbType {
		return false
	}
	if cond.TrbAddr != nil && *cond.TrbAddr != trbAddr {
		return false
	}
	if cond.Slot != nil && *cond.Slot != slot {
		return false
	}
	return true
}

// EventWaitInfo is a shared record between a registered waiter and the
// Event ring's dispatch loop (spec.md §3). Its lifetime extends from
// registration until either resolve or the awaiting future drops it.
type EventWaitInfo struct {
	Cond      EventWaitCond
	fulfilled atomic.Bool
	mu        sync.Mutex
	eventTRB  TRB
}

// NewEventWaitInfo builds a waiter for an event matching cond; it is checked
// against posted events once passed to Dispatcher.Register.
func NewEventWaitInfo(cond EventWaitCond) *EventWaitInfo {
	return &EventWaitInfo{Cond: cond}
}

// TryResolve checks trb/trbAddr/slot against the waiter's condition; if it
// matches and the waiter is not already fulfilled, stores the TRB and marks
// it fulfilled, returning true. Called from the Event ring's dispatch loop
// for every registered waiter on every posted event.
func (w *EventWaitInfo) TryResolve(trb TRB, trbAddr uint64, slot uint8) bool {
	if w.fulfilled.Load() {
		return false
	}
	if !w.Cond.Matches(trb, trbAddr, slot) {
		return false
	}
	w.mu.Lock()
	w.eventTRB = trb
	w.mu.Unlock()
	w.fulfilled.Store(true)
	return true
}

// Fulfilled reports whether this waiter has been resolved.
func (w *EventWaitInfo) Fulfilled() bool {
	return w.fulfilled.Load()
}

// EventTRB returns the TRB that resolved this waiter. Only meaningful once
// Fulfilled reports true.
func (w *EventWaitInfo) EventTRB() TRB {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.eventTRB
}

// defaultEventTimeoutMs is EventFuture's default timeout (future.rs uses
// 100ms), per spec.md §4.4/§5.
const defaultEventTimeoutMs = 100

// EventFuture polls a registered EventWaitInfo until it's fulfilled or a
// deadline (HPET-based, default 100ms) passes. A timed-out EventFuture
// resolves to (TRB{}, false) rather than an error (spec.md §5 "Cancellation
// / timeouts": "A timed-out EventFuture resolves to Ready(None)").
type EventFuture struct {
	waiter  *EventWaitInfo
	timeout *executor.TimeoutFuture
}

// NewEventFuture builds a future awaiting waiter, with a timeout of
// defaultEventTimeoutMs against clock.
func NewEventFuture(waiter *EventWaitInfo, clock hpet.Clock) *EventFuture {
	return &EventFuture{
		waiter:  waiter,
		timeout: executor.NewTimeoutMs(clock, defaultEventTimeoutMs),
	}
}

// NewEventFutureWithTimeout is NewEventFuture with a caller-chosen timeout,
// for tests and for waits that need a different deadline than the default.
func NewEventFutureWithTimeout(waiter *EventWaitInfo, clock hpet.Clock, timeoutMs uint64) *EventFuture {
	return &EventFuture{
		waiter:  waiter,
		timeout: executor.NewTimeoutMs(clock, timeoutMs),
	}
}

// Poll implements executor.Task. Ready means either the waiter resolved or
// the deadline passed; the caller distinguishes the two via Resolved/TRB.
func (f *EventFuture) Poll() executor.PollResult {
	if f.waiter.Fulfilled() {
		return executor.Ready
	}
	if f.timeout.Expired() {
		return executor.Ready
	}
	return executor.Pending
}

// Resolved reports whether the future completed because the waiter was
// fulfilled (as opposed to timing out).
func (f *EventFuture) Resolved() bool {
	return f.waiter.Fulfilled()
}

// TRB returns the resolving event TRB, or the zero TRB on timeout.
func (f *EventFuture) TRB() TRB {
	return f.waiter.EventTRB()
}
