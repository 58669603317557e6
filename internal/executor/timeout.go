package executor

import "github.com/mochios/kernel/internal/hpet"

// TimeoutFuture polls Pending until the HPET main counter reaches a
// deadline computed on its *first* poll (spec.md §4.4: "reads the HPET main
// counter on first poll; returns Pending until counter ≥ deadline").
type TimeoutFuture struct {
	clock    hpet.Clock
	ms       uint64
	deadline uint64
	started  bool
}

// NewTimeoutMs constructs a TimeoutFuture for ms milliseconds against clock.
// The deadline is not computed until the first Poll call.
func NewTimeoutMs(clock hpet.Clock, ms uint64) *TimeoutFuture {
	return &TimeoutFuture{clock: clock, ms: ms}
}

// Poll implements Task (and is also called directly by EventFuture, which
// embeds a TimeoutFuture for its own deadline).
func (t *TimeoutFuture) Poll() PollResult {
	if !t.started {
		t.deadline = t.clock.Counter() + hpet.MillisToTicks(t.clock, t.ms)
		t.started = true
	}
	if t.clock.Counter() >= t.deadline {
		return Ready
	}
	return Pending
}

// Expired reports whether the deadline has already passed, usable by
// callers (like EventFuture) that need to check without the Task contract's
// re-enqueue semantics.
func (t *TimeoutFuture) Expired() bool {
	return t.Poll() == Ready
}
