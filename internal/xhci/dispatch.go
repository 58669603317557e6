package xhci

import (
	"sync"

	"github.com/mochios/kernel/internal/executor"
)

// Dispatcher owns the primary Event ring and the set of in-flight waiters
// registered against it, draining every posted event on each poll and
// resolving the first waiter that matches (spec.md §1's "poll-and-resolve future
// mechanism"; spec.md §4.5 "Event dispatch"). It is the production
// counterpart of calling EventWaitInfo.TryResolve directly, the way
// xhci.rs's event loop task drives future.rs's waiters.
type Dispatcher struct {
	ring *EventRing

	mu      sync.Mutex
	waiters []*EventWaitInfo
}

// NewDispatcher wraps ring with an empty waiter set.
func NewDispatcher(ring *EventRing) *Dispatcher {
	return &Dispatcher{ring: ring}
}

// Register adds w to the set checked against every future posted event.
// Safe to call from any task, including while Poll is draining.
func (d *Dispatcher) Register(w *EventWaitInfo) {
	d.mu.Lock()
	d.waiters = append(d.waiters, w)
	d.mu.Unlock()
}

// eventIdentity extracts the fields TryResolve matches a waiter's condition
// against: the physical TRB pointer a Transfer/Command-Completion event
// echoes back in its Data field, and the Slot ID the controller carries in
// Control[31:24] for those same event types.
func eventIdentity(trb TRB) (trbAddr uint64, slot uint8) {
	return trb.Data, uint8(trb.Control >> 24)
}

// Poll implements executor.Task: drain every currently-posted event TRB,
// offering each to the registered waiters in registration order until one
// resolves, then drop waiters that resolved.
// Like the network manager task, it never completes — continuous dispatch
// is the point, so it always yields Pending back to the scheduler.
func (d *Dispatcher) Poll() executor.PollResult {
	for {
		trb, ok := d.ring.Pop()
		if !ok {
			break
		}
		trbAddr, slot := eventIdentity(trb)

		d.mu.Lock()
		for _, w := range d.waiters {
			if w.TryResolve(trb, trbAddr, slot) {
				break
			}
		}
		d.mu.Unlock()
	}
	d.prune()
	return executor.Pending
}

// prune drops waiters that have already resolved so the per-event scan
// doesn't grow without bound across the life of the controller.
func (d *Dispatcher) prune() {
	d.mu.Lock()
	defer d.mu.Unlock()
	live := d.waiters[:0]
	for _, w := range d.waiters {
		if !w.Fulfilled() {
			live = append(live, w)
		}
	}
	d.waiters = live
}
