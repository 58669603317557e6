package xhci

// ERSTEntry is one row of the Event Ring Segment Table: a single-segment
// table pointing at the event ring's backing array (spec.md §3 "Event
// ring").
type ERSTEntry struct {
	RingSegmentBaseAddr uint64
	RingSegmentSize     uint32
	_                   uint32
}

// ERDPWriter models the MMIO write that acknowledges a drained event TRB by
// advancing the Event Ring Dequeue Pointer, preserving its low 4 control
// bits (spec.md §6 "xHCI MMIO"). Production wiring targets the Runtime
// register block; tests substitute a recorder.
type ERDPWriter interface {
	WriteERDP(addr uint64)
	ReadERDP() uint64
}

// EventRing is consumed by software, produced by the controller: an event
// is present when the TRB at currentIndex has its cycle bit equal to
// cycleStateOurs (spec.md §3 "Event ring").
type EventRing struct {
	ring          *TrbRing
	erst          [1]ERSTEntry
	cycleStateOurs bool
	erdp          ERDPWriter
}

// NewEventRing wraps a backing ring at baseAddr and its one-entry ERST.
func NewEventRing(baseAddr uint64, erdp ERDPWriter) *EventRing {
	er := &EventRing{
		ring:           &TrbRing{baseAddr: baseAddr},
		cycleStateOurs: true,
		erdp:           erdp,
	}
	er.erst[0] = ERSTEntry{RingSegmentBaseAddr: baseAddr, RingSegmentSize: NumTRB}
	return er
}

// ERST exposes the one-entry segment table, for programming ERSTBA/ERSTSZ.
func (er *EventRing) ERST() [1]ERSTEntry { return er.erst }

// Pop returns the next posted event TRB if one is present, advancing the
// ring and acknowledging it via ERDP (preserving the low 4 bits, per
// ring.rs's EventRing::pop). Returns (TRB{}, false) if no event is ready.
func (er *EventRing) Pop() (TRB, bool) {
	idx := er.ring.currentIndex
	trb := er.ring.Entries[idx]
	if trb.Cycle() != er.cycleStateOurs {
		return TRB{}, false
	}

	idx++
	if idx == NumTRB {
		idx = 0
		er.cycleStateOurs = !er.cycleStateOurs
	}
	er.ring.currentIndex = idx

	if er.erdp != nil {
		addr := er.ring.baseAddr + uint64(idx)*16
		const lowBitsMask = 0xf
		er.erdp.WriteERDP((addr &^ lowBitsMask) | (er.erdp.ReadERDP() & lowBitsMask))
	}
	return trb, true
}

// Push is used only by tests to simulate the controller posting an event
// TRB at the current slot with the ring's current cycle expectation.
func (er *EventRing) Push(trb TRB) {
	er.ring.Entries[er.ring.currentIndex] = trb.WithCycle(er.cycleStateOurs)
}
