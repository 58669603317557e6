package xhci

import "github.com/mochios/kernel/internal/kerrors"

// NumTRB is the fixed slot count of a TrbRing: 16 TRBs of 16 bytes each
// fit in one 256-byte stride, well under the 4 KiB ceiling, with the last
// slot reserved for the Link TRB (spec.md §3 "TRB ring").
const NumTRB = 16

// linkIndex is the reserved Link-TRB slot.
const linkIndex = NumTRB - 1

// TrbRing is a fixed array of NumTRB TRBs plus a current index. The ring
// must occupy ≤4 KiB and not cross a 64 KiB boundary; callers allocate its
// backing array accordingly (spec.md §3).
type TrbRing struct {
	baseAddr     uint64 // physical address of Entries[0], for event correlation
	Entries      [NumTRB]TRB
	currentIndex int
}

// NewTrbRing wraps a backing array already allocated at baseAddr and
// installs the Link TRB at the last slot, pointing back to slot 0.
func NewTrbRing(baseAddr uint64) *TrbRing {
	r := &TrbRing{baseAddr: baseAddr}
	r.Entries[linkIndex] = NewLink(baseAddr, true)
	return r
}

// BaseAddr returns the ring's physical base address.
func (r *TrbRing) BaseAddr() uint64 { return r.baseAddr }

// CurrentAddr returns the physical address of the TRB at currentIndex.
func (r *TrbRing) CurrentAddr() uint64 {
	return r.baseAddr + uint64(r.currentIndex)*16
}

// CommandRing is software-produced, controller-consumed (spec.md §3
// "Command ring").
type CommandRing struct {
	ring    *TrbRing
	ourCycle bool
}

// NewCommandRing allocates a fresh command ring at baseAddr with our cycle
// state starting true, matching ring.rs's CommandRing::new.
func NewCommandRing(baseAddr uint64) *CommandRing {
	return &CommandRing{ring: NewTrbRing(baseAddr), ourCycle: true}
}

// Ring exposes the backing TrbRing, e.g. for programming CRCR.
func (c *CommandRing) Ring() *TrbRing { return c.ring }

// Push writes trb into the current slot with our cycle bit stamped on it
// (spec.md §4.5 "Command ring"). If currentIndex sits on the Link TRB slot,
// Push first retires the wrap: stamps the Link TRB's cycle bit so the
// controller can follow it, resets to slot 0, and flips our cycle state —
// then proceeds to write trb at the (now current) slot in the same call.
// This is why "the 16th push... flips cycle_state_ours" (spec.md §8
// property 7): the 15th push fills the last data slot and leaves
// currentIndex on the Link TRB; the 16th retires the wrap before writing.
//
// A slot whose existing cycle bit already equals our current cycle means
// the controller has not drained it since we last wrote it — the ring is
// full and Push returns ErrCommandRingFull without advancing.
func (c *CommandRing) Push(trb TRB) (uint64, error) {
	if c.ring.currentIndex == linkIndex {
		c.ring.Entries[linkIndex] = c.ring.Entries[linkIndex].WithCycle(c.ourCycle)
		c.ring.currentIndex = 0
		c.ourCycle = !c.ourCycle
	}

	idx := c.ring.currentIndex
	if c.ring.Entries[idx].Cycle() == c.ourCycle {
		return 0, kerrors.ErrCommandRingFull
	}

	writeAddr := c.ring.BaseAddr() + uint64(idx)*16
	c.ring.Entries[idx] = trb.WithCycle(c.ourCycle)
	c.ring.currentIndex = idx + 1

	return writeAddr, nil
}

// OurCycle reports the command ring's current producer cycle state, mainly
// for tests verifying the flip-on-wrap behavior (spec.md §8 property 7).
func (c *CommandRing) OurCycle() bool { return c.ourCycle }
