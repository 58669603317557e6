package xhci

import (
	"github.com/bytedance/gopkg/lang/dirtmake"

	"github.com/mochios/kernel/internal/kerrors"
)

// transferBufferCount and transferBufferSize mirror ring.rs's
// TransferRing: 15 page-aligned 4 KiB buffers, one per non-Link slot.
const (
	transferBufferCount = NumTRB - 1
	transferBufferSize  = 4096
)

// TransferRing is a Command ring plus a dequeue index and its own pool of
// DMA-visible buffers, pre-populated with Normal TRBs pointing at them
// (spec.md §3 "Transfer ring"). The ring is full when advancing the enqueue
// index would make it equal to the dequeue index.
type TransferRing struct {
	cmd          *CommandRing
	dequeueIndex int
	buffers      [transferBufferCount][]byte
	bufferAddrs  [transferBufferCount]uint64
}

// BufferAddrFunc resolves the physical address backing a []byte allocated
// for DMA, since a hosted Go slice's virtual address and the identity-mapped
// physical address this driver otherwise assumes are the same concept here
// only in the test/simulated environment. Production wiring resolves this
// against the identity map; tests can pass an identity function.
type BufferAddrFunc func([]byte) uint64

// NewTransferRing allocates transferBufferCount 4 KiB buffers via
// dirtmake.Bytes (unzeroed — matching ring.rs's uninitialized transfer
// buffers, since the first Normal TRB write always precedes any consumer
// read) and pre-populates the ring with Normal TRBs pointing at them.
func NewTransferRing(baseAddr uint64, addrOf BufferAddrFunc) *TransferRing {
	tr := &TransferRing{cmd: NewCommandRing(baseAddr)}
	for i := 0; i < transferBufferCount; i++ {
		buf := dirtmake.Bytes(transferBufferSize, transferBufferSize)
		tr.buffers[i] = buf
		tr.bufferAddrs[i] = addrOf(buf)
		tr.cmd.ring.Entries[i] = NewNormal(tr.bufferAddrs[i], transferBufferSize)
	}
	return tr
}

// Ring exposes the backing TrbRing.
func (tr *TransferRing) Ring() *TrbRing { return tr.cmd.Ring() }

// FillRing writes a Normal TRB for every buffer slot, restoring the ring to
// its "ready for the controller to drain" state right after creation
// (ring.rs's fill_ring, called once during device attach before the first
// doorbell ring).
func (tr *TransferRing) FillRing(length uint32) {
	for i := 0; i < transferBufferCount; i++ {
		_, _ = tr.cmd.Push(NewNormal(tr.bufferAddrs[i], length))
	}
}

// TrbPtr is the physical address of the TRB currently at the dequeue slot,
// for matching against a Transfer Event's reported TRB pointer before it is
// consumed.
func (tr *TransferRing) TrbPtr() uint64 {
	return tr.cmd.Ring().BaseAddr() + uint64(tr.dequeueIndex%transferBufferCount)*16
}

// DequeueTRB consumes the transfer the controller just completed at
// trbPtr: it asserts trbPtr matches the current dequeue slot, returns that
// slot's buffer, advances the dequeue index, and rolls a fresh Normal TRB
// into the freed slot so the controller can reuse it on a later doorbell
// ring (ring.rs's dequeue_trb, which advances both its dequeue index and
// its enqueue index in one call).
func (tr *TransferRing) DequeueTRB(trbPtr uint64, length uint32) ([]byte, error) {
	if trbPtr != tr.TrbPtr() {
		return nil, kerrors.ErrUnexpectedTrbPtr
	}
	idx := tr.dequeueIndex % transferBufferCount
	buf := tr.buffers[idx]
	tr.dequeueIndex = (tr.dequeueIndex + 1) % transferBufferCount
	if _, err := tr.cmd.Push(NewNormal(tr.bufferAddrs[idx], length)); err != nil {
		return nil, err
	}
	return buf, nil
}

// Full reports whether advancing the enqueue index would make it equal to
// the dequeue index (spec.md §3 "Transfer ring" invariant).
func (tr *TransferRing) Full() bool {
	nextEnqueue := (tr.cmd.Ring().currentIndex + 1) % NumTRB
	return nextEnqueue == tr.dequeueIndex
}
