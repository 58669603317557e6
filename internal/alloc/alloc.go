// Package alloc implements the kernel's first-fit heap allocator
// (spec.md §4.1). It bootstraps from the UEFI memory map and backs every
// dynamic allocation the kernel makes thereafter — there is no underlying
// host allocator to fall back on.
//
// The free list lives inside the memory it manages: each free or allocated
// region is prefixed by a 16-byte header, and a header is never "dropped" in
// the Rust-original sense of running a destructor that would corrupt the
// list it's part of. Go has no destructors to accidentally trigger, but the
// design notes in spec.md §9 still apply: a header is addressed through a
// raw pointer derived from its physical address, never through ownership
// that a GC could decide to collect out from under live memory.
package alloc

import (
	"sync"
	"unsafe"

	"github.com/mochios/kernel/internal/kerrors"
	"github.com/mochios/kernel/internal/klog"
	"github.com/mochios/kernel/internal/memmap"
)

// HeaderSize is the fixed size of a free-list header: a pointer-sized next
// link, a u32 size, and a bool flag, padded to the next power of two
// (spec.md §3 "Free-list header").
const HeaderSize = 16

type header struct {
	next        *header
	size        uint32
	isAllocated bool
	_           [3]byte
}

func init() {
	const _ = uint(unsafe.Sizeof(header{})) - HeaderSize // compile-time size check
}

func headerAt(addr uintptr) *header {
	return (*header)(unsafe.Pointer(addr))
}

func addrOf(h *header) uintptr {
	return uintptr(unsafe.Pointer(h))
}

func (h *header) endAddr() uintptr {
	return addrOf(h) + uintptr(h.size)
}

// canProvide reports whether this free header has enough room to carve out
// an allocation of effSize bytes while leaving room for its own shrunken
// header plus a possible padding header (3*HeaderSize, spec.md §4.1).
func (h *header) canProvide(effSize uintptr) bool {
	return !h.isAllocated && uintptr(h.size) >= effSize+3*HeaderSize
}

// Allocator is a first-fit allocator over a singly-linked, unordered free
// list threaded through the managed memory itself.
type Allocator struct {
	mu    sync.Mutex
	first *header
}

// New returns an allocator with no memory yet. Call InitFromMap before the
// first Alloc.
func New() *Allocator {
	return &Allocator{}
}

// InitFromMap seeds the free list from every CONVENTIONAL_MEMORY descriptor
// in m, pushing each onto the head of the list. Descriptors are not sorted:
// they are non-contiguous and can never be merged regardless of order
// (spec.md §4.1 "Initialization").
func (a *Allocator) InitFromMap(m memmap.Map) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range m.LoaderRegions() {
		klog.Debugf("alloc: loader region %v at %#x (%d pages)\n", r.Type, r.PhysicalStart, r.NumberOfPages)
	}

	var totalPages uint64
	for _, d := range m.Conventional() {
		h := headerAt(d.PhysicalStart)
		h.next = a.first
		h.size = uint32(d.SizeBytes())
		h.isAllocated = false
		a.first = h
		totalPages += d.NumberOfPages
	}
	klog.Infof("alloc: initialized, %d MiB available\n", totalPages*4096/1024/1024)
}

// roundUpToPow2 rounds v up to the next power of two, or itself if already
// a power of two.
func roundUpToPow2(v uintptr) uintptr {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	return v + 1
}

func isPow2(v uintptr) bool {
	return v != 0 && v&(v-1) == 0
}

// Alloc finds the first free header with enough room and carves the
// allocation out of its high end, aligned down to align. size is rounded up
// to the next power of two (and to at least HeaderSize); align must be a
// power of two. Returns kerrors.ErrBadAlignment or kerrors.ErrOutOfMemory on
// failure.
func (a *Allocator) Alloc(size, align uintptr) (uintptr, error) {
	if !isPow2(align) {
		return 0, kerrors.ErrBadAlignment
	}
	effSize := roundUpToPow2(size)
	if effSize < HeaderSize {
		effSize = HeaderSize
	}
	if align < HeaderSize {
		align = HeaderSize
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for h := a.first; h != nil; h = h.next {
		if !h.canProvide(effSize) {
			continue
		}
		return a.provide(h, effSize, align), nil
	}
	return 0, kerrors.ErrOutOfMemory
}

// provide splits h, placing the allocated region at its high end
// (spec.md §4.1 "Allocation algorithm"):
//
//	|----------------- h -------------|
//	|----------------------          |
//	                       ^ h.endAddr()
//	             |-------|-
//	              ^ allocatedAddr
//	             ^ headerForAllocated
//	                     ^ headerForAllocated.endAddr() (== h.endAddr() if no padding)
func (a *Allocator) provide(h *header, effSize, align uintptr) uintptr {
	allocatedAddr := (h.endAddr() - effSize) &^ (align - 1)

	allocated := headerAt(allocatedAddr - HeaderSize)
	allocated.isAllocated = true
	allocated.size = uint32(effSize + HeaderSize)
	allocated.next = h.next

	sizeUsed := uintptr(allocated.size)
	if allocated.endAddr() != h.endAddr() {
		padding := headerAt(allocated.endAddr())
		padding.isAllocated = false
		padding.size = uint32(h.endAddr() - allocated.endAddr())
		padding.next = allocated.next
		allocated.next = padding
		sizeUsed += uintptr(padding.size)
	}

	h.size -= uint32(sizeUsed)
	h.next = allocated

	return allocatedAddr
}

// Free releases the region returned by Alloc. The header embedded just
// before ptr is marked free and left in place — it still belongs to the
// free list via whatever header's `next` field threaded it in, so it must
// never be overwritten or otherwise discarded.
func (a *Allocator) Free(ptr uintptr) {
	a.mu.Lock()
	defer a.mu.Unlock()

	h := headerAt(ptr - HeaderSize)
	if !h.isAllocated {
		panic("alloc: double free")
	}
	h.isAllocated = false
}
