// Package idt builds the 256-entry Interrupt Descriptor Table and TSS64,
// and implements the common exception dispatch path (spec.md §4.3),
// grounded on os/src/x86_64/idt.rs's IdtDescriptor/TaskStateSegment64 and
// biscuit main.go's trapstub/IRQ dispatch style.
package idt

import (
	"fmt"
	"unsafe"

	"github.com/mochios/kernel/internal/kerrors"
)

const numEntries = 256

// gateAttr encodes type=interrupt-gate (0xE), DPL, present, per idt.rs.
const (
	gateTypeInterrupt = 0x0e
	attrPresent       = 1 << 7
)

// Entry is one 16-byte IDT descriptor (spec.md §3 "IDT entry").
type Entry struct {
	OffsetLow  uint16
	Selector   uint16
	ISTIndex   uint8
	Attr       uint8
	OffsetMid  uint16
	OffsetHigh uint32
	Reserved   uint32
}

func init() {
	const _ = uint(unsafe.Sizeof(Entry{})) - 16
}

// SetHandler populates entry for a handler at the given address, codeSelector,
// and IST slot (0 means "don't switch stacks"; this kernel uses IST 1 for
// every dedicated vector, per spec.md §4.3).
func (e *Entry) SetHandler(addr uintptr, codeSelector uint16, ist uint8, dpl uint8) {
	e.OffsetLow = uint16(addr)
	e.OffsetMid = uint16(addr >> 16)
	e.OffsetHigh = uint32(addr >> 32)
	e.Selector = codeSelector
	e.ISTIndex = ist & 0x7
	e.Attr = gateTypeInterrupt | attrPresent | (dpl&0x3)<<5
}

// IDT is the 256-entry table. Unconfigured vectors point at a panic
// trampoline (spec.md §4.3).
type IDT struct {
	Entries [numEntries]Entry
}

// New builds an IDT with every vector pointed at the panic trampoline, then
// lets the caller override vectors 3/6/13/14/32 (and any others) with
// SetHandler.
func New(codeSelector uint16, panicTrampoline uintptr) *IDT {
	idt := &IDT{}
	for i := range idt.Entries {
		idt.Entries[i].SetHandler(panicTrampoline, codeSelector, 0, 0)
	}
	return idt
}

// ringZeroStackPages is the fixed size of the IST stack the TSS never frees
// while it lives (spec.md §3 "IDT entry": "a 16-page ring-0 stack that is
// never freed while the TSS lives").
const ringZeroStackPages = 16

// TSS64 models the fields the dedicated-vector entrypoints depend on: the
// ring-0 stack pointer and the seven IST slots. Dropping it while any IDT
// entry still references an IST slot is a programmer error (spec.md §7).
type TSS64 struct {
	rsp0      uintptr
	ist       [7]uintptr
	stackPool [][]byte // backing allocations, kept alive for the TSS's lifetime
	freed     bool
}

// NewTSS64 allocates a 16-page stack for ring-0 entry and for IST slot 1 (the
// slot every dedicated vector entrypoint in this kernel uses), mirroring
// TaskStateSegment64::new.
func NewTSS64(allocPages func(n int) (uintptr, []byte)) *TSS64 {
	t := &TSS64{}
	addr0, buf0 := allocPages(ringZeroStackPages)
	t.rsp0 = addr0 + uintptr(len(buf0))
	t.stackPool = append(t.stackPool, buf0)

	addr1, buf1 := allocPages(ringZeroStackPages)
	t.ist[0] = addr1 + uintptr(len(buf1))
	t.stackPool = append(t.stackPool, buf1)
	return t
}

// RSP0 is the stack pointer loaded on a privilege-level change to ring 0.
func (t *TSS64) RSP0() uintptr { return t.rsp0 }

// IST returns the top of IST stack slot n (1-based, as referenced by
// Entry.ISTIndex).
func (t *TSS64) IST(n int) uintptr { return t.ist[n-1] }

// Release marks the TSS's backing stacks as freed. Any IDT entry still
// referencing one of its IST slots after this point is a bug; callers are
// expected to never call this while the TSS is live (spec.md §7, §4.3).
func (t *TSS64) Release() {
	if t.freed {
		panic("idt: TSS64 dropped twice")
	}
	t.freed = true
}

// PageFaultErrorCode decodes the error code pushed for vector 14, per
// idt.rs's inthandler: bit 0 = present, bit 1 = write, bit 2 = user.
type PageFaultErrorCode struct {
	Present bool
	Write   bool
	User    bool
}

// DecodePageFaultCause decodes CR2 and the pushed error code into a
// human-readable cause, matching the diagnostic idt.rs prints before
// panicking (spec.md §4.3 policy for vector 14).
func DecodePageFaultCause(cr2 uint64, errorCode uint64) (addr uint64, cause PageFaultErrorCode) {
	cause.Present = errorCode&0b0001 != 0
	cause.Write = errorCode&0b0010 != 0
	cause.User = errorCode&0b0100 != 0
	return cr2, cause
}

// Vector identifies a dedicated-entrypoint interrupt vector.
type Vector uint8

const (
	VectorBreakpoint      Vector = 3
	VectorInvalidOpcode   Vector = 6
	VectorGeneralProtect  Vector = 13
	VectorPageFault       Vector = 14
	VectorTimer           Vector = 32
)

// GeneralRegisters is the uniform register frame pushed by every dedicated
// entrypoint before calling into Go (spec.md §4.3).
type GeneralRegisters struct {
	RAX, RBX, RCX, RDX, RSI, RDI, RBP uint64
	R8, R9, R10, R11, R12, R13, R14, R15 uint64
}

// InterruptFrame is what the CPU itself pushes on a trap.
type InterruptFrame struct {
	RIP, CS, RFlags, RSP, SS uint64
}

// Info is the full {greg, error_code, interrupt_frame} record handed to
// Dispatch, after FXSAVE and segment fixups (spec.md §4.3).
type Info struct {
	FPU       [512]byte
	Greg      GeneralRegisters
	ErrorCode uint64
	Frame     InterruptFrame
}

// EOI signals end-of-interrupt to the local APIC; the concrete
// implementation lives with the (out-of-scope) ACPI/local-APIC
// collaborator, so Dispatch takes it as a dependency.
type EOI interface {
	SignalEndOfInterrupt()
}

// PanicFunc is how Dispatch reports a fatal exception. Production wiring
// panics the Go runtime; tests substitute a function that records the call
// instead, since exceptions 3/6/13/14 are policy-fatal and must not be
// silently swallowed (spec.md §4.3 policy, §7).
type PanicFunc func(vector Vector, info *Info, cr2 uint64)

// Dispatch implements inthandler's policy (spec.md §4.3): vector 32 is EOI
// and return; vectors 3/6/13/14 are always fatal. A non-nil onPanic receives
// them; otherwise Dispatch panics, and for vector 14 the panic value carries
// CR2 and the decoded error code.
func Dispatch(vector Vector, info *Info, cr2 uint64, eoi EOI, onPanic PanicFunc) {
	switch vector {
	case VectorTimer:
		if eoi != nil {
			eoi.SignalEndOfInterrupt()
		}
		return
	case VectorBreakpoint, VectorInvalidOpcode, VectorGeneralProtect, VectorPageFault:
		if onPanic != nil {
			onPanic(vector, info, cr2)
			return
		}
		if vector == VectorPageFault {
			_, cause := DecodePageFaultCause(cr2, info.ErrorCode)
			panic(fmt.Errorf("%w: cr2=%#x present=%v write=%v user=%v",
				kerrors.ErrUnhandledException(uint8(vector)), cr2, cause.Present, cause.Write, cause.User))
		}
		panic(kerrors.ErrUnhandledException(uint8(vector)))
	default:
		// Unconfigured vector reached the panic trampoline.
		if onPanic != nil {
			onPanic(vector, info, cr2)
			return
		}
		panic(kerrors.ErrUnhandledException(uint8(vector)))
	}
}
