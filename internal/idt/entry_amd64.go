package idt

import "reflect"

// These entrypoints are implemented in entry_amd64.s, one per dedicated
// vector (spec.md §4.3). Each body is a bare RET: it pushes no register
// frame, switches no segments, saves no FPU state and never calls into Go,
// so Dispatch is not reached through them. The symbols exist so
// EntryPoints() has real addresses to install into the IDT.

//go:noescape
func breakpointEntry()

//go:noescape
func invalidOpcodeEntry()

//go:noescape
func generalProtectionEntry()

//go:noescape
func pageFaultEntry()

//go:noescape
func timerEntry()

// EntryPoints returns the five dedicated-vector entrypoint addresses, in
// (Vector, address) pairs, for installing into an IDT via Entry.SetHandler.
func EntryPoints() map[Vector]uintptr {
	return map[Vector]uintptr{
		VectorBreakpoint:     entryAddr(breakpointEntry),
		VectorInvalidOpcode:  entryAddr(invalidOpcodeEntry),
		VectorGeneralProtect: entryAddr(generalProtectionEntry),
		VectorPageFault:      entryAddr(pageFaultEntry),
		VectorTimer:          entryAddr(timerEntry),
	}
}

func entryAddr(f func()) uintptr {
	return reflect.ValueOf(f).Pointer()
}
