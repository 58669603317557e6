package cpuctx

import (
	"unsafe"

	"github.com/mochios/kernel/internal/klog"
)

// SyscallNumber identifies the ABI entry requested via RAX, per spec.md §6
// "User syscall ABI".
type SyscallNumber uint64

const (
	SyscallExit SyscallNumber = iota
	SyscallWriteString
	SyscallReadKey
	SyscallGetMouseCursorInfo
)

// Console is the minimal sink write_string targets. The real console
// (VRAM/serial) is an out-of-scope external collaborator; this interface is
// its contract as consumed here.
type Console interface {
	WriteString(s string)
}

// KeyReader is read_key's non-blocking source, backed in practice by
// internal/input's character queue.
type KeyReader interface {
	// ReadKey returns (0, false) if no key is pending.
	ReadKey() (r rune, ok bool)
}

// Dispatcher holds the collaborators arch_syscall_handler needs to service
// a trapped syscall. Exit and Yielded are the only outcomes that affect
// exec_app_context's loop (spec.md §4.2 invariant (c)).
type Dispatcher struct {
	Console Console
	Keys    KeyReader
}

// Dispatch services one trapped syscall described by regs (RAX = syscall
// number, RDI/RSI/RDX = args per the SysV-like convention the original
// asm_syscall_handler preserves). It returns the ExitReason and retcode
// exec_app_context should act on.
//
// This is the Go analogue of arch_syscall_handler(regs) in context.rs: the
// assembly trampoline has already saved the user frame and FXSAVE'd by the
// time this runs, so this function only interprets the ABI.
func (d Dispatcher) Dispatch(regs *CPURegisters) (ExitReason, int64) {
	switch SyscallNumber(regs.RAX) {
	case SyscallExit:
		code := int64(regs.RDI)
		return ExitReasonReturned, code

	case SyscallWriteString:
		ptr := regs.RDI
		length := regs.RSI
		if d.Console != nil {
			d.Console.WriteString(readUserString(ptr, length))
		}
		return ExitReasonYielded, 0

	case SyscallReadKey:
		if d.Keys != nil {
			if r, ok := d.Keys.ReadKey(); ok {
				regs.RAX = uint64(r)
			} else {
				regs.RAX = ^uint64(0)
			}
		}
		return ExitReasonYielded, 0

	case SyscallGetMouseCursorInfo:
		// Out of scope: the VRAM/graphics collaborator owns cursor state.
		// Report "no cursor" rather than guessing at a layout.
		regs.RAX = ^uint64(0)
		return ExitReasonYielded, 0

	default:
		klog.Warnf("cpuctx: unknown syscall number %d\n", regs.RAX)
		return ExitReasonYielded, 0
	}
}

// readUserString copies length bytes starting at ptr into a Go string.
// There is no permission-checked paging layer in this kernel (every address
// is identity-mapped), so the app's claimed ptr/length is also the kernel's
// own address space; the only guard worth having lives in the (out-of-scope)
// paging layer this kernel doesn't implement.
func readUserString(ptr, length uint64) string {
	if ptr == 0 || length == 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length))
}
