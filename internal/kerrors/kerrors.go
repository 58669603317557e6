// Package kerrors collects the sentinel errors shared across kernel
// subsystems. Everything that can fail returns one of these (or wraps one
// with fmt.Errorf's %w) rather than a bare string, so callers can branch on
// errors.Is instead of scraping messages.
package kerrors

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfMemory       = errors.New("out of memory")
	ErrHeaderDropped      = errors.New("free-list header dropped")
	ErrBadAlignment       = errors.New("alignment is not a power of two")

	ErrCommandRingFull    = errors.New("command ring is full")
	ErrCycleMismatch      = errors.New("cycle state does not change")
	ErrUnexpectedTrbPtr   = errors.New("unexpected trb pointer")
	ErrTrbOutOfRange      = errors.New("trb ring out of range")
	ErrEndpointNotCreated = errors.New("endpoint not created")
	ErrAC64Unsupported    = errors.New("xhci controller does not support 64-bit addressing")
	ErrContextSize64      = errors.New("xhci controller requires 64-byte contexts")
	ErrPageSizeNotSingleBit = errors.New("xhci PAGE_SIZE register is not a single bit")

	ErrNoRoute            = errors.New("no route to destination")
	ErrBootKbdNotFound    = errors.New("no USB HID boot-keyboard interface found")

	ErrBusDeviceFunctionRange = errors.New("bus/device/function out of range")
	ErrRegisterOutOfRange     = errors.New("pci register offset out of range")

	ErrNegativeDimension = errors.New("negative width or height")

	ErrControlTransferTimedOut = errors.New("usb control transfer timed out")
	ErrPortDisconnected        = errors.New("usb port disconnected")
)

// ErrUnhandledException reports a CPU exception the kernel treats as fatal
// (spec.md §4.3 policy, §7: "Exceptions at the CPU level are always fatal
// and panic with a decoded dump").
func ErrUnhandledException(vector uint8) error {
	return fmt.Errorf("unhandled cpu exception at vector %d", vector)
}
