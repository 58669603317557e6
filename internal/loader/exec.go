package loader

import (
	"github.com/mochios/kernel/internal/cpuctx"
	"github.com/mochios/kernel/internal/executor"
)

// Handle is a loaded application: its entry point, ready to be mapped into
// an address space and executed (spec.md §2 step 9).
type Handle struct {
	image *Image
}

// Load parses raw as an ELF64 executable and returns a Handle.
func Load(raw []byte) (*Handle, error) {
	img, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return &Handle{image: img}, nil
}

// MapInto copies every segment to the addresses its program headers name,
// via writeAt.
func (h *Handle) MapInto(writeAt func(vaddr uint64, data []byte)) error {
	return h.image.MapSegments(writeAt)
}

// Entry is the address CONTEXT_APP.cpu.rip must be set to before the first
// SwitchToApp.
func (h *Handle) Entry() uint64 {
	return h.image.Entry
}

// ExecFuture is an executor.Task completed once a round trip reports
// cpuctx.ExitReasonReturned, carrying the process's return code
// (spec.md §2 step 9: "returns a handle whose exec yields a future
// completed when the user app exits").
type ExecFuture struct {
	sw      cpuctx.Switcher
	retcode int64
	done    bool
}

// Exec returns a future that drives the app to completion through sw,
// suspending at the syscall boundary exactly as exec_app_context does
// (spec.md §5 "Suspension points"). Each Poll performs one round trip; a
// yielding round trip leaves the future Pending so the executor can run
// other tasks in between.
func (h *Handle) Exec(sw cpuctx.Switcher) *ExecFuture {
	return &ExecFuture{sw: sw}
}

// Poll implements executor.Task.
func (f *ExecFuture) Poll() executor.PollResult {
	if f.done {
		return executor.Ready
	}
	reason, rc := cpuctx.SwitchOnce(f.sw)
	if reason == cpuctx.ExitReasonReturned {
		f.retcode = rc
		f.done = true
		return executor.Ready
	}
	return executor.Pending
}

// ReturnCode is valid once Poll has returned executor.Ready.
func (f *ExecFuture) ReturnCode() int64 {
	return f.retcode
}
