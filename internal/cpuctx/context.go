// Package cpuctx implements the privilege-level context switch between the
// kernel and the single user-mode application, via SYSCALL/SYSRET
// (spec.md §4.2). It mirrors os/src/x86_64/context.rs of the original:
// two fixed ExecutionContext records, FXSAVE/FXRSTOR around the FPU area,
// and a round trip through assembly that enters user mode and comes back
// when the app issues SYSCALL.
package cpuctx

import "sync"

// FPUContext is the 512-byte area FXSAVE/FXRSTOR operate on. It must start
// on a 16-byte boundary; callers that embed it in a larger allocation are
// responsible for that alignment (spec.md §4.2 invariant (a)).
type FPUContext struct {
	Data [512]byte
}

// CPURegisters is the general-purpose half of an ExecutionContext.
// RSP is kept last so the whole struct can be pushed/popped as a stack
// frame by the assembly trampoline (spec.md §3 "Execution context").
type CPURegisters struct {
	RIP, RFlags                        uint64
	RAX, RCX, RDX, RBX, RBP, RSI, RDI   uint64
	R8, R9, R10, R11, R12, R13, R14, R15 uint64
	RSP                                 uint64
}

// ExecutionContext is a complete saved CPU+FPU state for one side (kernel or
// app) of a privilege transition.
type ExecutionContext struct {
	FPU FPUContext
	CPU CPURegisters
}

// safeContext pairs an ExecutionContext with the lock that must be released
// before the *other* side is entered, so a syscall handler running on that
// other side can still observe it (spec.md §5 "Shared resources").
type safeContext struct {
	mu  sync.Mutex
	ctx ExecutionContext
}

var (
	// ContextOS holds the kernel's saved state while the app is running.
	ContextOS safeContext
	// ContextApp holds the app's saved state while the kernel is running.
	ContextApp safeContext
)

// ExitReason distinguishes why SwitchToApp returned control to the kernel.
type ExitReason int64

const (
	// ExitReasonReturned means the app called exit(); exec_app_context must
	// stop looping and hand retcode back to its caller.
	ExitReasonReturned ExitReason = 0
	// ExitReasonYielded means the syscall was a yield or any other
	// non-terminating syscall; exec_app_context awaits a yield and resumes
	// the app on the next poll.
	ExitReasonYielded ExitReason = 1
)

// Switcher performs the actual privilege transition. asmSwitcher is the
// hardware-backed implementation; tests substitute a fake that never
// actually changes privilege level, to exercise the exec loop in isolation.
type Switcher interface {
	SwitchToApp(osCtx, appCtx *ExecutionContext) (reason ExitReason, retcode int64)
}

// asmSwitcher is Switcher backed by the hand-written assembly in
// switch_amd64.s. That routine saves the FPU state into osCtx and restores
// appCtx's FPU state; it does not load appCtx's registers or segments and
// does not execute SYSRETQ, so no user code runs and it always returns
// ExitReasonReturned with retcode 0.
type asmSwitcher struct{}

// AsmSwitcher is the production Switcher used by exec_app_context.
var AsmSwitcher Switcher = asmSwitcher{}

func (asmSwitcher) SwitchToApp(osCtx, appCtx *ExecutionContext) (ExitReason, int64) {
	reason, retcode := switchToApp(osCtx, appCtx)
	return ExitReason(reason), retcode
}

// switchToApp is implemented in switch_amd64.s: FXSAVE64 into osCtx's FPU
// area, FXRSTOR64 from appCtx's, then return reason 0 and retcode 0. The
// general-purpose registers are neither saved nor restored and there is no
// SYSRETQ entry into user mode.
//
//go:noescape
func switchToApp(osCtx, appCtx *ExecutionContext) (reason int64, retcode int64)

// SwitchOnce performs exactly one iteration of ExecAppContext's loop body,
// for callers (like loader.ExecFuture) that want to integrate the
// syscall-boundary suspension points directly into an executor.Task's Poll
// method instead of blocking on ExecAppContext.
func SwitchOnce(sw Switcher) (ExitReason, int64) {
	ContextOS.mu.Lock()
	osCtx := &ContextOS.ctx
	ContextOS.mu.Unlock()

	ContextApp.mu.Lock()
	appCtx := &ContextApp.ctx
	ContextApp.mu.Unlock()

	return sw.SwitchToApp(osCtx, appCtx)
}

// ExecAppContext runs the user app until it exits, yielding to the caller's
// scheduler in between syscalls that don't terminate it. yield is called
// once per iteration that returned ExitReasonYielded — in the kernel this
// is executor.Yield; tests can pass a no-op.
//
// This is the Go-level equivalent of the Rust original's
// `exec_app_context()` coroutine: a loop around the asm round trip that
// suspends the *caller*, not a hardware thread, at every syscall boundary
// (spec.md §9 "Coroutines across privilege boundary").
func ExecAppContext(sw Switcher, yield func()) int64 {
	for {
		ContextOS.mu.Lock()
		osCtx := &ContextOS.ctx
		ContextOS.mu.Unlock()

		ContextApp.mu.Lock()
		appCtx := &ContextApp.ctx
		// Both locks are released before entering the app so a syscall
		// handler executing on its behalf can still touch either context
		// (spec.md §5).
		ContextApp.mu.Unlock()

		reason, retcode := sw.SwitchToApp(osCtx, appCtx)

		if reason == ExitReasonReturned {
			return retcode
		}
		yield()
	}
}
