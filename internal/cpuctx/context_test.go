package cpuctx

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// fakeSwitcher lets ExecAppContext's loop be exercised without real
// privilege transitions: it yields a fixed number of times before
// reporting the app as returned.
type fakeSwitcher struct {
	yieldsRemaining int
	retcode         int64
}

func (f *fakeSwitcher) SwitchToApp(osCtx, appCtx *ExecutionContext) (ExitReason, int64) {
	if f.yieldsRemaining > 0 {
		f.yieldsRemaining--
		return ExitReasonYielded, 0
	}
	return ExitReasonReturned, f.retcode
}

func TestExecAppContextReturnsImmediately(t *testing.T) {
	sw := &fakeSwitcher{retcode: 42}
	yields := 0
	rc := ExecAppContext(sw, func() { yields++ })
	require.EqualValues(t, 42, rc)
	require.Zero(t, yields)
}

func TestExecAppContextYieldsThenReturns(t *testing.T) {
	sw := &fakeSwitcher{yieldsRemaining: 3, retcode: 7}
	yields := 0
	rc := ExecAppContext(sw, func() { yields++ })
	require.EqualValues(t, 7, rc)
	require.Equal(t, 3, yields)
}

func TestDispatchExit(t *testing.T) {
	d := Dispatcher{}
	regs := &CPURegisters{RAX: uint64(SyscallExit), RDI: 42}
	reason, rc := d.Dispatch(regs)
	require.Equal(t, ExitReasonReturned, reason)
	require.EqualValues(t, 42, rc)
}

type fakeConsole struct{ writes []string }

func (c *fakeConsole) WriteString(s string) { c.writes = append(c.writes, s) }

func TestDispatchWriteStringYields(t *testing.T) {
	msg := []byte("hello kernel")
	con := &fakeConsole{}
	d := Dispatcher{Console: con}
	regs := &CPURegisters{
		RAX: uint64(SyscallWriteString),
		RDI: uint64(uintptr(unsafe.Pointer(&msg[0]))),
		RSI: uint64(len(msg)),
	}
	reason, _ := d.Dispatch(regs)
	require.Equal(t, ExitReasonYielded, reason)
	require.Equal(t, []string{"hello kernel"}, con.writes)
}

type fakeKeys struct {
	r  rune
	ok bool
}

func (k fakeKeys) ReadKey() (rune, bool) { return k.r, k.ok }

func TestDispatchReadKeyNonBlocking(t *testing.T) {
	d := Dispatcher{Keys: fakeKeys{ok: false}}
	regs := &CPURegisters{RAX: uint64(SyscallReadKey)}
	reason, _ := d.Dispatch(regs)
	require.Equal(t, ExitReasonYielded, reason)
	require.Equal(t, ^uint64(0), regs.RAX)
}
