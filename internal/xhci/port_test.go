package xhci

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateOfAllFivePoints(t *testing.T) {
	require.Equal(t, PortPoweredOff, StateOf(PORTSC{}))
	require.Equal(t, PortDisconnected, StateOf(PORTSC{PP: true}))
	require.Equal(t, PortDisabled, StateOf(PORTSC{PP: true, CCS: true}))
	require.Equal(t, PortReset, StateOf(PORTSC{PP: true, CCS: true, PR: true}))
	require.Equal(t, PortEnabled, StateOf(PORTSC{PP: true, CCS: true, PED: true}))
}

type fakePortRegister struct {
	state       PORTSC
	ppAfterTick int
	prTicks     int
}

func (r *fakePortRegister) Read() PORTSC { return r.state }

func (r *fakePortRegister) SetPowerAndReset(power, reset bool) {
	r.state.PP = power
	r.state.PR = reset
	if reset {
		r.state.CCS = true
	}
}

func TestResetSequence(t *testing.T) {
	reg := &fakePortRegister{}
	spins := 0
	// The fake asserts PP as soon as power is requested; PR clears on the
	// third spin of the reset wait.
	Reset(reg, func() {
		spins++
		if spins == 1 {
			reg.state.PP = true
		}
		if reg.state.PR && spins >= 3 {
			reg.state.PR = false
		}
	})
	require.True(t, reg.state.PP)
	require.False(t, reg.state.PR)
}
