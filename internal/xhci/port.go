package xhci

// PortState is the USB2 root-hub port state machine derived from PORTSC
// bits PP, CCS, PED, PR (spec.md §4.5):
//
//	(F,F,F,F) PoweredOff → (T,F,F,F) Disconnected →
//	(T,T,F,F) Disabled → (T,T,F,T) Reset → (T,T,T,F) Enabled
type PortState int

const (
	PortPoweredOff PortState = iota
	PortDisconnected
	PortDisabled
	PortReset
	PortEnabled
	PortUnknown
)

// PORTSC is the decoded subset of bits this driver reads, at
// Operational + 0x400 + 0x10*(port-1) (spec.md §6 "xHCI MMIO").
type PORTSC struct {
	PP  bool // Port Power
	CCS bool // Current Connect Status
	PED bool // Port Enabled/Disabled
	PR  bool // Port Reset
}

// StateOf classifies a PORTSC snapshot into the root-hub state machine.
// Combinations outside the five named states report PortUnknown.
func StateOf(p PORTSC) PortState {
	switch {
	case !p.PP && !p.CCS && !p.PED && !p.PR:
		return PortPoweredOff
	case p.PP && !p.CCS && !p.PED && !p.PR:
		return PortDisconnected
	case p.PP && p.CCS && !p.PED && !p.PR:
		return PortDisabled
	case p.PP && p.CCS && !p.PED && p.PR:
		return PortReset
	case p.PP && p.CCS && p.PED && !p.PR:
		return PortEnabled
	default:
		return PortUnknown
	}
}

// PortRegister is the MMIO seam StateOf's caller reads/writes through;
// production wiring targets the real PORTSC offset, tests substitute an
// in-memory fake.
type PortRegister interface {
	Read() PORTSC
	SetPowerAndReset(power, reset bool)
}

// Reset asserts PP and spins until PP reads back set, then asserts PR and
// spins until PR reads back clear, matching spec.md §4.5's reset():
// "asserts PP and spins until PP, then asserts PR and spins until !PR."
// spin is called between polls so callers can yield or simply loop.
func Reset(reg PortRegister, spin func()) {
	reg.SetPowerAndReset(true, false)
	for !reg.Read().PP {
		if spin != nil {
			spin()
		}
	}
	reg.SetPowerAndReset(true, true)
	for reg.Read().PR {
		if spin != nil {
			spin()
		}
	}
}
