// Package xhci implements the xHCI USB host-controller driver (spec.md
// §4.5): three TRB rings (Command, Transfer, Event), a port state machine,
// and a poll-and-resolve future mechanism for correlating commands/transfers
// with the events the controller posts in response. Grounded on
// os/src/xhci/{ring.rs,future.rs,mod.rs} of the original.
package xhci

// TRB is a 16-byte xHCI descriptor (spec.md §3 "TRB").
type TRB struct {
	Data    uint64
	Status  uint32
	Control uint32
}

const (
	controlCycleBit  = 1 << 0
	controlTypeShift = 10
	controlTypeMask  = 0x3f
)

// TrbType identifies the TRB's role, decoded from bits 15:10 of Control.
type TrbType uint32

const (
	TrbTypeNormal              TrbType = 1
	TrbTypeSetupStage          TrbType = 2
	TrbTypeDataStage           TrbType = 3
	TrbTypeStatusStage         TrbType = 4
	TrbTypeLink                TrbType = 6
	TrbTypeEnableSlotCommand   TrbType = 9
	TrbTypeAddressDeviceCommand TrbType = 11
	TrbTypeConfigureEndpointCommand TrbType = 12
	TrbTypeEvaluateContextCommand   TrbType = 13
	TrbTypeNoOpCommand         TrbType = 23
	TrbTypeTransferEvent       TrbType = 32
	TrbTypeCommandCompletionEvent TrbType = 33
	TrbTypePortStatusChangeEvent  TrbType = 34
)

// Type returns the TRB's type field.
func (t TRB) Type() TrbType {
	return TrbType((t.Control >> controlTypeShift) & controlTypeMask)
}

// Cycle reports the TRB's cycle bit.
func (t TRB) Cycle() bool {
	return t.Control&controlCycleBit != 0
}

// WithCycle returns a copy of t with its cycle bit set to c.
func (t TRB) WithCycle(c bool) TRB {
	if c {
		t.Control |= controlCycleBit
	} else {
		t.Control &^= controlCycleBit
	}
	return t
}

// NewLink builds a Link TRB pointing at target, used to wrap a ring back to
// slot 0 (spec.md §3 "TRB ring").
func NewLink(target uint64, toggleCycle bool) TRB {
	control := uint32(TrbTypeLink) << controlTypeShift
	if toggleCycle {
		control |= 1 << 1 // Toggle Cycle bit
	}
	return TRB{Data: target, Control: control}
}

// NewNormal builds a Normal TRB describing a transfer buffer, as used to
// pre-populate a Transfer ring's slots (spec.md §3 "Transfer ring").
func NewNormal(bufferAddr uint64, length uint32) TRB {
	control := uint32(TrbTypeNormal) << controlTypeShift
	return TRB{Data: bufferAddr, Status: length, Control: control}
}

func typeField(t TrbType) uint32 {
	return uint32(t) << controlTypeShift
}
