package usbhid

import (
	"github.com/mochios/kernel/internal/executor"
	"github.com/mochios/kernel/internal/hpet"
	"github.com/mochios/kernel/internal/kerrors"
	"github.com/mochios/kernel/internal/xhci"
)

// USB control-request fields used to drive SET_CONFIGURATION, SET_INTERFACE
// and the HID class SET_PROTOCOL request during attach (USB 2.0 spec §9.4,
// HID 1.11 spec §7.2.6), grounded on usb_hid_keyboard.rs's
// init_usb_hid_keyboard.
const (
	requestTypeStandardInterface = 0x01 // host-to-device, standard, interface
	requestTypeClassInterface    = 0x21 // host-to-device, class, interface

	requestSetConfiguration = 0x09
	requestSetInterface     = 0x0b
	requestSetProtocol      = 0x0b

	bootProtocolValue = 0x00
)

// DeviceControl is the per-device control-transfer and doorbell surface an
// attach task drives: one control endpoint plus one interrupt-in endpoint
// per HID interface (usb_hid_keyboard.rs's UsbDeviceDriverContext).
type DeviceControl interface {
	// IssueControlRequest pushes a Setup-stage TRB encoding the given USB
	// control request on the control endpoint's transfer ring, followed by
	// a Status-stage TRB, and rings its doorbell. It returns the physical
	// address of the Status-stage TRB, which the caller awaits completion
	// of via the event dispatcher.
	IssueControlRequest(requestType, request uint8, value, index uint16) (trbAddr uint64, err error)

	// EndpointRing returns the Transfer ring for the endpoint at the given
	// Device Context Index.
	EndpointRing(dci uint8) (*xhci.TransferRing, error)

	// RingDoorbell notifies the controller that dci's transfer ring has
	// new work queued.
	RingDoorbell(dci uint8)

	// Slot is this device's assigned Device Slot ID.
	Slot() uint8

	// PortscCCS reports the Current Connect Status bit of this device's
	// port; false means the device has been unplugged.
	PortscCCS() bool
}

type attachPhase int

const (
	phaseSetConfig attachPhase = iota
	phaseSetInterface
	phaseSetProtocol
	phaseFillEndpoints
	phaseWaitReport
	phaseDone
)

// AttachTask drives one USB HID boot-keyboard device from attach (the
// SET_CONFIGURATION/SET_INTERFACE/SET_PROTOCOL(Boot) control sequence, then
// arming its interrupt endpoint) through its steady-state report loop,
// exiting with an error when the port disconnects (usb_hid_keyboard.rs's
// init_usb_hid_keyboard + attach_usb_device; spec.md §4.6).
type AttachTask struct {
	dev        DeviceControl
	dispatcher *xhci.Dispatcher
	clock      hpet.Clock
	sink       KeySink
	cfg        ConfigDescriptor
	iface      InterfaceDescriptor
	epDCIs     []uint8

	phase attachPhase
	pend  *xhci.EventFuture
	kbd   KeyboardState
	err   error
}

// NewAttachTask builds an attach task for the boot-keyboard interface
// picked by PickConfig, with one interrupt-in endpoint per entry in epDCIs
// (its Device Context Indices).
func NewAttachTask(dev DeviceControl, dispatcher *xhci.Dispatcher, clock hpet.Clock, sink KeySink, cfg ConfigDescriptor, iface InterfaceDescriptor, epDCIs []uint8) *AttachTask {
	return &AttachTask{dev: dev, dispatcher: dispatcher, clock: clock, sink: sink, cfg: cfg, iface: iface, epDCIs: epDCIs}
}

// Err returns the reason the task stopped. Only meaningful once Poll has
// returned executor.Ready (spec.md §4.6: "when PORTSC.CCS = 0 the task
// returns an error").
func (t *AttachTask) Err() error { return t.err }

// Poll implements executor.Task, advancing through setup once and then
// running the steady-state report loop indefinitely.
func (t *AttachTask) Poll() executor.PollResult {
	for {
		switch t.phase {
		case phaseSetConfig:
			if !t.driveControl(phaseSetInterface, requestTypeStandardInterface, requestSetConfiguration, uint16(t.cfg.ConfigurationValue), 0) {
				return executor.Pending
			}
		case phaseSetInterface:
			if !t.driveControl(phaseSetProtocol, requestTypeStandardInterface, requestSetInterface, uint16(t.iface.AlternateSetting), uint16(t.iface.InterfaceNumber)) {
				return executor.Pending
			}
		case phaseSetProtocol:
			if !t.driveControl(phaseFillEndpoints, requestTypeClassInterface, requestSetProtocol, bootProtocolValue, uint16(t.iface.InterfaceNumber)) {
				return executor.Pending
			}
		case phaseFillEndpoints:
			if err := t.fillEndpoints(); err != nil {
				t.err = err
				t.phase = phaseDone
				continue
			}
			t.phase = phaseWaitReport
		case phaseWaitReport:
			return t.pollReportLoop()
		case phaseDone:
			return executor.Ready
		}
	}
}

// driveControl issues a control request the first time it's reached and
// registers an EventFuture for its completion; on later polls it advances
// that future. Returns true once the phase has conclusively moved on
// (success -> next, or failure -> phaseDone), false while still waiting.
func (t *AttachTask) driveControl(next attachPhase, requestType, request uint8, value, index uint16) bool {
	if t.pend == nil {
		trbAddr, err := t.dev.IssueControlRequest(requestType, request, value, index)
		if err != nil {
			t.err = err
			t.phase = phaseDone
			return true
		}
		waiter := xhci.NewEventWaitInfo(xhci.EventWaitCond{TrbType: xhci.TrbTypeTransferEvent, TrbAddr: &trbAddr})
		t.dispatcher.Register(waiter)
		t.pend = xhci.NewEventFuture(waiter, t.clock)
	}
	if t.pend.Poll() != executor.Ready {
		return false
	}
	resolved := t.pend.Resolved()
	t.pend = nil
	if !resolved {
		t.err = kerrors.ErrControlTransferTimedOut
		t.phase = phaseDone
		return true
	}
	t.phase = next
	return true
}

// fillEndpoints arms every interrupt-in endpoint's transfer ring and rings
// its doorbell. Per usb_hid_keyboard.rs's 4.6.6 comment, this only runs
// after a successful Configure-Endpoint-equivalent sequence (phaseSetConfig
// through phaseSetProtocol), never before.
func (t *AttachTask) fillEndpoints() error {
	for _, dci := range t.epDCIs {
		ring, err := t.dev.EndpointRing(dci)
		if err != nil {
			return err
		}
		ring.FillRing(8) // HID boot reports are fixed 8-byte buffers
		t.dev.RingDoorbell(dci)
	}
	return nil
}

// pollReportLoop awaits the next Transfer Event on this device's slot; when
// one resolves it reads and diffs the completed report, re-arms the ring,
// and keeps going. The port's CCS bit is checked every tick regardless of
// whether a report arrived, so a disconnect is observed promptly
// (usb_hid_keyboard.rs's attach_usb_device loop exit).
func (t *AttachTask) pollReportLoop() executor.PollResult {
	if t.pend == nil {
		slot := t.dev.Slot()
		waiter := xhci.NewEventWaitInfo(xhci.EventWaitCond{TrbType: xhci.TrbTypeTransferEvent, Slot: &slot})
		t.dispatcher.Register(waiter)
		t.pend = xhci.NewEventFuture(waiter, t.clock)
	}

	if t.pend.Poll() == executor.Ready {
		if t.pend.Resolved() {
			t.handleReportEvent(t.pend.TRB())
		}
		t.pend = nil
	}

	if !t.dev.PortscCCS() {
		t.err = kerrors.ErrPortDisconnected
		t.phase = phaseDone
		return executor.Ready
	}
	return executor.Pending
}

// handleReportEvent reads the completed boot report off the endpoint that
// produced eventTRB, re-arms that slot, and diffs the report.
func (t *AttachTask) handleReportEvent(eventTRB xhci.TRB) {
	dci := uint8((eventTRB.Control >> 16) & 0x1f) // Endpoint ID field
	ring, err := t.dev.EndpointRing(dci)
	if err != nil {
		return
	}
	buf, err := ring.DequeueTRB(eventTRB.Data, 8)
	if err != nil {
		return
	}
	t.dev.RingDoorbell(dci)

	var report BootReport
	copy(report[:], buf[:8])
	t.kbd.HandleReport(report, t.sink)
}
