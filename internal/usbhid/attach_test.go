package usbhid

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mochios/kernel/internal/executor"
	"github.com/mochios/kernel/internal/kerrors"
	"github.com/mochios/kernel/internal/xhci"
)

type fakeClock struct{ counter uint64 }

func (c *fakeClock) Counter() uint64            { return c.counter }
func (c *fakeClock) PeriodFemtoseconds() uint64 { return 1_000_000_000_000 } // 1ms/tick

type fakeERDP struct{ low4 uint64 }

func (f *fakeERDP) ReadERDP() uint64      { return f.low4 }
func (f *fakeERDP) WriteERDP(addr uint64) { f.low4 = addr & 0xf }

type fakeDeviceControl struct {
	nextTrbAddr uint64
	issued      []uint8
	rings       map[uint8]*xhci.TransferRing
	doorbells   []uint8
	ccs         bool
}

func newFakeDeviceControl() *fakeDeviceControl {
	return &fakeDeviceControl{nextTrbAddr: 0x9000, rings: map[uint8]*xhci.TransferRing{}, ccs: true}
}

func (d *fakeDeviceControl) IssueControlRequest(requestType, request uint8, value, index uint16) (uint64, error) {
	d.issued = append(d.issued, request)
	addr := d.nextTrbAddr
	d.nextTrbAddr += 0x100
	return addr, nil
}

func (d *fakeDeviceControl) EndpointRing(dci uint8) (*xhci.TransferRing, error) {
	if r, ok := d.rings[dci]; ok {
		return r, nil
	}
	r := xhci.NewTransferRing(uint64(dci)<<16, func(buf []byte) uint64 { return 0x4000 })
	d.rings[dci] = r
	return r, nil
}

func (d *fakeDeviceControl) RingDoorbell(dci uint8) { d.doorbells = append(d.doorbells, dci) }
func (d *fakeDeviceControl) Slot() uint8            { return 3 }
func (d *fakeDeviceControl) PortscCCS() bool        { return d.ccs }

// TestAttachTaskSetupThenReportThenDisconnect drives the attach task through
// its three control-request phases, confirms the interrupt endpoint gets
// armed only after they complete, confirms a posted report event is routed
// through the endpoint's transfer ring, and confirms a port disconnect ends
// the task with ErrPortDisconnected (spec.md §4.6).
func TestAttachTaskSetupThenReportThenDisconnect(t *testing.T) {
	clock := &fakeClock{}
	ring := xhci.NewEventRing(0x7000, &fakeERDP{})
	dispatcher := xhci.NewDispatcher(ring)

	dev := newFakeDeviceControl()
	var received []rune
	sink := func(r rune) { received = append(received, r) }

	cfg := ConfigDescriptor{ConfigurationValue: 1}
	iface := InterfaceDescriptor{
		InterfaceNumber:   0,
		AlternateSetting:  0,
		InterfaceClass:    classHID,
		InterfaceSubClass: subclassBoot,
		InterfaceProtocol: protocolKeyboard,
	}
	task := NewAttachTask(dev, dispatcher, clock, sink, cfg, iface, []uint8{2})

	for i := 0; i < 3; i++ {
		require.Equal(t, executor.Pending, task.Poll())
		require.Greater(t, len(dev.issued), i)
		justIssuedAddr := dev.nextTrbAddr - 0x100
		ring.Push(xhci.TRB{Data: justIssuedAddr, Control: uint32(xhci.TrbTypeTransferEvent) << 10})
		require.Equal(t, executor.Pending, dispatcher.Poll())
	}
	require.Equal(t, []uint8{requestSetConfiguration, requestSetInterface, requestSetProtocol}, dev.issued)
	require.Empty(t, dev.doorbells)

	// The control sequence's last completion event is still pending
	// resolution inside the task; this call both drains it and runs
	// fillEndpoints, arming the interrupt endpoint's doorbell.
	require.Equal(t, executor.Pending, task.Poll())
	require.Contains(t, dev.doorbells, uint8(2))

	epRing := dev.rings[2]
	trbPtr := epRing.TrbPtr()
	ring.Push(xhci.TRB{
		Data:    trbPtr,
		Control: uint32(xhci.TrbTypeTransferEvent)<<10 | (uint32(2) << 16) | (uint32(3) << 24),
	})
	require.Equal(t, executor.Pending, dispatcher.Poll())
	require.Equal(t, executor.Pending, task.Poll())
	require.NotEqual(t, trbPtr, epRing.TrbPtr())
	_ = received // the DMA buffer is unzeroed; only the wiring is under test here

	dev.ccs = false
	require.Equal(t, executor.Ready, task.Poll())
	require.ErrorIs(t, task.Err(), kerrors.ErrPortDisconnected)
}
