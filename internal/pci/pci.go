// Package pci implements ECAM-based PCI configuration space access
// (spec.md §6 "PCI config"), grounded on os/src/pci.rs's
// BusDeviceFunction bit-packing and register accessors.
package pci

import "github.com/mochios/kernel/internal/kerrors"

// BusDeviceFunction packs a PCI (bus, device, function) triple into the
// bit layout ECAM addressing expects: bus<<8 | device<<3 | function
// (spec.md §8 property 5, GLOSSARY "BDF").
type BusDeviceFunction uint32

// NewBusDeviceFunction validates bus ∈ [0,256), device ∈ [0,32),
// function ∈ [0,8) and packs them, per pci.rs's BusDeviceFunction::new.
func NewBusDeviceFunction(bus, device, function uint32) (BusDeviceFunction, error) {
	if bus >= 256 || device >= 32 || function >= 8 {
		return 0, kerrors.ErrBusDeviceFunctionRange
	}
	return BusDeviceFunction(bus<<8 | device<<3 | function), nil
}

// Decode unpacks bus/device/function back out.
func (bdf BusDeviceFunction) Decode() (bus, device, function uint32) {
	v := uint32(bdf)
	bus = v >> 8
	device = (v >> 3) & 0x1f
	function = v & 0x7
	return
}

// ECAMOffset is the byte offset of this BDF's configuration space within
// the ECAM region.
func (bdf BusDeviceFunction) ECAMOffset() uintptr {
	return uintptr(bdf) << 12
}

// Iterator yields every BusDeviceFunction in address order: 256 buses ×
// 32 devices × 8 functions = 65,536 total (spec.md §8 property 5).
type Iterator struct {
	next uint32
}

// NewIterator returns an iterator starting at BDF 0.
func NewIterator() *Iterator {
	return &Iterator{}
}

// Next returns the next BDF and true, or (0, false) once exhausted.
func (it *Iterator) Next() (BusDeviceFunction, bool) {
	if it.next >= 0x10000 {
		return 0, false
	}
	bdf := BusDeviceFunction(it.next)
	it.next++
	return bdf, true
}

// All drains the iterator into a slice, mainly for tests.
func All() []BusDeviceFunction {
	it := NewIterator()
	out := make([]BusDeviceFunction, 0, 0x10000)
	for {
		bdf, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, bdf)
	}
	return out
}

// ECAM is the memory-mapped configuration space access seam, rooted at the
// base address given by the first MCFG entry (spec.md §6). Register reads
// are bounded to bytes 0..256 with natural alignment.
type ECAM struct {
	base     uintptr
	readU8   func(addr uintptr) uint8
	readU16  func(addr uintptr) uint16
	readU32  func(addr uintptr) uint32
	writeU32 func(addr uintptr, v uint32)
}

// NewECAM wraps the given MMIO accessors over the ECAM region at base.
func NewECAM(base uintptr, readU8 func(uintptr) uint8, readU16 func(uintptr) uint16, readU32 func(uintptr) uint32, writeU32 func(uintptr, uint32)) *ECAM {
	return &ECAM{base: base, readU8: readU8, readU16: readU16, readU32: readU32, writeU32: writeU32}
}

func checkRegisterOffset(offset uintptr, width uintptr) error {
	if offset >= 256 {
		return kerrors.ErrRegisterOutOfRange
	}
	if offset%width != 0 {
		return kerrors.ErrRegisterOutOfRange
	}
	return nil
}

// ReadRegisterU8 reads one byte of bdf's configuration space at offset.
func (e *ECAM) ReadRegisterU8(bdf BusDeviceFunction, offset uintptr) (uint8, error) {
	if err := checkRegisterOffset(offset, 1); err != nil {
		return 0, err
	}
	return e.readU8(e.base + bdf.ECAMOffset() + offset), nil
}

// ReadRegisterU16 reads two naturally-aligned bytes of bdf's configuration
// space at offset.
func (e *ECAM) ReadRegisterU16(bdf BusDeviceFunction, offset uintptr) (uint16, error) {
	if err := checkRegisterOffset(offset, 2); err != nil {
		return 0, err
	}
	return e.readU16(e.base + bdf.ECAMOffset() + offset), nil
}

// ReadRegisterU32 reads four naturally-aligned bytes of bdf's configuration
// space at offset.
func (e *ECAM) ReadRegisterU32(bdf BusDeviceFunction, offset uintptr) (uint32, error) {
	if err := checkRegisterOffset(offset, 4); err != nil {
		return 0, err
	}
	return e.readU32(e.base + bdf.ECAMOffset() + offset), nil
}

// WriteRegisterU32 writes four naturally-aligned bytes of bdf's
// configuration space at offset.
func (e *ECAM) WriteRegisterU32(bdf BusDeviceFunction, offset uintptr, v uint32) error {
	if err := checkRegisterOffset(offset, 4); err != nil {
		return err
	}
	e.writeU32(e.base+bdf.ECAMOffset()+offset, v)
	return nil
}

// DeviceInfo is the minimal identification pulled from a BDF's header
// during probing.
type DeviceInfo struct {
	BDF      BusDeviceFunction
	VendorID uint16
	DeviceID uint16
}

const vendorIDOffset = 0x00
const unpopulatedVendorID = 0xffff

// ProbeDevices walks every BDF and returns those with a populated vendor ID
// (0xffff means "no device"), mirroring pci.rs's probe_devices.
func ProbeDevices(e *ECAM) ([]DeviceInfo, error) {
	var found []DeviceInfo
	it := NewIterator()
	for {
		bdf, ok := it.Next()
		if !ok {
			break
		}
		vendor, err := e.ReadRegisterU16(bdf, vendorIDOffset)
		if err != nil {
			return nil, err
		}
		if vendor == unpopulatedVendorID {
			continue
		}
		device, err := e.ReadRegisterU16(bdf, vendorIDOffset+2)
		if err != nil {
			return nil, err
		}
		found = append(found, DeviceInfo{BDF: bdf, VendorID: vendor, DeviceID: device})
	}
	return found, nil
}
