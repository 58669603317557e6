// MMIO register layout for the xHCI controller (spec.md §6 "xHCI MMIO").
// All accesses are explicit volatile reads/writes over identity-mapped,
// cache-disabled memory; this file only computes offsets and decodes
// capability bits, leaving the actual volatile load/store to a narrow
// Registers seam so tests never touch real memory.
package xhci

import "github.com/mochios/kernel/internal/kerrors"

// Registers is the volatile MMIO access seam. Production wiring reads/writes
// real physical addresses; tests back it with a plain byte buffer.
type Registers interface {
	ReadU32(offset uintptr) uint32
	WriteU32(offset uintptr, v uint32)
	ReadU64(offset uintptr) uint64
	WriteU64(offset uintptr, v uint64)
}

// Capability register offsets (from MMIO base).
const (
	capCAPLENGTH  = 0x00 // byte 0: operational register offset
	capHCCPARAMS1 = 0x10
	capDBOFF      = 0x14
	capRTSOFF     = 0x18
	capPAGESIZE   = 0x08 // operational-relative, handled separately below
)

// Capabilities decodes the fields this driver requires before it will
// start: 64-bit addressing and 32-byte contexts (spec.md §4.5: "the driver
// refuses to start if HCCPARAMS1.AC64 = 0 or CSZ = 1").
type Capabilities struct {
	OperationalOffset uintptr
	RuntimeOffset     uintptr
	DoorbellOffset    uintptr
	AC64              bool
	CSZ               bool
}

// ReadCapabilities reads and validates the capability register block.
// Returns ErrAC64Unsupported / ErrContextSize64 if the controller doesn't
// meet the driver's requirements.
func ReadCapabilities(regs Registers) (Capabilities, error) {
	capLength := regs.ReadU32(capCAPLENGTH) & 0xff
	hccparams1 := regs.ReadU32(capHCCPARAMS1)
	dboff := regs.ReadU32(capDBOFF) &^ 0x3
	rtsoff := regs.ReadU32(capRTSOFF) &^ 0x1f

	c := Capabilities{
		OperationalOffset: uintptr(capLength),
		RuntimeOffset:     uintptr(rtsoff),
		DoorbellOffset:    uintptr(dboff),
		AC64:              hccparams1&(1<<0) != 0,
		CSZ:               hccparams1&(1<<2) != 0,
	}
	if !c.AC64 {
		return c, kerrors.ErrAC64Unsupported
	}
	if c.CSZ {
		return c, kerrors.ErrContextSize64
	}
	return c, nil
}

// PortscOffset computes the PORTSC offset for a 1-based port number,
// relative to the Operational register base (spec.md §6: "PORTSC at
// Operational + 0x400 + 0x10*(port−1)").
func PortscOffset(port int) uintptr {
	return 0x400 + 0x10*uintptr(port-1)
}

// interrupterERDPOffset is the byte offset of interrupter 0's ERDP field
// within the Runtime register block: the interrupter register array starts
// at RTSOFF+0x20, and ERDP is the last 8-byte field of each 0x20-byte
// InterrupterRegisterSet (IMAN, IMOD, ERSTSZ, rsvd, ERSTBA, ERDP).
const interrupterERDPOffset = 0x20 + 0x18

// mmioERDP implements ERDPWriter against interrupter 0's ERDP register in
// the Runtime register block (ring.rs's EventRing::pop, writing through the
// pointer set by set_erdp).
type mmioERDP struct {
	regs          Registers
	runtimeOffset uintptr
}

// NewMMIOERDP wraps the Runtime register block's interrupter-0 ERDP field
// for production event-ring acknowledgement.
func NewMMIOERDP(regs Registers, runtimeOffset uintptr) ERDPWriter {
	return mmioERDP{regs: regs, runtimeOffset: runtimeOffset}
}

func (m mmioERDP) ReadERDP() uint64 {
	return m.regs.ReadU64(m.runtimeOffset + interrupterERDPOffset)
}

func (m mmioERDP) WriteERDP(addr uint64) {
	m.regs.WriteU64(m.runtimeOffset+interrupterERDPOffset, addr)
}

// PageSize reads the operational PAGE_SIZE register relative to
// operationalOffset and validates it is a single bit (spec.md §6: "Page
// size read from PAGE_SIZE and must be a single bit").
func PageSize(regs Registers, operationalOffset uintptr) (uint32, error) {
	const pageSizeOffset = 0x08
	raw := regs.ReadU32(operationalOffset + pageSizeOffset)
	if raw == 0 || raw&(raw-1) != 0 {
		return 0, kerrors.ErrPageSizeNotSingleBit
	}
	// PAGE_SIZE register bit n means 2^(n+12) bytes.
	shift := 0
	for raw>>1 != 0 {
		raw >>= 1
		shift++
	}
	return 1 << (shift + 12), nil
}
