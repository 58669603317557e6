package xhci

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mochios/kernel/internal/kerrors"
)

type fakeRegisters struct {
	u32 map[uintptr]uint32
	u64 map[uintptr]uint64
}

func newFakeRegisters() *fakeRegisters {
	return &fakeRegisters{u32: map[uintptr]uint32{}, u64: map[uintptr]uint64{}}
}

func (r *fakeRegisters) ReadU32(offset uintptr) uint32  { return r.u32[offset] }
func (r *fakeRegisters) WriteU32(offset uintptr, v uint32) { r.u32[offset] = v }
func (r *fakeRegisters) ReadU64(offset uintptr) uint64  { return r.u64[offset] }
func (r *fakeRegisters) WriteU64(offset uintptr, v uint64) { r.u64[offset] = v }

func TestReadCapabilitiesRejectsNoAC64(t *testing.T) {
	regs := newFakeRegisters()
	regs.u32[capCAPLENGTH] = 0x20
	regs.u32[capHCCPARAMS1] = 0 // AC64=0

	_, err := ReadCapabilities(regs)
	require.ErrorIs(t, err, kerrors.ErrAC64Unsupported)
}

func TestReadCapabilitiesRejectsCSZ(t *testing.T) {
	regs := newFakeRegisters()
	regs.u32[capCAPLENGTH] = 0x20
	regs.u32[capHCCPARAMS1] = (1 << 0) | (1 << 2) // AC64=1, CSZ=1

	_, err := ReadCapabilities(regs)
	require.ErrorIs(t, err, kerrors.ErrContextSize64)
}

func TestReadCapabilitiesAccepts(t *testing.T) {
	regs := newFakeRegisters()
	regs.u32[capCAPLENGTH] = 0x20
	regs.u32[capHCCPARAMS1] = 1 << 0
	regs.u32[capDBOFF] = 0x2000
	regs.u32[capRTSOFF] = 0x3000

	caps, err := ReadCapabilities(regs)
	require.NoError(t, err)
	require.EqualValues(t, 0x20, caps.OperationalOffset)
	require.EqualValues(t, 0x2000, caps.DoorbellOffset)
	require.EqualValues(t, 0x3000, caps.RuntimeOffset)
}

func TestPortscOffsetFormula(t *testing.T) {
	require.EqualValues(t, 0x400, PortscOffset(1))
	require.EqualValues(t, 0x410, PortscOffset(2))
}

func TestPageSizeRejectsNonSingleBit(t *testing.T) {
	regs := newFakeRegisters()
	regs.u32[0x08] = 0b11
	_, err := PageSize(regs, 0)
	require.ErrorIs(t, err, kerrors.ErrPageSizeNotSingleBit)
}

func TestPageSizeDecodesBit(t *testing.T) {
	regs := newFakeRegisters()
	regs.u32[0x08] = 1 // bit 0 -> 4096
	size, err := PageSize(regs, 0)
	require.NoError(t, err)
	require.EqualValues(t, 4096, size)
}

func TestMMIOERDPPreservesLowBitsOnWrite(t *testing.T) {
	regs := newFakeRegisters()
	regs.u64[interrupterERDPOffset] = 0x1000 | 0b1010 // EHB set
	erdp := NewMMIOERDP(regs, 0)

	erdp.WriteERDP(0x2000)
	require.EqualValues(t, 0x2000, regs.u64[interrupterERDPOffset])

	// Simulate EventRing.Pop's read-modify-write pattern.
	preserved := (uint64(0x3000) &^ 0xf) | (erdp.ReadERDP() & 0xf)
	erdp.WriteERDP(preserved)
	require.EqualValues(t, 0x2000&0xf, regs.u64[interrupterERDPOffset]&0xf)
	require.EqualValues(t, 0x3000, regs.u64[interrupterERDPOffset]&^0xf)
}
