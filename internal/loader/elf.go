// Package loader implements ELF parsing and loading and the application
// exec path (spec.md §4.7/§6 "ELF", §2 step 9 "Application loader / exec").
// Standard 64-bit static ELF only: segments are copied verbatim to the
// addresses named in their program headers, matching the scope the
// original treats as sufficient for its single embedded user app.
package loader

import (
	"encoding/binary"
	"fmt"
)

const (
	elfMagic0, elfMagic1, elfMagic2, elfMagic3 = 0x7f, 'E', 'L', 'F'
	elfClass64                                 = 2
	elfDataLSB                                  = 1
	ptLoad                                       = 1
)

// ProgramHeader is the subset of Elf64_Phdr this loader reads.
type ProgramHeader struct {
	Type     uint32
	Flags    uint32
	Offset   uint64
	VAddr    uint64
	FileSize uint64
	MemSize  uint64
}

// Image is a parsed ELF64 executable: its entry point and the PT_LOAD
// segments to map.
type Image struct {
	Entry    uint64
	Segments []ProgramHeader
	raw      []byte
}

const ehdrSize = 64

// Parse decodes a standard little-endian 64-bit static ELF executable.
func Parse(raw []byte) (*Image, error) {
	if len(raw) < ehdrSize {
		return nil, fmt.Errorf("loader: elf too short for header")
	}
	if raw[0] != elfMagic0 || raw[1] != elfMagic1 || raw[2] != elfMagic2 || raw[3] != elfMagic3 {
		return nil, fmt.Errorf("loader: bad elf magic")
	}
	if raw[4] != elfClass64 {
		return nil, fmt.Errorf("loader: not a 64-bit elf")
	}
	if raw[5] != elfDataLSB {
		return nil, fmt.Errorf("loader: not little-endian")
	}

	entry := binary.LittleEndian.Uint64(raw[24:32])
	phoff := binary.LittleEndian.Uint64(raw[32:40])
	phentsize := binary.LittleEndian.Uint16(raw[54:56])
	phnum := binary.LittleEndian.Uint16(raw[56:58])

	img := &Image{Entry: entry, raw: raw}
	for i := uint16(0); i < phnum; i++ {
		off := phoff + uint64(i)*uint64(phentsize)
		if off+56 > uint64(len(raw)) {
			return nil, fmt.Errorf("loader: program header %d out of range", i)
		}
		ph := ProgramHeader{
			Type:     binary.LittleEndian.Uint32(raw[off : off+4]),
			Flags:    binary.LittleEndian.Uint32(raw[off+4 : off+8]),
			Offset:   binary.LittleEndian.Uint64(raw[off+8 : off+16]),
			VAddr:    binary.LittleEndian.Uint64(raw[off+16 : off+24]),
			FileSize: binary.LittleEndian.Uint64(raw[off+32 : off+40]),
			MemSize:  binary.LittleEndian.Uint64(raw[off+40 : off+48]),
		}
		if ph.Type != ptLoad {
			continue
		}
		img.Segments = append(img.Segments, ph)
	}
	return img, nil
}

// MapSegments copies every PT_LOAD segment's file bytes to the address
// writeAt resolves for its VAddr, zero-filling the remainder up to MemSize
// (.bss). writeAt is the seam over whatever identity-mapped allocation
// backs the app's address space; tests back it with a plain map.
func (img *Image) MapSegments(writeAt func(vaddr uint64, data []byte)) error {
	for _, seg := range img.Segments {
		if seg.Offset+seg.FileSize > uint64(len(img.raw)) {
			return fmt.Errorf("loader: segment at vaddr %#x exceeds file", seg.VAddr)
		}
		fileBytes := img.raw[seg.Offset : seg.Offset+seg.FileSize]
		buf := make([]byte, seg.MemSize)
		copy(buf, fileBytes)
		writeAt(seg.VAddr, buf)
	}
	return nil
}
