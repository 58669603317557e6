// Package bootinfo models the handoff record the (out-of-scope) UEFI
// loader produces for the kernel (spec.md §6 "Boot info"). The loader
// itself, and the VRAM framebuffer it hands off, are external
// collaborators; only the fields this kernel core actually reads are
// modeled here.
package bootinfo

import (
	"sync"

	"github.com/mochios/kernel/internal/memmap"
)

// RootFile is one entry of the root-files cache the loader captured at
// boot — UEFI 8.3 file names (spec.md §6).
type RootFile struct {
	Name  string
	Bytes []byte
}

// Info is the boot handoff record. VRAM is represented only as an opaque
// handle: the graphics framebuffer itself is out of scope (spec.md §1).
type Info struct {
	VRAMHandle   uintptr
	RootFiles    []RootFile
	BSPLocalAPIC uintptr
	MemoryMap    memmap.Map
}

var (
	mu       sync.Mutex
	instance *Info
	taken    bool
)

// Set installs the boot info record. Called exactly once, by the earliest
// boot code, before any Take.
func Set(info *Info) {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		panic("bootinfo: Set called twice")
	}
	instance = info
}

// Take returns the boot info record on its first call and panics on every
// subsequent call, mirroring the lock-guarded Option's "initialized on
// first take()" lifecycle (spec.md §5) — this singleton in particular is
// consumed exactly once, by whatever subsystem owns root-files handoff to
// the loader, rather than cloned via shared ownership like Network or
// InputManager.
func Take() *Info {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		panic("bootinfo: Take called before Set")
	}
	if taken {
		panic("bootinfo: Take called twice")
	}
	taken = true
	return instance
}

// Lookup finds a root file by its UEFI 8.3 name, for the shell's ELF
// loader fallback.
func (i *Info) Lookup(name string) ([]byte, bool) {
	for _, f := range i.RootFiles {
		if f.Name == name {
			return f.Bytes, true
		}
	}
	return nil, false
}
