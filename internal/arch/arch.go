// Package arch is the kernel's one deliberate island of hand-written
// assembly. CPU-privileged instructions (port I/O, MSRs, LIDT/LTR, FXSAVE,
// SYSRET) have no Go-ecosystem library because no hosted Go program is
// allowed to issue them — the justification the top-level instructions ask
// for when a component falls back to the standard library instead of a
// third-party one. Every function below is declared without a body and
// resolved by the matching arch_amd64.s stub, the same split
// iansmith-mazarin's "asm" package uses (asm.Dsb, asm.CleanDataCacheVA, all
// resolved via //go:linkname against hand-written .s routines) and the one
// biscuit reaches into its own runtime fork for (runtime.Wrmsr,
// runtime.Cpuid, runtime.Inb).
package arch

// Outb writes a byte to an I/O port.
//
//go:noescape
func Outb(port uint16, val uint8)

// Inb reads a byte from an I/O port.
//
//go:noescape
func Inb(port uint16) uint8

// Outl writes a dword to an I/O port.
//
//go:noescape
func Outl(port uint16, val uint32)

// Inl reads a dword from an I/O port.
//
//go:noescape
func Inl(port uint16) uint32

// Rdmsr reads a model-specific register.
//
//go:noescape
func Rdmsr(reg uint32) uint64

// Wrmsr writes a model-specific register.
//
//go:noescape
func Wrmsr(reg uint32, val uint64)

// Cpuid executes CPUID with the given leaf/subleaf and returns eax,ebx,ecx,edx.
//
//go:noescape
func Cpuid(leaf, subleaf uint32) (eax, ebx, ecx, edx uint32)

// Rdtsc reads the timestamp counter.
//
//go:noescape
func Rdtsc() uint64

// ReadCR2 reads the faulting address register populated by a page fault.
//
//go:noescape
func ReadCR2() uint64

// Lidt loads the interrupt descriptor table register from a packed
// {limit uint16; base uint64} descriptor (see idt.Descriptor).
//
//go:noescape
func Lidt(idtr uintptr)

// Ltr loads the task register with a GDT selector pointing at the TSS.
//
//go:noescape
func Ltr(selector uint16)

// Fxsave saves the FPU/SSE state into a 512-byte, 16-byte-aligned buffer.
//
//go:noescape
func Fxsave(dst *[512]byte)

// Fxrstor restores the FPU/SSE state from a 512-byte, 16-byte-aligned buffer.
//
//go:noescape
func Fxrstor(src *[512]byte)

// WriteMSRStar programs IA32_STAR/LSTAR/FMASK for SYSCALL/SYSRET, given the
// kernel and user segment selector bases and the entry point of the
// assembly syscall trampoline.
//
//go:noescape
func WriteSyscallMSRs(kernelCS, userCS32 uint16, lstar uintptr, fmask uint32)

// EnableInterrupts sets RFLAGS.IF.
//
//go:noescape
func EnableInterrupts()

// DisableInterrupts clears RFLAGS.IF and returns the previous RFLAGS value,
// mirroring biscuit's Pushcli/Popcli pair (main.go's ap_entry uses this
// exact idiom around the startup spin-wait).
//
//go:noescape
func DisableInterrupts() (savedFlags uint64)

// RestoreInterrupts restores RFLAGS saved by DisableInterrupts.
//
//go:noescape
func RestoreInterrupts(savedFlags uint64)

// Halt executes HLT, parking the CPU until the next interrupt.
//
//go:noescape
func Halt()
