// Command kernel is the entry point reached after the (out-of-scope) UEFI
// loader hands off to this core (spec.md §2 "Boot sequence"). It wires the
// boot steps in dependency order: MemoryMap, Allocator, IDT+TSS, Executor,
// Network manager, Context switcher, Input manager + shell, Application
// loader. The xHCI+HID step is not wired here (see the note at step 6).
//
// This package cannot actually run as a bare-metal entry point under a
// hosted Go toolchain — there is no runtime.rt0 hook for a freestanding
// UEFI image here the way biscuit's build wires its own. It stands in for
// that wiring the way the rest of this module stands in for real hardware:
// a deterministic skeleton a real loader's handoff would drive, built from
// the same components the tests exercise directly.
package main

import (
	"github.com/mochios/kernel/internal/alloc"
	"github.com/mochios/kernel/internal/arch"
	"github.com/mochios/kernel/internal/bootinfo"
	"github.com/mochios/kernel/internal/cpuctx"
	"github.com/mochios/kernel/internal/executor"
	"github.com/mochios/kernel/internal/hpet"
	"github.com/mochios/kernel/internal/idt"
	"github.com/mochios/kernel/internal/input"
	"github.com/mochios/kernel/internal/klog"
	"github.com/mochios/kernel/internal/netstack"
	"github.com/mochios/kernel/internal/shell"
)

const kernelCodeSelector = 0x08

func main() {
	boot()
}

func boot() {
	klog.SetLevel(klog.LevelInfo)
	klog.Infof("kernel: boot starting\n")

	info := bootinfo.Take()

	// Step 2: Allocator.
	heap := alloc.New()
	heap.InitFromMap(info.MemoryMap)

	// Step 2.5: CPU compatibility check, ahead of anything privileged.
	if cpuInfo, err := arch.CheckCPU(); err != nil {
		klog.Errorf("kernel: cpu check failed: %v\n", err)
		return
	} else {
		klog.Infof("kernel: cpu family=%d model=%d invariant_tsc=%v\n", cpuInfo.Family, cpuInfo.Model, cpuInfo.InvariantTSC)
	}

	// Step 3: IDT + TSS.
	tss := idt.NewTSS64(func(n int) (uintptr, []byte) {
		addr, err := heap.Alloc(uintptr(n*4096), 4096)
		if err != nil {
			panic(err)
		}
		return addr, make([]byte, n*4096)
	})
	_ = tss
	table := idt.New(kernelCodeSelector, 0)
	for vector, addr := range idt.EntryPoints() {
		table.Entries[vector].SetHandler(addr, kernelCodeSelector, 1, 0)
	}

	// Step 4: Executor.
	exec := executor.New()

	// Step 6: Network manager task (xHCI/HID wiring per steps 5 happens
	// once a real USB stack is attached; the manager task itself has no
	// dependency on that having completed to be spawned).
	// The HPET base address comes from ACPI table discovery, out of scope
	// here (spec.md §1); info.BSPLocalAPIC's sibling ACPI fields would
	// supply it in a full boot environment.
	clock := hpet.New(0)
	net := netstack.Take()
	exec.Spawn(netstack.NewManagerTask(net, clock, nil))

	// Step 7: Context switcher wiring — install the SYSCALL MSRs so user
	// mode can trap back in.
	arch.WriteSyscallMSRs(kernelCodeSelector, kernelCodeSelector, 0, 0)

	// Step 8: Input manager + shell.
	in := input.Take()
	sh := shell.New(in, consoleAdapter{}, info, cpuctx.AsmSwitcher)
	exec.Spawn(sh)

	klog.Infof("kernel: boot complete, entering scheduler\n")
	for i := 0; i < 1_000_000 && exec.Len() > 0; i++ {
		exec.RunOnce()
	}
}

type consoleAdapter struct{}

func (consoleAdapter) WriteString(s string) {
	klog.Infof("%s", s)
}
