package arch

import (
	"fmt"

	"golang.org/x/sys/cpu"
)

// CPUInfo is the decoded result of the boot-time CPU compatibility check,
// grounded on biscuit's cpuchk/cpuidfamily/perfsetup (main.go): family/model
// from CPUID leaf 1, long-mode and SYSENTER support from leaf
// 0x80000001/leaf 1, invariant TSC from leaf 0x80000007.
type CPUInfo struct {
	Family, Model   uint32
	LongModeCapable bool
	SyscallCapable  bool
	InvariantTSC    bool
}

// CheckCPU probes CPU capabilities required before the kernel can continue
// booting. It prefers golang.org/x/sys/cpu's decoded feature flags (the way
// a hosted Go program would) and only drops to raw CPUID leaves for bits
// x/sys/cpu does not expose, mirroring biscuit's hand-rolled equivalent.
func CheckCPU() (CPUInfo, error) {
	var info CPUInfo

	if !cpu.X86.HasSSE2 {
		return info, fmt.Errorf("arch: SSE2 not supported")
	}

	_, _, _, edx1 := Cpuid(0x80000001, 0)
	const longModeBit = uint32(1) << 29
	info.LongModeCapable = edx1&longModeBit != 0
	if !info.LongModeCapable {
		return info, fmt.Errorf("arch: CPU is not long-mode capable")
	}

	eax1, _, ecx1, edx1b := Cpuid(1, 0)
	info.Model = (eax1 >> 4) & 0xf
	info.Family = (eax1 >> 8) & 0xf
	extModel := (eax1 >> 16) & 0xf
	extFamily := (eax1 >> 20) & 0xff
	info.Model = extModel<<4 + info.Model
	info.Family = extFamily + info.Family

	stepping := eax1 & 0xf
	const sysenterBit = uint32(1) << 11
	oldBuggyP6 := info.Family == 6 && info.Model < 3 && stepping < 3
	info.SyscallCapable = edx1b&sysenterBit != 0 && !oldBuggyP6 && cpu.X86.HasSSE2
	_ = ecx1
	if !info.SyscallCapable {
		return info, fmt.Errorf("arch: SYSENTER/SYSCALL not supported")
	}

	_, _, _, edx7 := Cpuid(0x80000007, 0)
	const invariantTSCBit = uint32(1) << 8
	info.InvariantTSC = edx7&invariantTSCBit != 0

	return info, nil
}
