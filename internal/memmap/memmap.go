// Package memmap models the UEFI memory map handed off by the loader
// immediately before ExitBootServices, per spec.md §6. The loader itself is
// out of scope; this package only describes the wire layout it produces and
// the iteration biscuit's phys_init/first_fit_allocator consume it with.
package memmap

// MemoryType mirrors the subset of EFI_MEMORY_TYPE values the allocator
// cares about (spec.md §3: only CONVENTIONAL_MEMORY contributes to the
// heap; LOADER_CODE/LOADER_DATA are inspected for diagnostics only).
type MemoryType uint32

const (
	ReservedMemoryType MemoryType = iota
	LoaderCode
	LoaderData
	BootServicesCode
	BootServicesData
	RuntimeServicesCode
	RuntimeServicesData
	ConventionalMemory
	UnusableMemory
	ACPIReclaimMemory
	ACPIMemoryNVS
	MemoryMappedIO
	MemoryMappedIOPortSpace
	PalCode
	PersistentMemory
)

func (t MemoryType) String() string {
	switch t {
	case ReservedMemoryType:
		return "Reserved"
	case LoaderCode:
		return "LoaderCode"
	case LoaderData:
		return "LoaderData"
	case BootServicesCode:
		return "BootServicesCode"
	case BootServicesData:
		return "BootServicesData"
	case RuntimeServicesCode:
		return "RuntimeServicesCode"
	case RuntimeServicesData:
		return "RuntimeServicesData"
	case ConventionalMemory:
		return "ConventionalMemory"
	case UnusableMemory:
		return "UnusableMemory"
	case ACPIReclaimMemory:
		return "ACPIReclaimMemory"
	case ACPIMemoryNVS:
		return "ACPIMemoryNVS"
	case MemoryMappedIO:
		return "MemoryMappedIO"
	case MemoryMappedIOPortSpace:
		return "MemoryMappedIOPortSpace"
	case PalCode:
		return "PalCode"
	case PersistentMemory:
		return "PersistentMemory"
	default:
		return "Unknown"
	}
}

// Descriptor is the fixed-layout record firmware produces for each region of
// physical memory (spec.md §3 "Memory descriptor"). Firmware commonly uses
// a 48-byte stride per record; the trailing padding beyond Attribute is not
// represented here.
type Descriptor struct {
	Type            MemoryType
	PhysicalStart   uintptr
	VirtualStart    uintptr
	NumberOfPages   uint64
	Attribute       uint64
}

// SizeBytes is the span of physical memory this descriptor covers.
func (d Descriptor) SizeBytes() uint64 {
	const pageSize = 4096
	return d.NumberOfPages * pageSize
}

// Map is an ordered sequence of descriptors captured from firmware. Ordering
// is not meaningful: descriptors are non-contiguous and the allocator never
// merges them (spec.md §4.1 "Initialization").
type Map struct {
	Descriptors []Descriptor
}

// Conventional returns only the descriptors the allocator may use as heap
// backing.
func (m Map) Conventional() []Descriptor {
	out := make([]Descriptor, 0, len(m.Descriptors))
	for _, d := range m.Descriptors {
		if d.Type == ConventionalMemory {
			out = append(out, d)
		}
	}
	return out
}

// LoaderRegions returns the descriptors used only for the boot-time
// diagnostic dump (LOADER_CODE/LOADER_DATA), grounded on
// first_fit_allocator.rs's init_with_mmap printing "Loader Info:" before the
// usable-memory dump.
func (m Map) LoaderRegions() []Descriptor {
	out := make([]Descriptor, 0)
	for _, d := range m.Descriptors {
		if d.Type == LoaderCode || d.Type == LoaderData {
			out = append(out, d)
		}
	}
	return out
}

// TotalConventionalBytes sums the size of every conventional-memory
// descriptor.
func (m Map) TotalConventionalBytes() uint64 {
	var total uint64
	for _, d := range m.Conventional() {
		total += d.SizeBytes()
	}
	return total
}
