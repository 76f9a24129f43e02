// Package mem provides memory size units, page alignment helpers and the
// physical RAM region shared by the kernel allocators.
package mem

const (
	// PageShift is equal to log2(PageSize). This constant is used when
	// we need to convert a physical address to a page number (shift right by PageShift)
	// and vice-versa.
	PageShift = 12

	// PageSize defines the system's page size in bytes.
	PageSize = 1 << PageShift

	// PageTableEntries is the number of 32-bit entries in a page directory
	// or page table.
	PageTableEntries = 1024

	// PhysicalLimit is the end of the 32-bit physical address space that
	// page table entries can describe.
	PhysicalLimit uint64 = 1 << 32
)

// InPhysicalRange returns true if [base, base+size) lies below
// PhysicalLimit.
func InPhysicalRange(base, size uintptr) bool {
	return uint64(base) <= PhysicalLimit && uint64(size) <= PhysicalLimit-uint64(base)
}

// AlignUp rounds addr up to the next page boundary.
func AlignUp(addr uintptr) uintptr {
	return (addr + PageSize - 1) &^ (PageSize - 1)
}

// AlignDown rounds addr down to the page boundary that contains it.
func AlignDown(addr uintptr) uintptr {
	return addr &^ (PageSize - 1)
}

// IsAligned returns true if addr lies on a page boundary.
func IsAligned(addr uintptr) bool {
	return addr&(PageSize-1) == 0
}

// Frame describes a physical memory page index.
type Frame uintptr

// Address returns the physical address of this Frame.
func (f Frame) Address() uintptr {
	return uintptr(f << PageShift)
}

// FrameFromAddress returns the Frame that contains physAddr.
func FrameFromAddress(physAddr uintptr) Frame {
	return Frame(AlignDown(physAddr) >> PageShift)
}

// Page describes a virtual memory page index.
type Page uintptr

// Address returns the virtual address of this Page.
func (p Page) Address() uintptr {
	return uintptr(p << PageShift)
}

// PageFromAddress returns the Page that contains virtAddr.
func PageFromAddress(virtAddr uintptr) Page {
	return Page(AlignDown(virtAddr) >> PageShift)
}
