// Package vmm builds and maintains the two-level page tables that describe
// the 4 GiB address space of every task. Directories and tables are
// allocated from the kernel heap and accessed through physical RAM, which
// means that any directory can be inspected or modified regardless of the
// one that is currently active.
package vmm

import (
	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/cpu"
	"github.com/ceyert/kuzne/kernel/mem"
)

const (
	// pdtShift is the shift that extracts the directory index from a
	// virtual address.
	pdtShift = 22

	// tableIndexMask masks a page table index after shifting a virtual
	// address by mem.PageShift.
	tableIndexMask = mem.PageTableEntries - 1

	// tableSpan is the number of bytes mapped by a single page table.
	tableSpan = mem.PageTableEntries * mem.PageSize

	// entrySize is the size of a directory or table entry in bytes.
	entrySize = 4

	// maxVirtAddr is the highest addressable virtual address.
	maxVirtAddr = uint64(1)<<32 - 1
)

var (
	// activePDTFn is used by tests to override calls to cpu.ActivePDT.
	activePDTFn = cpu.ActivePDT

	// switchPDTFn is used by tests to override calls to cpu.SwitchPDT.
	switchPDTFn = cpu.SwitchPDT

	// ErrInvalidMapping is returned when trying to lookup a virtual memory address that is not yet mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped physical page", Code: kernel.CodeInvalidArgument}

	errMisalignedAddress = &kernel.Error{Module: "vmm", Message: "addresses must be page aligned", Code: kernel.CodeInvalidArgument}
	errInvalidRange      = &kernel.Error{Module: "vmm", Message: "physical range end precedes its start", Code: kernel.CodeInvalidArgument}
	errAddressTooLarge   = &kernel.Error{Module: "vmm", Message: "virtual address exceeds the 32-bit address space", Code: kernel.CodeInvalidArgument}
)

// Switch makes pdt the active page directory.
func Switch(pdt *PageDirectoryTable) {
	pdt.Activate()
}

// PageOffset returns the offset within the page specified by a virtual
// address.
func PageOffset(virtAddr uintptr) uintptr {
	return virtAddr & (mem.PageSize - 1)
}
