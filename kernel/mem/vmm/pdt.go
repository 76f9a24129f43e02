package vmm

import (
	"encoding/binary"

	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/mem"
	"github.com/ceyert/kuzne/kernel/mem/heap"
)

// PageDirectoryTable describes the top-most table in a two-level paging
// scheme together with the 1024 page tables it points to.
type PageDirectoryTable struct {
	pdtFrame mem.Frame

	heap *heap.Heap
	ram  *mem.RAM
}

// New allocates a page directory and all of its page tables from h and
// identity maps the entire 4 GiB address space using the supplied flags.
// Directory entries always carry FlagRW in addition to flags so that write
// access is controlled by the page table entries alone. If an allocation
// fails, everything allocated so far is released.
func New(h *heap.Heap, flags PageTableEntryFlag) (*PageDirectoryTable, *kernel.Error) {
	pdtAddr, err := h.ZAlloc(mem.PageSize)
	if err != nil {
		return nil, err
	}

	pdt := &PageDirectoryTable{
		pdtFrame: mem.FrameFromAddress(pdtAddr),
		heap:     h,
		ram:      h.RAM(),
	}

	pdtEntries, err := pdt.ram.Slice(pdtAddr, mem.PageSize)
	if err != nil {
		pdt.Free()
		return nil, err
	}

	for dirIndex := 0; dirIndex < mem.PageTableEntries; dirIndex++ {
		tableAddr, err := h.Alloc(mem.PageSize)
		if err != nil {
			pdt.Free()
			return nil, err
		}

		tableEntries, err := pdt.ram.Slice(tableAddr, mem.PageSize)
		if err != nil {
			h.Free(tableAddr)
			pdt.Free()
			return nil, err
		}

		physAddr := uintptr(dirIndex) * tableSpan
		for tableIndex := 0; tableIndex < mem.PageTableEntries; tableIndex++ {
			binary.LittleEndian.PutUint32(tableEntries[tableIndex*entrySize:], uint32(NewPageTableEntry(physAddr, flags)))
			physAddr += mem.PageSize
		}

		binary.LittleEndian.PutUint32(pdtEntries[dirIndex*entrySize:], uint32(NewPageTableEntry(tableAddr, flags|FlagRW)))
	}

	return pdt, nil
}

// Root returns the physical address of the page directory.
func (pdt *PageDirectoryTable) Root() uintptr {
	return pdt.pdtFrame.Address()
}

// Activate enables this page directory table and flushes the TLB.
func (pdt *PageDirectoryTable) Activate() {
	switchPDTFn(pdt.Root())
}

// Active returns true if this page directory is the active paging root.
func (pdt *PageDirectoryTable) Active() bool {
	return activePDTFn() == pdt.Root()
}

// Map establishes a mapping between the virtual page at virtAddr and the
// physical frame at physAddr. Both addresses must be page aligned.
func (pdt *PageDirectoryTable) Map(virtAddr, physAddr uintptr, flags PageTableEntryFlag) *kernel.Error {
	if !mem.IsAligned(virtAddr) || !mem.IsAligned(physAddr) {
		return errMisalignedAddress
	}

	return pdt.Set(virtAddr, NewPageTableEntry(physAddr, flags))
}

// MapRange maps count consecutive pages starting at virtAddr to the
// consecutive frames starting at physAddr. It stops at the first failure.
func (pdt *PageDirectoryTable) MapRange(virtAddr, physAddr uintptr, count int, flags PageTableEntryFlag) *kernel.Error {
	for ; count > 0; count, virtAddr, physAddr = count-1, virtAddr+mem.PageSize, physAddr+mem.PageSize {
		if err := pdt.Map(virtAddr, physAddr, flags); err != nil {
			return err
		}
	}

	return nil
}

// MapTo maps the physical range [physStart, physEnd) at virtAddr. All three
// addresses must be page aligned.
func (pdt *PageDirectoryTable) MapTo(virtAddr, physStart, physEnd uintptr, flags PageTableEntryFlag) *kernel.Error {
	if !mem.IsAligned(virtAddr) || !mem.IsAligned(physStart) || !mem.IsAligned(physEnd) {
		return errMisalignedAddress
	}

	if physEnd < physStart {
		return errInvalidRange
	}

	return pdt.MapRange(virtAddr, physStart, int((physEnd-physStart)/mem.PageSize), flags)
}

// Set overwrites the page table entry for the page that contains virtAddr.
func (pdt *PageDirectoryTable) Set(virtAddr uintptr, pte PageTableEntry) *kernel.Error {
	pteAddr, err := pdt.pteAddress(virtAddr, false)
	if err != nil {
		return err
	}

	return pdt.ram.WriteUint32(pteAddr, uint32(pte))
}

// Get returns the page table entry for the page that contains virtAddr.
func (pdt *PageDirectoryTable) Get(virtAddr uintptr) (PageTableEntry, *kernel.Error) {
	pteAddr, err := pdt.pteAddress(virtAddr, false)
	if err != nil {
		return 0, err
	}

	pte, err := pdt.ram.ReadUint32(pteAddr)
	return PageTableEntry(pte), err
}

// PhysicalAddress returns the physical address that virtAddr is mapped to
// regardless of the entry flags.
func (pdt *PageDirectoryTable) PhysicalAddress(virtAddr uintptr) (uintptr, *kernel.Error) {
	pte, err := pdt.Get(mem.AlignDown(virtAddr))
	if err != nil {
		return 0, err
	}

	return pte.Frame().Address() + PageOffset(virtAddr), nil
}

// Translate returns the physical address that corresponds to the supplied
// virtual address or ErrInvalidMapping if the virtual address does not
// correspond to a present physical page.
func (pdt *PageDirectoryTable) Translate(virtAddr uintptr) (uintptr, *kernel.Error) {
	pteAddr, err := pdt.pteAddress(virtAddr, true)
	if err != nil {
		return 0, err
	}

	raw, err := pdt.ram.ReadUint32(pteAddr)
	if err != nil {
		return 0, err
	}

	pte := PageTableEntry(raw)
	if !pte.HasFlags(FlagPresent) {
		return 0, ErrInvalidMapping
	}

	// Calculate the physical address by taking the physical frame address and
	// appending the offset from the virtual address
	return pte.Frame().Address() + PageOffset(virtAddr), nil
}

// Free releases every page table and then the directory itself. The caller
// must ensure that no task still uses this directory.
func (pdt *PageDirectoryTable) Free() {
	pdtEntries, err := pdt.ram.Slice(pdt.Root(), mem.PageSize)
	if err == nil {
		for dirIndex := 0; dirIndex < mem.PageTableEntries; dirIndex++ {
			pde := PageTableEntry(binary.LittleEndian.Uint32(pdtEntries[dirIndex*entrySize:]))
			if pde == 0 {
				continue
			}

			pdt.heap.Free(pde.Frame().Address())
			binary.LittleEndian.PutUint32(pdtEntries[dirIndex*entrySize:], 0)
		}
	}

	pdt.heap.Free(pdt.Root())
}

// pteAddress returns the physical address of the page table entry that
// describes virtAddr. If requirePresent is set, a directory entry without
// FlagPresent yields ErrInvalidMapping.
func (pdt *PageDirectoryTable) pteAddress(virtAddr uintptr, requirePresent bool) (uintptr, *kernel.Error) {
	if uint64(virtAddr) > maxVirtAddr {
		return 0, errAddressTooLarge
	}

	dirIndex := virtAddr >> pdtShift
	raw, err := pdt.ram.ReadUint32(pdt.Root() + dirIndex*entrySize)
	if err != nil {
		return 0, err
	}

	pde := PageTableEntry(raw)
	if requirePresent && !pde.HasFlags(FlagPresent) {
		return 0, ErrInvalidMapping
	}

	tableIndex := (virtAddr >> mem.PageShift) & tableIndexMask
	return pde.Frame().Address() + tableIndex*entrySize, nil
}
