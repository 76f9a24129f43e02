// Package heap implements the kernel block allocator. The managed range is
// split into fixed-size blocks and every block is described by a single map
// entry; the length of an allocation is recovered by following the HasNext
// chain starting at its first block.
package heap

import (
	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/mem"
)

// Entry describes the state of a single heap block.
type Entry uint8

// Entry flags. The low nibble stores the entry type.
const (
	EntryFree    Entry = 0x00
	EntryTaken   Entry = 0x01
	EntryIsFirst Entry = 0x40
	EntryHasNext Entry = 0x80

	entryTypeMask Entry = 0x0f
)

// Type returns the entry type (EntryFree or EntryTaken).
func (e Entry) Type() Entry {
	return e & entryTypeMask
}

// Map holds one Entry per heap block.
type Map struct {
	Entries []Entry
}

// NewMap returns a map with room for the given number of blocks.
func NewMap(blocks int) *Map {
	return &Map{Entries: make([]Entry, blocks)}
}

var (
	errMisalignedRange    = &kernel.Error{Module: "heap", Message: "heap range must be block aligned and match the map capacity", Code: kernel.CodeInvalidArgument}
	errOutOfPhysicalRange = &kernel.Error{Module: "heap", Message: "heap range must end below 4 GiB", Code: kernel.CodeInvalidArgument}
	errZeroSize           = &kernel.Error{Module: "heap", Message: "allocation size must be non-zero", Code: kernel.CodeInvalidArgument}
	errOutOfMemory        = &kernel.Error{Module: "heap", Message: "no free run large enough for the requested size", Code: kernel.CodeOutOfMemory}
)

// Heap is a first-fit block allocator over a physical address range. Freed
// runs are never coalesced with their neighbours and the map is always
// scanned from the start. Heap is not reentrant.
type Heap struct {
	entries   []Entry
	base      uintptr
	end       uintptr
	blockSize uintptr
	ram       *mem.RAM
}

// Create sets up a heap over [base, end) using blockSize-byte blocks. Both
// addresses must be block aligned and below 4 GiB, the block size must be a multiple of the
// page size and the map must hold exactly one entry per block. The map is
// cleared so that every block starts out free.
func Create(base, end, blockSize uintptr, m *Map, ram *mem.RAM) (*Heap, *kernel.Error) {
	if ram == nil || m == nil || blockSize == 0 || blockSize%mem.PageSize != 0 {
		return nil, errMisalignedRange
	}

	if base%blockSize != 0 || end%blockSize != 0 || end < base || uintptr(len(m.Entries)) != (end-base)/blockSize {
		return nil, errMisalignedRange
	}

	if !mem.InPhysicalRange(base, end-base) {
		return nil, errOutOfPhysicalRange
	}

	for i := range m.Entries {
		m.Entries[i] = EntryFree
	}

	return &Heap{
		entries:   m.Entries,
		base:      base,
		end:       end,
		blockSize: blockSize,
		ram:       ram,
	}, nil
}

// Alloc reserves enough contiguous blocks to hold size bytes and returns the
// physical address of the first block.
func (h *Heap) Alloc(size mem.Size) (uintptr, *kernel.Error) {
	blocks := h.blocksFor(size)
	if blocks == 0 {
		return 0, errZeroSize
	}

	start := h.findRun(blocks)
	if start < 0 {
		return 0, errOutOfMemory
	}

	last := start + blocks - 1
	for i := start; i <= last; i++ {
		entry := EntryTaken
		if i == start {
			entry |= EntryIsFirst
		}
		if i != last {
			entry |= EntryHasNext
		}
		h.entries[i] = entry
	}

	return h.base + uintptr(start)*h.blockSize, nil
}

// ZAlloc behaves like Alloc but also clears every byte of the reserved
// blocks.
func (h *Heap) ZAlloc(size mem.Size) (uintptr, *kernel.Error) {
	ptr, err := h.Alloc(size)
	if err != nil {
		return 0, err
	}

	if err = h.ram.Memset(ptr, 0, mem.Size(h.blocksFor(size))*mem.Size(h.blockSize)); err != nil {
		h.Free(ptr)
		return 0, err
	}

	return ptr, nil
}

// Free releases the allocation that starts at ptr. Pointers outside the heap
// range are ignored.
func (h *Heap) Free(ptr uintptr) {
	if ptr < h.base || ptr >= h.end {
		return
	}

	for i := int((ptr - h.base) / h.blockSize); i < len(h.entries); i++ {
		entry := h.entries[i]
		h.entries[i] = EntryFree
		if entry&EntryHasNext == 0 {
			break
		}
	}
}

// blocksFor returns the number of blocks needed to store size bytes.
func (h *Heap) blocksFor(size mem.Size) int {
	bs := mem.Size(h.blockSize)
	return int((size + bs - 1) / bs)
}

// findRun returns the index of the first run of count free entries or -1 if
// the map contains no such run.
func (h *Heap) findRun(count int) int {
	runStart, runLen := 0, 0
	for i, entry := range h.entries {
		if entry.Type() != EntryFree {
			runLen = 0
			continue
		}

		if runLen == 0 {
			runStart = i
		}

		if runLen++; runLen == count {
			return runStart
		}
	}

	return -1
}

// Entry returns the map entry for block i.
func (h *Heap) Entry(i int) Entry { return h.entries[i] }

// Blocks returns the number of blocks managed by the heap.
func (h *Heap) Blocks() int { return len(h.entries) }

// FreeBlocks returns the number of blocks that are currently free.
func (h *Heap) FreeBlocks() int {
	free := 0
	for _, entry := range h.entries {
		if entry.Type() == EntryFree {
			free++
		}
	}
	return free
}

// Base returns the first address managed by the heap.
func (h *Heap) Base() uintptr { return h.base }

// End returns the first address past the heap range.
func (h *Heap) End() uintptr { return h.end }

// BlockSize returns the allocation granule in bytes.
func (h *Heap) BlockSize() uintptr { return h.blockSize }

// RAM returns the physical memory backing the heap.
func (h *Heap) RAM() *mem.RAM { return h.ram }
