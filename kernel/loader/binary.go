package loader

import (
	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/fs"
	"github.com/ceyert/kuzne/kernel/mem"
	"github.com/ceyert/kuzne/kernel/mem/heap"
	"github.com/ceyert/kuzne/kernel/mem/vmm"
)

// Binary is a flat binary image. It is mapped in one piece at a fixed
// virtual address which is also its entry point.
type Binary struct {
	image uintptr
	size  uintptr
	virt  uintptr
	heap  *heap.Heap
}

// LoadBinary reads filename into heap memory as a flat binary that will be
// mapped at virt.
func LoadBinary(fsys fs.FileSystem, h *heap.Heap, filename string, virt uintptr) (*Binary, *kernel.Error) {
	data, err := readFile(fsys, filename)
	if err != nil {
		return nil, err
	}

	image, err := copyToHeap(h, data, uintptr(len(data)))
	if err != nil {
		return nil, err
	}

	return &Binary{image: image, size: uintptr(len(data)), virt: virt, heap: h}, nil
}

// Type implements Image.
func (b *Binary) Type() FileType { return FileTypeBinary }

// Entry implements Image.
func (b *Binary) Entry() uintptr { return b.virt }

// Memory implements Image.
func (b *Binary) Memory() uintptr { return b.image }

// Size implements Image.
func (b *Binary) Size() uintptr { return b.size }

// Mappings implements Image. Flat binaries are mapped writable.
func (b *Binary) Mappings() []Mapping {
	return []Mapping{{
		Virt:      b.virt,
		PhysStart: b.image,
		PhysEnd:   mem.AlignUp(b.image + b.size),
		Flags:     vmm.FlagPresent | vmm.FlagRW | vmm.FlagUserAccessible,
	}}
}

// Close implements Image.
func (b *Binary) Close() {
	b.heap.Free(b.image)
}
