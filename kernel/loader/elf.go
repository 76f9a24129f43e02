package loader

import (
	"bytes"
	"debug/elf"
	"encoding/binary"

	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/fs"
	"github.com/ceyert/kuzne/kernel/mem"
	"github.com/ceyert/kuzne/kernel/mem/heap"
	"github.com/ceyert/kuzne/kernel/mem/vmm"
)

const (
	elfHeaderSize  = 52
	elfPheaderSize = 32
)

// ElfFile is an ELF executable loaded into heap memory. Besides the parsed
// headers it tracks the lowest virtual and physical address and the highest
// end address over all loadable segments.
type ElfFile struct {
	Header elf.Header32
	Progs  []elf.Prog32
	image  uintptr
	size   uintptr
	heap   *heap.Heap

	virtualBase  uintptr
	virtualEnd   uintptr
	physicalBase uintptr
	physicalEnd  uintptr
}

// Parse validates an ELF image and returns its file header and program
// headers. It returns ErrInvalidFormat unless the image carries the ELF
// signature, is a 32-bit (or unspecified class) little-endian (or
// unspecified encoding) file and has a program header table.
func Parse(image []byte) (*elf.Header32, []elf.Prog32, *kernel.Error) {
	if len(image) < elfHeaderSize || !bytes.Equal(image[:elf.EI_CLASS], []byte(elf.ELFMAG)) {
		return nil, nil, ErrInvalidFormat
	}

	if class := elf.Class(image[elf.EI_CLASS]); class != elf.ELFCLASSNONE && class != elf.ELFCLASS32 {
		return nil, nil, ErrInvalidFormat
	}

	if data := elf.Data(image[elf.EI_DATA]); data != elf.ELFDATANONE && data != elf.ELFDATA2LSB {
		return nil, nil, ErrInvalidFormat
	}

	var hdr elf.Header32
	if err := binary.Read(bytes.NewReader(image), binary.LittleEndian, &hdr); err != nil || hdr.Phoff == 0 {
		return nil, nil, ErrInvalidFormat
	}

	if uint64(hdr.Phoff)+uint64(hdr.Phnum)*elfPheaderSize > uint64(len(image)) {
		return nil, nil, ErrInvalidFormat
	}

	progs := make([]elf.Prog32, hdr.Phnum)
	if err := binary.Read(bytes.NewReader(image[hdr.Phoff:]), binary.LittleEndian, progs); err != nil {
		return nil, nil, ErrInvalidFormat
	}

	return &hdr, progs, nil
}

// LoadELF reads filename into heap memory and parses it as an ELF
// executable. The image buffer is large enough to back the full memory size
// of every loadable segment.
func LoadELF(fsys fs.FileSystem, h *heap.Heap, filename string) (*ElfFile, *kernel.Error) {
	data, err := readFile(fsys, filename)
	if err != nil {
		return nil, err
	}

	hdr, progs, err := Parse(data)
	if err != nil {
		return nil, err
	}

	bufSize := uintptr(len(data))
	for _, prog := range progs {
		if elf.ProgType(prog.Type) != elf.PT_LOAD {
			continue
		}

		if segEnd := uintptr(prog.Off) + uintptr(prog.Memsz); segEnd > bufSize {
			bufSize = segEnd
		}
	}

	image, err := copyToHeap(h, data, bufSize)
	if err != nil {
		return nil, err
	}

	f := &ElfFile{
		Header: *hdr,
		Progs:  progs,
		image:  image,
		size:   bufSize,
		heap:   h,
	}
	f.processLoadSegments()

	return f, nil
}

// processLoadSegments accumulates the base and end addresses over all
// PT_LOAD segments.
func (f *ElfFile) processLoadSegments() {
	first := true
	for _, prog := range f.Progs {
		if elf.ProgType(prog.Type) != elf.PT_LOAD {
			continue
		}

		if first || uintptr(prog.Vaddr) < f.virtualBase {
			f.virtualBase = uintptr(prog.Vaddr)
			f.physicalBase = f.image + uintptr(prog.Off)
		}

		if end := uintptr(prog.Vaddr) + uintptr(prog.Memsz); first || end > f.virtualEnd {
			f.virtualEnd = end
			f.physicalEnd = f.image + uintptr(prog.Off) + uintptr(prog.Memsz)
		}

		first = false
	}
}

// Type implements Image.
func (f *ElfFile) Type() FileType { return FileTypeELF }

// Entry implements Image.
func (f *ElfFile) Entry() uintptr { return uintptr(f.Header.Entry) }

// Memory implements Image.
func (f *ElfFile) Memory() uintptr { return f.image }

// Size implements Image.
func (f *ElfFile) Size() uintptr { return f.size }

// VirtualBase returns the lowest virtual address of a loadable segment.
func (f *ElfFile) VirtualBase() uintptr { return f.virtualBase }

// VirtualEnd returns the highest virtual end address of a loadable segment.
func (f *ElfFile) VirtualEnd() uintptr { return f.virtualEnd }

// PhysicalBase returns the physical address backing VirtualBase.
func (f *ElfFile) PhysicalBase() uintptr { return f.physicalBase }

// PhysicalEnd returns the physical address backing VirtualEnd.
func (f *ElfFile) PhysicalEnd() uintptr { return f.physicalEnd }

// Mappings implements Image. Every loadable segment is mapped user
// accessible; only segments with the PF_W flag are writable.
func (f *ElfFile) Mappings() []Mapping {
	var mappings []Mapping
	for _, prog := range f.Progs {
		if elf.ProgType(prog.Type) != elf.PT_LOAD {
			continue
		}

		flags := vmm.FlagPresent | vmm.FlagUserAccessible
		if elf.ProgFlag(prog.Flags)&elf.PF_W != 0 {
			flags |= vmm.FlagRW
		}

		phys := f.image + uintptr(prog.Off)
		mappings = append(mappings, Mapping{
			Virt:      mem.AlignDown(uintptr(prog.Vaddr)),
			PhysStart: mem.AlignDown(phys),
			PhysEnd:   mem.AlignUp(phys + uintptr(prog.Memsz)),
			Flags:     flags,
		})
	}

	return mappings
}

// Close implements Image.
func (f *ElfFile) Close() {
	f.heap.Free(f.image)
}
