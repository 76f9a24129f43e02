// Package loader reads executable images into kernel heap memory and
// computes how they must be mapped into a process address space. Images are
// either 32-bit little-endian ELF executables or flat binaries; an image that
// fails ELF validation is loaded as a flat binary instead.
package loader

import (
	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/fs"
	"github.com/ceyert/kuzne/kernel/mem"
	"github.com/ceyert/kuzne/kernel/mem/heap"
	"github.com/ceyert/kuzne/kernel/mem/vmm"
)

// FileType identifies the format of a loaded image.
type FileType uint8

// The supported image formats.
const (
	FileTypeELF FileType = iota
	FileTypeBinary
)

// String implements fmt.Stringer.
func (t FileType) String() string {
	switch t {
	case FileTypeELF:
		return "elf"
	case FileTypeBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Mapping describes a physical range that must be mapped at Virt.
type Mapping struct {
	Virt      uintptr
	PhysStart uintptr
	PhysEnd   uintptr
	Flags     vmm.PageTableEntryFlag
}

// Image is a program image held in kernel heap memory.
type Image interface {
	// Type returns the image format.
	Type() FileType

	// Entry returns the virtual address where execution starts.
	Entry() uintptr

	// Memory returns the physical address of the image buffer.
	Memory() uintptr

	// Size returns the size of the image buffer in bytes.
	Size() uintptr

	// Mappings returns the ranges that must be mapped to run the image.
	Mappings() []Mapping

	// Close releases the image buffer.
	Close()
}

var (
	// ErrInvalidFormat is returned when an image is not a supported ELF
	// executable.
	ErrInvalidFormat = &kernel.Error{Module: "loader", Message: "image is not a supported ELF executable", Code: kernel.CodeInvalidFormat}

	errStat = &kernel.Error{Module: "loader", Message: "unable to stat image", Code: kernel.CodeIO}
	errRead = &kernel.Error{Module: "loader", Message: "short read while loading image", Code: kernel.CodeIO}
)

// Load loads filename as an ELF executable and falls back to a flat binary
// mapped at binaryVirt when the file is not a valid ELF image.
func Load(fsys fs.FileSystem, h *heap.Heap, filename string, binaryVirt uintptr) (Image, *kernel.Error) {
	elfFile, err := LoadELF(fsys, h, filename)
	if err == nil {
		return elfFile, nil
	}

	if err != ErrInvalidFormat {
		return nil, err
	}

	bin, err := LoadBinary(fsys, h, filename, binaryVirt)
	if err != nil {
		return nil, err
	}

	return bin, nil
}

// readFile returns the full contents of filename.
func readFile(fsys fs.FileSystem, filename string) ([]byte, *kernel.Error) {
	f, err := fsys.Open(filename, fs.ModeRead)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, errStat
	}

	data := make([]byte, stat.Size)
	n, err := fs.ReadAll(f, data)
	if err != nil {
		return nil, err
	}

	if n != len(data) {
		return nil, errRead
	}

	return data, nil
}

// copyToHeap stores data in a zeroed heap buffer of at least bufSize bytes.
func copyToHeap(h *heap.Heap, data []byte, bufSize uintptr) (uintptr, *kernel.Error) {
	ptr, err := h.ZAlloc(mem.Size(bufSize))
	if err != nil {
		return 0, err
	}

	buf, err := h.RAM().Slice(ptr, mem.Size(len(data)))
	if err != nil {
		h.Free(ptr)
		return 0, err
	}

	copy(buf, data)
	return ptr, nil
}
