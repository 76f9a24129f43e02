package mem

import (
	"encoding/binary"

	"github.com/ceyert/kuzne/kernel"
)

var (
	errRAMMapFailed  = &kernel.Error{Module: "mem", Message: "unable to reserve physical memory", Code: kernel.CodeOutOfMemory}
	errRAMOutOfRange = &kernel.Error{Module: "mem", Message: "physical address range outside of RAM", Code: kernel.CodeInvalidArgument}
)

// RAM is a contiguous region of physical memory starting at a fixed physical
// address. Every access is bounds checked; 32-bit words are stored little
// endian.
type RAM struct {
	base    uintptr
	data    []byte
	release func() error
}

// NewRAM reserves size bytes of physical memory starting at base.
func NewRAM(base uintptr, size Size) (*RAM, *kernel.Error) {
	data, release, err := reserveFn(int(size))
	if err != nil {
		return nil, errRAMMapFailed
	}

	return &RAM{base: base, data: data, release: release}, nil
}

// Base returns the first physical address backed by this region.
func (r *RAM) Base() uintptr { return r.base }

// End returns the first physical address past the end of this region.
func (r *RAM) End() uintptr { return r.base + uintptr(len(r.data)) }

// Size returns the region size.
func (r *RAM) Size() Size { return Size(len(r.data)) }

// Slice returns a view of size bytes starting at the physical address addr.
// Writes to the returned slice update the region.
func (r *RAM) Slice(addr uintptr, size Size) ([]byte, *kernel.Error) {
	if addr < r.base || addr > r.End() || uint64(size) > uint64(r.End()-addr) {
		return nil, errRAMOutOfRange
	}

	off := addr - r.base
	return r.data[off : off+uintptr(size) : off+uintptr(size)], nil
}

// ReadUint32 reads the 32-bit word at addr.
func (r *RAM) ReadUint32(addr uintptr) (uint32, *kernel.Error) {
	b, err := r.Slice(addr, 4)
	if err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(b), nil
}

// WriteUint32 stores v at addr.
func (r *RAM) WriteUint32(addr uintptr, v uint32) *kernel.Error {
	b, err := r.Slice(addr, 4)
	if err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(b, v)
	return nil
}

// Memset sets size bytes at the given address to the supplied value. Instead
// of using a for loop, it uses log2(size) copy calls.
func (r *RAM) Memset(addr uintptr, value byte, size Size) *kernel.Error {
	if size == 0 {
		return nil
	}

	target, err := r.Slice(addr, size)
	if err != nil {
		return err
	}

	// Set first element and make log2(size) optimized copies
	target[0] = value
	for index := Size(1); index < size; index *= 2 {
		copy(target[index:], target[:index])
	}

	return nil
}

// Memcopy copies size bytes from src to dst. Overlapping ranges are handled
// like the builtin copy.
func (r *RAM) Memcopy(src, dst uintptr, size Size) *kernel.Error {
	if size == 0 {
		return nil
	}

	srcSlice, err := r.Slice(src, size)
	if err != nil {
		return err
	}

	dstSlice, err := r.Slice(dst, size)
	if err != nil {
		return err
	}

	copy(dstSlice, srcSlice)
	return nil
}

// Close releases the memory backing the region. The region must not be used
// afterwards.
func (r *RAM) Close() error {
	if r.release == nil {
		return nil
	}

	err := r.release()
	r.release, r.data = nil, nil
	return err
}
