package kernel

// Config collects the tunables that shape the memory layout and the fixed
// capacity tables of the kernel.
type Config struct {
	// HeapBase is the physical address where the kernel heap starts.
	HeapBase uintptr

	// HeapSize is the number of bytes managed by the kernel heap.
	HeapSize uintptr

	// HeapBlockSize is the allocation granule of the kernel heap.
	HeapBlockSize uintptr

	// ProgramVirtualAddress is where flat binaries are mapped and where
	// execution starts when an image carries no entry point.
	ProgramVirtualAddress uintptr

	// StackSize is the size of each user process stack. The stack occupies
	// [StackVirtualTop-StackSize, StackVirtualTop) in every address space.
	StackSize       uintptr
	StackVirtualTop uintptr

	// UserCodeSelector and UserDataSelector are the ring 3 segment
	// selectors loaded into CS and SS.
	UserCodeSelector uint32
	UserDataSelector uint32

	MaxProcesses          int
	MaxProcessAllocations int
	MaxSyscalls           int
	KeyboardBufferSize    int

	// BootDrive is prefixed to programs started by the process-load
	// syscalls.
	BootDrive string

	// InitProgram is the first process loaded at boot.
	InitProgram string
}

// physicalLimit is the end of the 32-bit physical address space.
const physicalLimit uint64 = 1 << 32

var (
	errMisalignedHeap    = &Error{Module: "config", Message: "heap base and size must be block aligned", Code: CodeInvalidArgument}
	errZeroCapacity      = &Error{Module: "config", Message: "table capacities must be non-zero", Code: CodeInvalidArgument}
	errStackOverlapsCode = &Error{Module: "config", Message: "user stack overlaps the program load address", Code: CodeInvalidArgument}
	errHeapOutOfRange    = &Error{Module: "config", Message: "heap must end below 4 GiB", Code: CodeInvalidArgument}
)

// DefaultConfig returns the stock kernel layout: a 100 MiB heap at 16 MiB
// carved into 4 KiB blocks, programs at 4 MiB and a 16 KiB stack right below.
func DefaultConfig() Config {
	return Config{
		HeapBase:              0x01000000,
		HeapSize:              100 * 1024 * 1024,
		HeapBlockSize:         4096,
		ProgramVirtualAddress: 0x400000,
		StackSize:             16 * 1024,
		StackVirtualTop:       0x3FF000,
		UserCodeSelector:      0x1b,
		UserDataSelector:      0x23,
		MaxProcesses:          12,
		MaxProcessAllocations: 1024,
		MaxSyscalls:           1024,
		KeyboardBufferSize:    1024,
		BootDrive:             "0:/",
		InitProgram:           "0:/shell.elf",
	}
}

// Validate checks that the configuration describes a usable layout.
func (c *Config) Validate() *Error {
	if c.HeapBlockSize == 0 || c.HeapBase%c.HeapBlockSize != 0 || c.HeapSize%c.HeapBlockSize != 0 || c.HeapSize == 0 {
		return errMisalignedHeap
	}

	if uint64(c.HeapBase) > physicalLimit || uint64(c.HeapSize) > physicalLimit-uint64(c.HeapBase) {
		return errHeapOutOfRange
	}

	if c.MaxProcesses <= 0 || c.MaxProcessAllocations <= 0 || c.MaxSyscalls <= 0 || c.KeyboardBufferSize <= 0 || c.StackSize == 0 {
		return errZeroCapacity
	}

	if c.StackVirtualTop > c.ProgramVirtualAddress || c.StackSize > c.StackVirtualTop {
		return errStackOverlapsCode
	}

	return nil
}

// StackVirtualBottom returns the lowest virtual address of the user stack.
func (c *Config) StackVirtualBottom() uintptr {
	return c.StackVirtualTop - c.StackSize
}
