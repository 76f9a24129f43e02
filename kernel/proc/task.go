package proc

import (
	"encoding/binary"

	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/cpu"
	"github.com/ceyert/kuzne/kernel/gate"
	"github.com/ceyert/kuzne/kernel/mem"
	"github.com/ceyert/kuzne/kernel/mem/vmm"
)

// noTask marks an empty ready list link.
const noTask = -1

var (
	errStringTooLong  = &kernel.Error{Module: "proc", Message: "string copies are limited to less than a page", Code: kernel.CodeInvalidArgument}
	errRestoreMapping = &kernel.Error{Module: "proc", Message: "unable to restore temporary mapping", Code: kernel.CodeIO}
)

// Task is the schedulable part of a process: the register file that is
// restored when the process resumes and the page directory describing its
// address space. Tasks are linked into the scheduler's ready list by the
// process slot they belong to.
type Task struct {
	Directory *vmm.PageDirectoryTable
	Registers cpu.Registers
	Process   *Process

	slot       int
	prev, next int
	sched      *Scheduler
}

// SaveState copies the register snapshot in frame into the task.
func (t *Task) SaveState(frame *gate.Frame) {
	t.Registers = frame.Registers()
}

// Page activates the task's page directory.
func (t *Task) Page() {
	t.Directory.Activate()
}

// VirtualToPhysical returns the physical address that virt is mapped to in
// the task's address space.
func (t *Task) VirtualToPhysical(virt uintptr) (uintptr, *kernel.Error) {
	return t.Directory.PhysicalAddress(virt)
}

// StackItem returns the 32-bit word at index on the task's user stack. The
// task's address space is active while the stack is read.
func (t *Task) StackItem(index int) (uint32, *kernel.Error) {
	t.Page()
	defer t.sched.KernelPage()

	return t.ReadUint32(uintptr(t.Registers.ESP) + uintptr(index)*4)
}

// ReadUint32 reads the little-endian word at virt.
func (t *Task) ReadUint32(virt uintptr) (uint32, *kernel.Error) {
	var word [4]byte
	if err := t.ReadUser(virt, word[:]); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(word[:]), nil
}

// WriteUint32 stores v at virt.
func (t *Task) WriteUint32(virt uintptr, v uint32) *kernel.Error {
	var word [4]byte
	binary.LittleEndian.PutUint32(word[:], v)
	return t.WriteUser(virt, word[:])
}

// ReadUser fills p with the bytes starting at virt in the task's address
// space.
func (t *Task) ReadUser(virt uintptr, p []byte) *kernel.Error {
	return t.visit(virt, len(p), func(phys []byte, off int) {
		copy(p[off:], phys)
	})
}

// WriteUser copies p to virt in the task's address space.
func (t *Task) WriteUser(virt uintptr, p []byte) *kernel.Error {
	return t.visit(virt, len(p), func(phys []byte, off int) {
		copy(phys, p[off:])
	})
}

// visit translates [virt, virt+size) page by page and invokes fn with the
// physical memory backing each piece and its offset within the range.
func (t *Task) visit(virt uintptr, size int, fn func(phys []byte, off int)) *kernel.Error {
	ram := t.sched.heap.RAM()
	for off := 0; off < size; {
		physAddr, err := t.Directory.Translate(virt)
		if err != nil {
			return err
		}

		n := int(mem.PageSize - vmm.PageOffset(virt))
		if n > size-off {
			n = size - off
		}

		phys, err := ram.Slice(physAddr, mem.Size(n))
		if err != nil {
			return err
		}

		fn(phys, off)
		off += n
		virt += uintptr(n)
	}

	return nil
}

// CopyString copies a NUL-terminated string of at most max-1 bytes out of
// the task's address space. The copy goes through a kernel buffer that is
// temporarily mapped into the task's page directory while that directory is
// active.
func (t *Task) CopyString(virt uintptr, max int) (string, *kernel.Error) {
	if max <= 0 || max >= mem.PageSize {
		return "", errStringTooLong
	}

	h := t.sched.heap
	tmp, err := h.ZAlloc(mem.Size(max))
	if err != nil {
		return "", err
	}
	defer h.Free(tmp)

	oldEntry, err := t.Directory.Get(tmp)
	if err != nil {
		return "", err
	}

	if err = t.Directory.Map(tmp, tmp, vmm.FlagPresent|vmm.FlagRW|vmm.FlagUserAccessible); err != nil {
		return "", err
	}

	t.Page()
	copyErr := t.copyUserString(virt, tmp, max-1)
	t.sched.KernelPage()

	if err = t.Directory.Set(tmp, oldEntry); err != nil {
		return "", errRestoreMapping
	}

	if copyErr != nil {
		return "", copyErr
	}

	buf, err := h.RAM().Slice(tmp, mem.Size(max))
	if err != nil {
		return "", err
	}

	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}

	return string(buf), nil
}

// copyUserString copies bytes from src to dst, both interpreted in the
// task's address space, until a NUL byte has been copied or limit bytes
// were transferred.
func (t *Task) copyUserString(src, dst uintptr, limit int) *kernel.Error {
	var chunk [mem.PageSize]byte
	for copied := 0; copied < limit; {
		n := int(mem.PageSize - vmm.PageOffset(src))
		if n > limit-copied {
			n = limit - copied
		}

		if err := t.ReadUser(src, chunk[:n]); err != nil {
			return err
		}

		for i := 0; i < n; i++ {
			if chunk[i] == 0 {
				n = i + 1
				limit = 0
				break
			}
		}

		if err := t.WriteUser(dst, chunk[:n]); err != nil {
			return err
		}

		copied += n
		src += uintptr(n)
		dst += uintptr(n)
	}

	return nil
}
