// Package proc implements user processes: loading program images into
// private address spaces, per-process heap allocations and the round-robin
// scheduler that switches between them.
package proc

import (
	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/fs"
	"github.com/ceyert/kuzne/kernel/gate"
	"github.com/ceyert/kuzne/kernel/kfmt"
	"github.com/ceyert/kuzne/kernel/loader"
	"github.com/ceyert/kuzne/kernel/mem"
	"github.com/ceyert/kuzne/kernel/mem/heap"
	"github.com/ceyert/kuzne/kernel/mem/vmm"
)

var (
	errSlotOutOfRange   = &kernel.Error{Module: "proc", Message: "process slot out of range", Code: kernel.CodeInvalidArgument}
	errSlotTaken        = &kernel.Error{Module: "proc", Message: "process slot is taken", Code: kernel.CodeProcessSlotTaken}
	errNoFreeSlot       = &kernel.Error{Module: "proc", Message: "no free process slot", Code: kernel.CodeProcessSlotTaken}
	errNoAllocationSlot = &kernel.Error{Module: "proc", Message: "process allocation table is full", Code: kernel.CodeOutOfMemory}
	errNoLiveProcess    = &kernel.Error{Module: "proc", Message: "no process left to run", Code: kernel.CodeInvalidArgument}
)

// Allocation is a heap block owned by a process.
type Allocation struct {
	Ptr  uintptr
	Size mem.Size
}

// Process is a loaded program together with everything it owns.
type Process struct {
	ID       int
	Filename string
	Task     *Task

	// Allocations has a fixed number of slots; a zero Ptr marks a free
	// slot.
	Allocations []Allocation

	FileType loader.FileType
	Elf      *loader.ElfFile
	Binary   *loader.Binary

	// Stack is the physical address of the user stack.
	Stack uintptr

	Keyboard *KeyboardBuffer
	Args     Arguments
}

// Image returns the program image of the process.
func (p *Process) Image() loader.Image {
	switch {
	case p.Elf != nil:
		return p.Elf
	case p.Binary != nil:
		return p.Binary
	default:
		return nil
	}
}

func (p *Process) setImage(img loader.Image) {
	p.FileType = img.Type()
	switch t := img.(type) {
	case *loader.ElfFile:
		p.Elf = t
	case *loader.Binary:
		p.Binary = t
	}
}

// Manager owns the process table and the scheduler.
type Manager struct {
	cfg   *kernel.Config
	fsys  fs.FileSystem
	heap  *heap.Heap
	sched *Scheduler

	procs   []*Process
	current *Process
}

// NewManager returns a manager with an empty process table. Program images
// are read from fsys and every process resource is allocated from h.
func NewManager(cfg *kernel.Config, fsys fs.FileSystem, h *heap.Heap, kernelDir *vmm.PageDirectoryTable) *Manager {
	return &Manager{
		cfg:   cfg,
		fsys:  fsys,
		heap:  h,
		sched: NewScheduler(cfg, h, kernelDir),
		procs: make([]*Process, cfg.MaxProcesses),
	}
}

// Scheduler returns the scheduler driving the managed processes.
func (m *Manager) Scheduler() *Scheduler {
	return m.sched
}

// Get returns the process in slot id or nil.
func (m *Manager) Get(id int) *Process {
	if id < 0 || id >= len(m.procs) {
		return nil
	}
	return m.procs[id]
}

// Current returns the current process or nil.
func (m *Manager) Current() *Process {
	return m.current
}

// SetCurrent makes p the current process.
func (m *Manager) SetCurrent(p *Process) {
	m.current = p
}

// Live returns the loaded processes ordered by slot.
func (m *Manager) Live() []*Process {
	var live []*Process
	for _, p := range m.procs {
		if p != nil {
			live = append(live, p)
		}
	}
	return live
}

// Load loads filename into the first free process slot.
func (m *Manager) Load(filename string) (*Process, *kernel.Error) {
	for slot, p := range m.procs {
		if p == nil {
			return m.LoadForSlot(filename, slot)
		}
	}

	return nil, errNoFreeSlot
}

// LoadAndSwitch loads filename and makes the new process current.
func (m *Manager) LoadAndSwitch(filename string) (*Process, *kernel.Error) {
	p, err := m.Load(filename)
	if err != nil {
		return nil, err
	}

	m.SetCurrent(p)
	return p, nil
}

// LoadForSlot loads filename into the given process slot. Everything
// acquired along the way is released again if a later step fails.
func (m *Manager) LoadForSlot(filename string, slot int) (*Process, *kernel.Error) {
	if slot < 0 || slot >= len(m.procs) {
		return nil, errSlotOutOfRange
	}

	if m.procs[slot] != nil {
		return nil, errSlotTaken
	}

	img, err := loader.Load(m.fsys, m.heap, filename, m.cfg.ProgramVirtualAddress)
	if err != nil {
		return nil, err
	}

	stack, err := m.heap.ZAlloc(mem.Size(m.cfg.StackSize))
	if err != nil {
		img.Close()
		return nil, err
	}

	p := &Process{
		ID:          slot,
		Filename:    filename,
		Allocations: make([]Allocation, m.cfg.MaxProcessAllocations),
		Stack:       stack,
		Keyboard:    NewKeyboardBuffer(m.cfg.KeyboardBufferSize),
	}
	p.setImage(img)

	if p.Task, err = m.sched.NewTask(p); err != nil {
		m.heap.Free(stack)
		img.Close()
		return nil, err
	}

	if err = m.mapMemory(p); err != nil {
		m.sched.FreeTask(p.Task)
		m.heap.Free(stack)
		img.Close()
		return nil, err
	}

	m.procs[slot] = p
	kfmt.Printf("[proc] loaded %s (%s) into slot %d, entry 0x%x\n", filename, p.FileType.String(), slot, p.Task.Registers.EIP)
	return p, nil
}

// mapMemory maps the program image and the user stack into the address
// space of p.
func (m *Manager) mapMemory(p *Process) *kernel.Error {
	for _, mapping := range p.Image().Mappings() {
		if err := p.Task.Directory.MapTo(mapping.Virt, mapping.PhysStart, mapping.PhysEnd, mapping.Flags); err != nil {
			return err
		}
	}

	return p.Task.Directory.MapTo(
		m.cfg.StackVirtualBottom(),
		p.Stack,
		mem.AlignUp(p.Stack+m.cfg.StackSize),
		vmm.FlagPresent|vmm.FlagUserAccessible|vmm.FlagRW,
	)
}

// Malloc allocates size zeroed bytes for p and makes them accessible to it
// at the same virtual address.
func (m *Manager) Malloc(p *Process, size mem.Size) (uintptr, *kernel.Error) {
	ptr, err := m.heap.ZAlloc(size)
	if err != nil {
		return 0, err
	}

	index := -1
	for i := range p.Allocations {
		if p.Allocations[i].Ptr == 0 {
			index = i
			break
		}
	}

	if index == -1 {
		m.heap.Free(ptr)
		return 0, errNoAllocationSlot
	}

	if err = p.Task.Directory.MapTo(ptr, ptr, mem.AlignUp(ptr+uintptr(size)), vmm.FlagPresent|vmm.FlagRW|vmm.FlagUserAccessible); err != nil {
		m.heap.Free(ptr)
		return 0, err
	}

	p.Allocations[index] = Allocation{Ptr: ptr, Size: size}
	return ptr, nil
}

// Free releases an allocation made with Malloc. Pointers that p does not
// own are ignored.
func (m *Manager) Free(p *Process, ptr uintptr) {
	if ptr == 0 {
		return
	}

	for i, alloc := range p.Allocations {
		if alloc.Ptr != ptr {
			continue
		}

		if err := p.Task.Directory.MapTo(ptr, ptr, mem.AlignUp(ptr+uintptr(alloc.Size)), 0); err != nil {
			return
		}

		p.Allocations[i] = Allocation{}
		m.heap.Free(ptr)
		return
	}
}

// Terminate releases every resource held by p and removes it from the
// process table. If p was current, the first live process takes over; it
// is fatal to terminate the last process. Processes that are no longer
// loaded are ignored.
func (m *Manager) Terminate(p *Process) *kernel.Error {
	if p == nil || m.Get(p.ID) != p {
		return nil
	}

	for _, alloc := range p.Allocations {
		m.Free(p, alloc.Ptr)
	}

	if img := p.Image(); img != nil {
		img.Close()
	}
	m.heap.Free(p.Stack)
	m.sched.FreeTask(p.Task)
	m.procs[p.ID] = nil
	kfmt.Printf("[proc] terminated %s in slot %d\n", p.Filename, p.ID)

	if m.current != p {
		return nil
	}

	m.current = nil
	for _, next := range m.procs {
		if next != nil {
			m.current = next
			return nil
		}
	}

	kfmt.Panic(errNoLiveProcess)
	return errNoLiveProcess
}

// SwitchToKernel implements gate.Context.
func (m *Manager) SwitchToKernel() {
	m.sched.KernelPage()
}

// SwitchToCurrent implements gate.Context.
func (m *Manager) SwitchToCurrent() {
	m.sched.TaskPage()
}

// SaveState implements gate.Context.
func (m *Manager) SaveState(frame *gate.Frame) {
	m.sched.SaveCurrentState(frame)
}

var _ gate.Context = (*Manager)(nil)
