// Package kmain contains the boot sequence of the kernel and the entry
// points used to deliver interrupts to it.
package kmain

import (
	"github.com/Masterminds/semver/v3"
	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/cpu"
	"github.com/ceyert/kuzne/kernel/fs"
	"github.com/ceyert/kuzne/kernel/gate"
	"github.com/ceyert/kuzne/kernel/kfmt"
	"github.com/ceyert/kuzne/kernel/mem"
	"github.com/ceyert/kuzne/kernel/mem/heap"
	"github.com/ceyert/kuzne/kernel/mem/vmm"
	"github.com/ceyert/kuzne/kernel/proc"
	"github.com/ceyert/kuzne/kernel/syscall"
)

// Version is the kernel release.
var Version = semver.MustParse("0.4.0")

var (
	errNoTask      = &kernel.Error{Module: "kmain", Message: "no task to interrupt", Code: kernel.CodeInvalidArgument}
	errInitFailed  = &kernel.Error{Module: "kmain", Message: "unable to load the init program", Code: kernel.CodeIO}
	errAlreadyBoot = &kernel.Error{Module: "kmain", Message: "kernel already booted", Code: kernel.CodeInvalidArgument}
	errNotFault    = &kernel.Error{Module: "kmain", Message: "vector is not a CPU exception", Code: kernel.CodeInvalidArgument}
)

// Kernel holds the state built by the boot sequence.
type Kernel struct {
	Config kernel.Config

	RAM        *mem.RAM
	Heap       *heap.Heap
	KernelDir  *vmm.PageDirectoryTable
	Dispatcher *gate.Dispatcher
	Procs      *proc.Manager

	fsys fs.FileSystem
	term syscall.Terminal
	keys []byte
}

// New returns a kernel that loads programs from fsys and writes program
// output to term. Nothing is allocated until Boot is called.
func New(cfg kernel.Config, fsys fs.FileSystem, term syscall.Terminal) *Kernel {
	return &Kernel{Config: cfg, fsys: fsys, term: term}
}

// Boot brings the kernel up and hands the CPU to the init program:
//
//   - physical memory and the kernel heap are set up
//   - the kernel page directory is created and activated
//   - exception, timer and keyboard handlers and the syscall table are
//     installed
//   - the init program is loaded and started in user mode
//
// A failure to start the init program is fatal.
func (k *Kernel) Boot() *kernel.Error {
	if k.RAM != nil {
		return errAlreadyBoot
	}

	if err := k.Config.Validate(); err != nil {
		return err
	}

	kfmt.Printf("kuzne v%s\n", Version.String())

	var err *kernel.Error
	if err = k.setupMemory(); err != nil {
		return err
	}

	k.Procs = proc.NewManager(&k.Config, k.fsys, k.Heap, k.KernelDir)
	k.Dispatcher = gate.NewDispatcher(k.Procs, k.Config.MaxSyscalls)
	if err = k.installHandlers(); err != nil {
		return err
	}
	syscall.Register(k.Dispatcher, k.Procs, k.term, k.Config.BootDrive)

	if _, err = k.Procs.LoadAndSwitch(k.Config.InitProgram); err != nil {
		kfmt.Printf("[kmain] %s: %s\n", k.Config.InitProgram, err.Message)
		kfmt.Panic(errInitFailed)
		return errInitFailed
	}

	cpu.EnableInterrupts()
	k.Procs.Scheduler().RunFirst()
	return nil
}

func (k *Kernel) setupMemory() *kernel.Error {
	var err *kernel.Error
	if k.RAM, err = mem.NewRAM(k.Config.HeapBase, mem.Size(k.Config.HeapSize)); err != nil {
		return err
	}

	blocks := int(k.Config.HeapSize / k.Config.HeapBlockSize)
	k.Heap, err = heap.Create(k.Config.HeapBase, k.Config.HeapBase+k.Config.HeapSize, k.Config.HeapBlockSize, heap.NewMap(blocks), k.RAM)
	if err != nil {
		k.shutdownRAM()
		return err
	}
	kfmt.Printf("[kmain] heap: 0x%x - 0x%x (%d blocks)\n", k.Heap.Base(), k.Heap.End(), k.Heap.Blocks())

	k.KernelDir, err = vmm.New(k.Heap, vmm.FlagPresent|vmm.FlagRW|vmm.FlagUserAccessible)
	if err != nil {
		k.shutdownRAM()
		return err
	}
	k.KernelDir.Activate()
	kfmt.Printf("[kmain] kernel page directory at 0x%x\n", k.KernelDir.Root())

	return nil
}

func (k *Kernel) installHandlers() *kernel.Error {
	for vector := gate.DivideByZero; vector <= gate.LastException; vector++ {
		vector := vector
		if err := k.Dispatcher.RegisterInterrupt(vector, func(frame *gate.Frame) { k.handleException(vector, frame) }); err != nil {
			return err
		}
	}

	if err := k.Dispatcher.RegisterInterrupt(gate.Timer, k.handleTimer); err != nil {
		return err
	}

	return k.Dispatcher.RegisterInterrupt(gate.Keyboard, k.handleKeyboard)
}

// handleException terminates the process whose task raised the exception
// and runs the next task.
func (k *Kernel) handleException(vector gate.InterruptNumber, frame *gate.Frame) {
	task := k.Procs.Scheduler().Current()
	if task == nil {
		return
	}

	kfmt.Printf("[kmain] exception 0x%x in %s, terminating process %d\n", uint16(vector), task.Process.Filename, task.Process.ID)
	if w := kfmt.OutputSink(); w != nil {
		frame.DumpTo(w)
	}

	if err := k.Procs.Terminate(task.Process); err != nil {
		return
	}

	k.Procs.Scheduler().RunNext()
}

// handleTimer preempts the current task. RunNext does not come back on
// hardware, so the tick is acknowledged up front.
func (k *Kernel) handleTimer(*gate.Frame) {
	k.Dispatcher.Acknowledge()
	k.Procs.Scheduler().RunNext()
}

func (k *Kernel) handleKeyboard(*gate.Frame) {
	if len(k.keys) == 0 {
		return
	}

	c := k.keys[0]
	k.keys = k.keys[1:]

	if c == '\b' {
		k.Procs.KeyboardBackspace()
		return
	}
	k.Procs.KeyboardPush(c)
}

// interrupt delivers vector as if it arrived while the current task was
// running.
func (k *Kernel) interrupt(vector gate.InterruptNumber) *kernel.Error {
	if k.Procs == nil {
		return errNoTask
	}

	task := k.Procs.Scheduler().Current()
	if task == nil {
		return errNoTask
	}

	k.Dispatcher.HandleInterrupt(vector, gate.NewFrame(task.Registers))
	return nil
}

// Tick delivers a timer interrupt.
func (k *Kernel) Tick() *kernel.Error {
	return k.interrupt(gate.Timer)
}

// Fault delivers the CPU exception vector.
func (k *Kernel) Fault(vector gate.InterruptNumber) *kernel.Error {
	if !vector.IsException() {
		return errNotFault
	}

	return k.interrupt(vector)
}

// PressKey delivers a keyboard interrupt for the key code c.
func (k *Kernel) PressKey(c byte) *kernel.Error {
	k.keys = append(k.keys, c)
	return k.interrupt(gate.Keyboard)
}

// Syscall traps into the kernel with frame.
func (k *Kernel) Syscall(frame *gate.Frame) uint32 {
	return k.Dispatcher.HandleSyscall(frame)
}

// Shutdown releases the memory backing the kernel.
func (k *Kernel) Shutdown() {
	cpu.DisableInterrupts()
	k.shutdownRAM()
}

func (k *Kernel) shutdownRAM() {
	if k.RAM != nil {
		_ = k.RAM.Close()
		k.RAM = nil
	}
}
