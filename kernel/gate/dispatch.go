package gate

import (
	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/cpu"
	"github.com/ceyert/kuzne/kernel/kfmt"
)

// InterruptHandler services a hardware interrupt or CPU exception.
type InterruptHandler func(*Frame)

// SyscallHandler services a system call and returns the word handed back to
// the caller in EAX.
type SyscallHandler func(*Frame) uint32

// Context gives the dispatcher access to the address spaces and the saved
// state of the task that was interrupted.
type Context interface {
	// SwitchToKernel activates the kernel page directory.
	SwitchToKernel()

	// SwitchToCurrent activates the page directory of the current task.
	SwitchToCurrent()

	// SaveState copies frame into the saved registers of the current
	// task.
	SaveState(frame *Frame)
}

var (
	// ackInterruptFn is used by tests to override calls to
	// cpu.AckInterrupt.
	ackInterruptFn = cpu.AckInterrupt

	errVectorOutOfRange  = &kernel.Error{Module: "gate", Message: "interrupt vector out of range", Code: kernel.CodeInvalidArgument}
	errSyscallOutOfRange = &kernel.Error{Module: "gate", Message: "syscall id out of range", Code: kernel.CodeInvalidArgument}
	errSyscallTaken      = &kernel.Error{Module: "gate", Message: "syscall id already registered", Code: kernel.CodeInvalidArgument}
)

// Dispatcher owns the interrupt vector table and the syscall command table.
type Dispatcher struct {
	ctx        Context
	interrupts [MaxInterrupts]InterruptHandler
	syscalls   []SyscallHandler

	// acked is set once the interrupt being dispatched has been
	// acknowledged.
	acked bool
}

// NewDispatcher returns a dispatcher with room for maxSyscalls commands.
func NewDispatcher(ctx Context, maxSyscalls int) *Dispatcher {
	return &Dispatcher{
		ctx:      ctx,
		syscalls: make([]SyscallHandler, maxSyscalls),
	}
}

// RegisterInterrupt binds fn to vector, replacing any previous handler.
func (d *Dispatcher) RegisterInterrupt(vector InterruptNumber, fn InterruptHandler) *kernel.Error {
	if vector >= MaxInterrupts {
		return errVectorOutOfRange
	}

	d.interrupts[vector] = fn
	return nil
}

// RegisterSyscall binds fn to the syscall id. Registering an id outside the
// table or one that is already bound is a fatal error.
func (d *Dispatcher) RegisterSyscall(id int, fn SyscallHandler) {
	if id < 0 || id >= len(d.syscalls) {
		kfmt.Panic(errSyscallOutOfRange)
		return
	}

	if d.syscalls[id] != nil {
		kfmt.Panic(errSyscallTaken)
		return
	}

	d.syscalls[id] = fn
}

// HandleInterrupt is the common entry point for hardware interrupts and CPU
// exceptions. If a handler is bound to vector, the interrupted task's state
// is saved before the handler runs. The interrupt is acknowledged exactly
// once: by the handler through Acknowledge or on the way out.
func (d *Dispatcher) HandleInterrupt(vector InterruptNumber, frame *Frame) {
	d.acked = false
	d.ctx.SwitchToKernel()

	if vector < MaxInterrupts {
		if handler := d.interrupts[vector]; handler != nil {
			d.ctx.SaveState(frame)
			handler(frame)
		}
	}

	d.ctx.SwitchToCurrent()
	d.Acknowledge()
}

// Acknowledge signals the end of the interrupt being dispatched to the
// interrupt controller. Handlers that leave for user mode without returning
// call it first; later calls for the same interrupt are no-ops.
func (d *Dispatcher) Acknowledge() {
	if d.acked {
		return
	}

	d.acked = true
	ackInterruptFn()
}

// HandleSyscall is the entry point for the syscall software interrupt. The
// command id is taken from EAX; unknown ids yield 0.
func (d *Dispatcher) HandleSyscall(frame *Frame) uint32 {
	d.ctx.SwitchToKernel()
	d.ctx.SaveState(frame)

	var res uint32
	if id := int32(frame.EAX); id >= 0 && int(id) < len(d.syscalls) {
		if handler := d.syscalls[id]; handler != nil {
			res = handler(frame)
		}
	}

	d.ctx.SwitchToCurrent()
	return res
}
