// Package syscall implements the commands user programs reach through the
// syscall software interrupt. Arguments are pushed on the user stack and the
// command id travels in EAX.
package syscall

import (
	"io"

	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/cpu"
	"github.com/ceyert/kuzne/kernel/gate"
	"github.com/ceyert/kuzne/kernel/kfmt"
	"github.com/ceyert/kuzne/kernel/mem"
	"github.com/ceyert/kuzne/kernel/proc"
)

// Command is a syscall id.
type Command int

// The stable syscall ABI.
const (
	CommandSum Command = iota
	CommandPrint
	CommandGetKey
	CommandPutChar
	CommandMalloc
	CommandFree
	CommandProcessLoadStart
	CommandInvoke
	CommandGetProgramArguments
	CommandExit
)

const (
	// MaxPath bounds program names passed to the process-load syscalls,
	// including the drive prefix.
	MaxPath = 108

	// printBufferSize bounds strings written by CommandPrint.
	printBufferSize = 1024
)

var (
	// returnToUserFn is used by tests to override calls to
	// cpu.ReturnToUser.
	returnToUserFn = cpu.ReturnToUser

	errNoCommand = &kernel.Error{Module: "syscall", Message: "empty command", Code: kernel.CodeInvalidArgument}
	errNoTask    = &kernel.Error{Module: "syscall", Message: "no current task", Code: kernel.CodeInvalidArgument}
)

// Terminal is where print and put-char output goes.
type Terminal interface {
	io.Writer

	// PutChar writes a single character, interpreting backspace.
	PutChar(c byte)
}

// Handlers binds the syscall commands to a process manager and a terminal.
type Handlers struct {
	mgr       *proc.Manager
	term      Terminal
	bootDrive string
}

// Register installs every command of the ABI into d.
func Register(d *gate.Dispatcher, mgr *proc.Manager, term Terminal, bootDrive string) *Handlers {
	h := &Handlers{mgr: mgr, term: term, bootDrive: bootDrive}

	for cmd, fn := range map[Command]gate.SyscallHandler{
		CommandSum:                 h.sum,
		CommandPrint:               h.print,
		CommandGetKey:              h.getKey,
		CommandPutChar:             h.putChar,
		CommandMalloc:              h.malloc,
		CommandFree:                h.free,
		CommandProcessLoadStart:    h.processLoadStart,
		CommandInvoke:              h.invoke,
		CommandGetProgramArguments: h.getProgramArguments,
		CommandExit:                h.exit,
	} {
		d.RegisterSyscall(int(cmd), fn)
	}

	return h
}

// errorResult encodes err the way failing commands report it in EAX.
func errorResult(err *kernel.Error) uint32 {
	return uint32(int32(err.Code))
}

// stackItems reads the first n words off the current task's stack.
func (h *Handlers) stackItems(n int) (*proc.Task, []uint32, *kernel.Error) {
	task := h.mgr.Scheduler().Current()
	if task == nil {
		return nil, nil, errNoTask
	}

	items := make([]uint32, n)
	for i := range items {
		v, err := task.StackItem(i)
		if err != nil {
			return task, nil, err
		}
		items[i] = v
	}
	return task, items, nil
}

func (h *Handlers) sum(*gate.Frame) uint32 {
	_, items, err := h.stackItems(2)
	if err != nil {
		return 0
	}

	return uint32(int32(items[0]) + int32(items[1]))
}

func (h *Handlers) print(*gate.Frame) uint32 {
	task, items, err := h.stackItems(1)
	if err != nil {
		return 0
	}

	msg, err := task.CopyString(uintptr(items[0]), printBufferSize)
	if err != nil {
		return 0
	}

	_, _ = io.WriteString(h.term, msg)
	return 0
}

func (h *Handlers) getKey(*gate.Frame) uint32 {
	return uint32(h.mgr.KeyboardPop())
}

func (h *Handlers) putChar(*gate.Frame) uint32 {
	_, items, err := h.stackItems(1)
	if err != nil {
		return 0
	}

	h.term.PutChar(byte(items[0]))
	return 0
}

func (h *Handlers) malloc(*gate.Frame) uint32 {
	task, items, err := h.stackItems(1)
	if err != nil {
		return 0
	}

	ptr, err := h.mgr.Malloc(task.Process, mem.Size(items[0]))
	if err != nil {
		return 0
	}

	return uint32(ptr)
}

func (h *Handlers) free(*gate.Frame) uint32 {
	task, items, err := h.stackItems(1)
	if err != nil {
		return 0
	}

	h.mgr.Free(task.Process, uintptr(items[0]))
	return 0
}

func (h *Handlers) processLoadStart(*gate.Frame) uint32 {
	task, items, err := h.stackItems(1)
	if err != nil {
		return 0
	}

	name, err := task.CopyString(uintptr(items[0]), MaxPath)
	if err != nil {
		return 0
	}

	p, err := h.mgr.LoadAndSwitch(h.path(name))
	if err != nil {
		kfmt.Printf("[syscall] unable to start %s: %s\n", name, err.Message)
		return 0
	}

	h.resume(p)
	return 0
}

func (h *Handlers) invoke(*gate.Frame) uint32 {
	task, items, err := h.stackItems(1)
	if err != nil {
		return errorResult(err)
	}

	args, err := h.readCommand(task, uintptr(items[0]))
	if err != nil {
		return errorResult(err)
	}

	p, err := h.mgr.LoadAndSwitch(h.path(args[0]))
	if err != nil {
		return errorResult(err)
	}

	if err = h.mgr.InjectArguments(p, args); err != nil {
		// Drop the half-started process and give the caller back its
		// current process.
		if h.mgr.Terminate(p) == nil {
			h.mgr.SetCurrent(task.Process)
		}
		return errorResult(err)
	}

	h.resume(p)
	return 0
}

func (h *Handlers) getProgramArguments(*gate.Frame) uint32 {
	task, items, err := h.stackItems(1)
	if err != nil {
		return 0
	}

	args := task.Process.Args
	if err = task.WriteUint32(uintptr(items[0]), uint32(args.Argc)); err == nil {
		err = task.WriteUint32(uintptr(items[0])+4, args.Argv)
	}
	if err != nil {
		kfmt.Printf("[syscall] unable to return the arguments of %s: %s\n", task.Process.Filename, err.Message)
	}
	return 0
}

func (h *Handlers) exit(*gate.Frame) uint32 {
	task := h.mgr.Scheduler().Current()
	if task == nil {
		return 0
	}

	if err := h.mgr.Terminate(task.Process); err != nil {
		return 0
	}

	h.mgr.Scheduler().RunNext()
	return 0
}

// readCommand walks the user-space list of command arguments starting at
// virt. The first argument names the program.
func (h *Handlers) readCommand(task *proc.Task, virt uintptr) ([]string, *kernel.Error) {
	var args []string
	for virt != 0 && len(args) < len(task.Process.Allocations) {
		arg, err := task.CopyString(virt, proc.ArgumentSize)
		if err != nil {
			return nil, err
		}

		next, err := task.ReadUint32(virt + proc.ArgumentSize)
		if err != nil {
			return nil, err
		}

		args = append(args, arg)
		virt = uintptr(next)
	}

	if len(args) == 0 || args[0] == "" {
		return nil, errNoCommand
	}

	return args, nil
}

// path prefixes name with the boot drive, truncating the result to MaxPath
// bytes.
func (h *Handlers) path(name string) string {
	path := h.bootDrive + name
	if len(path) > MaxPath-1 {
		path = path[:MaxPath-1]
	}
	return path
}

// resume switches to the task of p and returns to it in user mode.
func (h *Handlers) resume(p *proc.Process) {
	h.mgr.Scheduler().SwitchTo(p.Task)
	returnToUserFn(&p.Task.Registers)
}
