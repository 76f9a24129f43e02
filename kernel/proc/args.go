package proc

import (
	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/mem"
)

// ArgumentSize is the size of the buffer holding one command-line
// argument, including its NUL terminator.
const ArgumentSize = 512

var errNoArguments = &kernel.Error{Module: "proc", Message: "no arguments to inject", Code: kernel.CodeIO}

// Arguments describes the argv array of a process in its own address
// space.
type Arguments struct {
	Argc int32
	Argv uint32
}

// InjectArguments copies args into memory owned by p and records the
// resulting argv array. Arguments longer than ArgumentSize-1 bytes are
// truncated.
func (m *Manager) InjectArguments(p *Process, args []string) *kernel.Error {
	if len(args) == 0 {
		return errNoArguments
	}

	argv, err := m.Malloc(p, mem.Size(4*len(args)))
	if err != nil {
		return err
	}

	ram := m.heap.RAM()
	for i, arg := range args {
		buf, err := m.Malloc(p, ArgumentSize)
		if err != nil {
			return err
		}

		if len(arg) > ArgumentSize-1 {
			arg = arg[:ArgumentSize-1]
		}

		dst, err := ram.Slice(buf, mem.Size(len(arg)))
		if err != nil {
			return err
		}
		copy(dst, arg)

		if err = ram.WriteUint32(argv+uintptr(4*i), uint32(buf)); err != nil {
			return err
		}
	}

	p.Args = Arguments{Argc: int32(len(args)), Argv: uint32(argv)}
	return nil
}

// ReadArguments returns the strings referenced by the argv array of p.
func (m *Manager) ReadArguments(p *Process) ([]string, *kernel.Error) {
	ram := m.heap.RAM()
	args := make([]string, 0, p.Args.Argc)
	for i := 0; i < int(p.Args.Argc); i++ {
		ptr, err := ram.ReadUint32(uintptr(p.Args.Argv) + uintptr(4*i))
		if err != nil {
			return nil, err
		}

		buf, err := ram.Slice(uintptr(ptr), ArgumentSize)
		if err != nil {
			return nil, err
		}

		n := 0
		for n < len(buf) && buf[n] != 0 {
			n++
		}
		args = append(args, string(buf[:n]))
	}

	return args, nil
}
