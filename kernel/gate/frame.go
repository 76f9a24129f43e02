// Package gate routes hardware interrupts, CPU exceptions and system calls
// to the handlers registered by the rest of the kernel.
package gate

import (
	"io"

	"github.com/ceyert/kuzne/kernel/cpu"
	"github.com/ceyert/kuzne/kernel/kfmt"
)

// Frame contains a snapshot of all register values when an exception,
// interrupt or syscall occurs. The field order matches the layout pushed by
// the interrupt entry stubs: the general purpose registers saved by pushad
// followed by the return frame used by iret.
type Frame struct {
	EDI uint32
	ESI uint32
	EBP uint32

	// Reserved holds the ESP value stored by pushad, which is ignored.
	Reserved uint32

	EBX uint32
	EDX uint32
	ECX uint32
	EAX uint32

	// The return frame used by IRET
	EIP    uint32
	CS     uint32
	EFlags uint32
	ESP    uint32
	SS     uint32
}

// NewFrame returns the frame that an interrupt taken while regs were loaded
// would have pushed.
func NewFrame(regs cpu.Registers) *Frame {
	return &Frame{
		EDI:    regs.EDI,
		ESI:    regs.ESI,
		EBP:    regs.EBP,
		EBX:    regs.EBX,
		EDX:    regs.EDX,
		ECX:    regs.ECX,
		EAX:    regs.EAX,
		EIP:    regs.EIP,
		CS:     regs.CS,
		EFlags: regs.EFlags,
		ESP:    regs.ESP,
		SS:     regs.SS,
	}
}

// Registers returns the register file that resumes execution at the point
// where this frame was captured.
func (f *Frame) Registers() cpu.Registers {
	return cpu.Registers{
		EDI:    f.EDI,
		ESI:    f.ESI,
		EBP:    f.EBP,
		EBX:    f.EBX,
		EDX:    f.EDX,
		ECX:    f.ECX,
		EAX:    f.EAX,
		EIP:    f.EIP,
		CS:     f.CS,
		EFlags: f.EFlags,
		ESP:    f.ESP,
		SS:     f.SS,
	}
}

// DumpTo outputs the register contents to w.
func (f *Frame) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "EAX = %8x EBX = %8x\n", f.EAX, f.EBX)
	kfmt.Fprintf(w, "ECX = %8x EDX = %8x\n", f.ECX, f.EDX)
	kfmt.Fprintf(w, "ESI = %8x EDI = %8x\n", f.ESI, f.EDI)
	kfmt.Fprintf(w, "EBP = %8x\n", f.EBP)
	kfmt.Fprintf(w, "\n")
	kfmt.Fprintf(w, "EIP = %8x CS  = %8x\n", f.EIP, f.CS)
	kfmt.Fprintf(w, "ESP = %8x SS  = %8x\n", f.ESP, f.SS)
	kfmt.Fprintf(w, "EFL = %8x\n", f.EFlags)
}
