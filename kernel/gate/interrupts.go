package gate

// InterruptNumber describes an x86 interrupt/exception/trap slot.
type InterruptNumber uint16

// MaxInterrupts is the number of slots in the interrupt vector table.
const MaxInterrupts = 256

const (
	// DivideByZero occurs when dividing any number by 0 using the DIV or
	// IDIV instruction.
	DivideByZero = InterruptNumber(0)

	// NMI (non-maskable-interrupt) is a hardware interrupt that indicates
	// issues with RAM or unrecoverable hardware problems.
	NMI = InterruptNumber(2)

	// Overflow occurs when the INTO instruction is executed while the
	// overflow flag is set.
	Overflow = InterruptNumber(4)

	// InvalidOpcode occurs when the CPU attempts to execute an invalid or
	// undefined instruction opcode.
	InvalidOpcode = InterruptNumber(6)

	// DoubleFault occurs when an exception occurs within a running
	// exception handler.
	DoubleFault = InterruptNumber(8)

	// GPFException occurs when a general protection fault occurs.
	GPFException = InterruptNumber(13)

	// PageFaultException occurs when a page directory or one of its
	// entries is not present or when a privilege and/or RW protection
	// check fails.
	PageFaultException = InterruptNumber(14)

	// LastException is the highest vector reserved for CPU exceptions.
	LastException = InterruptNumber(0x1f)

	// Timer is raised by the programmable interval timer (IRQ 0).
	Timer = InterruptNumber(0x20)

	// Keyboard is raised by the PS/2 keyboard controller (IRQ 1).
	Keyboard = InterruptNumber(0x21)

	// Syscall is the software interrupt used by user-space to enter the
	// kernel.
	Syscall = InterruptNumber(0x80)
)

// IsException returns true if n is a CPU exception vector.
func (n InterruptNumber) IsException() bool {
	return n <= LastException
}
