// Package cpu isolates every operation that needs privileged CPU access
// behind the Platform interface. The rest of the kernel only talks to the
// machine through the helpers exported by this package.
package cpu

// Registers is the register file that gets restored when control is
// transferred to ring 3. Its field order mirrors the order in which the
// user-mode return stub pops the general purpose registers before issuing
// iret with the EIP/CS/EFlags/ESP/SS tail.
type Registers struct {
	EDI uint32
	ESI uint32
	EBP uint32
	EBX uint32
	EDX uint32
	ECX uint32
	EAX uint32

	EIP    uint32
	CS     uint32
	EFlags uint32
	ESP    uint32
	SS     uint32
}

// Platform is implemented by the machine the kernel runs on.
type Platform interface {
	// Halt stops instruction execution.
	Halt()

	// EnableInterrupts enables interrupt handling.
	EnableInterrupts()

	// DisableInterrupts disables interrupt handling.
	DisableInterrupts()

	// SwitchPDT sets the root page directory to the specified physical
	// address and flushes the TLB.
	SwitchPDT(pdtPhysAddr uintptr)

	// ActivePDT returns the physical address of the active page directory.
	ActivePDT() uintptr

	// ReturnToUser loads the user data selector into the segment
	// registers, restores the general purpose registers from regs and
	// irets to regs.EIP in ring 3. On real hardware it never returns.
	ReturnToUser(regs *Registers)

	// AckInterrupt sends an end-of-interrupt to the interrupt controller.
	AckInterrupt()
}

// active is the platform used by the package-level helpers.
var active Platform = NewEmulator()

// SetPlatform installs p as the active platform and returns the previously
// active one.
func SetPlatform(p Platform) Platform {
	prev := active
	active = p
	return prev
}

// Halt stops instruction execution.
func Halt() { active.Halt() }

// EnableInterrupts enables interrupt handling.
func EnableInterrupts() { active.EnableInterrupts() }

// DisableInterrupts disables interrupt handling.
func DisableInterrupts() { active.DisableInterrupts() }

// SwitchPDT sets the root page directory to the specified physical address.
func SwitchPDT(pdtPhysAddr uintptr) { active.SwitchPDT(pdtPhysAddr) }

// ActivePDT returns the physical address of the currently active page
// directory.
func ActivePDT() uintptr { return active.ActivePDT() }

// ReturnToUser transfers control to ring 3 using the supplied register file.
func ReturnToUser(regs *Registers) { active.ReturnToUser(regs) }

// AckInterrupt acknowledges the interrupt currently being serviced.
func AckInterrupt() { active.AckInterrupt() }
