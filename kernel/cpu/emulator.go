package cpu

// Emulator is a Platform that records the effect of every privileged
// operation instead of performing it. It allows the kernel to run as a
// regular process and is what tests and the hosted runner use.
type Emulator struct {
	halted            bool
	interruptsEnabled bool

	activePDT   uintptr
	pdtSwitches int

	acks int

	returns []Registers
}

// NewEmulator creates an emulated platform with interrupts disabled.
func NewEmulator() *Emulator {
	return &Emulator{}
}

// Halt marks the emulated CPU as halted.
func (e *Emulator) Halt() { e.halted = true }

// EnableInterrupts enables interrupt handling.
func (e *Emulator) EnableInterrupts() { e.interruptsEnabled = true }

// DisableInterrupts disables interrupt handling.
func (e *Emulator) DisableInterrupts() { e.interruptsEnabled = false }

// SwitchPDT records pdtPhysAddr as the active page directory.
func (e *Emulator) SwitchPDT(pdtPhysAddr uintptr) {
	e.activePDT = pdtPhysAddr
	e.pdtSwitches++
}

// ActivePDT returns the address passed to the last SwitchPDT call.
func (e *Emulator) ActivePDT() uintptr { return e.activePDT }

// ReturnToUser records a snapshot of the register file that would have been
// loaded before entering ring 3. Unlike real hardware, it returns.
func (e *Emulator) ReturnToUser(regs *Registers) {
	e.returns = append(e.returns, *regs)
}

// AckInterrupt counts end-of-interrupt signals.
func (e *Emulator) AckInterrupt() { e.acks++ }

// Halted returns true if Halt has been called.
func (e *Emulator) Halted() bool { return e.halted }

// InterruptsEnabled reports the state of the interrupt flag.
func (e *Emulator) InterruptsEnabled() bool { return e.interruptsEnabled }

// PDTSwitches returns the number of SwitchPDT calls.
func (e *Emulator) PDTSwitches() int { return e.pdtSwitches }

// Acks returns the number of acknowledged interrupts.
func (e *Emulator) Acks() int { return e.acks }

// Returns returns the number of transfers to ring 3.
func (e *Emulator) Returns() int { return len(e.returns) }

// LastReturn returns the register file used by the most recent transfer to
// ring 3 and false if no such transfer took place.
func (e *Emulator) LastReturn() (Registers, bool) {
	if len(e.returns) == 0 {
		return Registers{}, false
	}

	return e.returns[len(e.returns)-1], true
}
