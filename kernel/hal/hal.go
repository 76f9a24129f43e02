// Package hal wires the kernel's output devices together.
package hal

import (
	"github.com/ceyert/kuzne/kernel/driver/tty"
	"github.com/ceyert/kuzne/kernel/driver/video/console"
)

// Text mode dimensions of the boot console.
const (
	ConsoleWidth  = 80
	ConsoleHeight = 25
)

var (
	egaConsole = &console.Ega{}

	// ActiveTerminal points to the currently active terminal.
	ActiveTerminal = &tty.Vt{}
)

// InitTerminal provides a basic terminal to allow the kernel to emit some
// output till everything is properly setup.
func InitTerminal() {
	egaConsole.Init(ConsoleWidth, ConsoleHeight)
	ActiveTerminal.AttachTo(egaConsole)
}

// ActiveConsole returns the console backing ActiveTerminal.
func ActiveConsole() *console.Ega {
	return egaConsole
}
