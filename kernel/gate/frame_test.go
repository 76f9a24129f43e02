package gate

import (
	"bytes"
	"testing"

	"github.com/ceyert/kuzne/kernel/cpu"
	"github.com/stretchr/testify/assert"
)

func TestFrameRegisters(t *testing.T) {
	frame := Frame{
		EDI: 1, ESI: 2, EBP: 3, Reserved: 99, EBX: 4, EDX: 5, ECX: 6, EAX: 7,
		EIP: 8, CS: 0x1b, EFlags: 0x202, ESP: 10, SS: 0x23,
	}

	assert.Equal(t, cpu.Registers{
		EDI: 1, ESI: 2, EBP: 3, EBX: 4, EDX: 5, ECX: 6, EAX: 7,
		EIP: 8, CS: 0x1b, EFlags: 0x202, ESP: 10, SS: 0x23,
	}, frame.Registers())

	roundTrip := NewFrame(frame.Registers())
	frame.Reserved = 0
	assert.Equal(t, frame, *roundTrip)
}

func TestFrameDumpTo(t *testing.T) {
	frame := Frame{
		EAX: 1, EBX: 2, ECX: 3, EDX: 4, ESI: 5, EDI: 6, EBP: 7,
		EIP: 0x400000, CS: 0x1b, ESP: 0x3FF000, SS: 0x23, EFlags: 0x202,
	}

	exp := "EAX = 00000001 EBX = 00000002\n" +
		"ECX = 00000003 EDX = 00000004\n" +
		"ESI = 00000005 EDI = 00000006\n" +
		"EBP = 00000007\n" +
		"\n" +
		"EIP = 00400000 CS  = 0000001b\n" +
		"ESP = 003ff000 SS  = 00000023\n" +
		"EFL = 00000202\n"

	var buf bytes.Buffer
	frame.DumpTo(&buf)
	assert.Equal(t, exp, buf.String())
}

func TestIsException(t *testing.T) {
	assert.True(t, DivideByZero.IsException())
	assert.True(t, PageFaultException.IsException())
	assert.True(t, LastException.IsException())
	assert.False(t, Timer.IsException())
	assert.False(t, Syscall.IsException())
}
