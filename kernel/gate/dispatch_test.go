package gate

import (
	"testing"

	"github.com/ceyert/kuzne/kernel/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingContext struct {
	calls []string
	saved []Frame
}

func (c *recordingContext) SwitchToKernel()  { c.calls = append(c.calls, "kernel") }
func (c *recordingContext) SwitchToCurrent() { c.calls = append(c.calls, "current") }
func (c *recordingContext) SaveState(frame *Frame) {
	c.calls = append(c.calls, "save")
	c.saved = append(c.saved, *frame)
}

func TestHandleInterrupt(t *testing.T) {
	defer func(orig func()) { ackInterruptFn = orig }(ackInterruptFn)

	var ctx recordingContext
	ackInterruptFn = func() { ctx.calls = append(ctx.calls, "ack") }

	d := NewDispatcher(&ctx, 16)

	t.Run("unbound vector", func(t *testing.T) {
		ctx = recordingContext{}
		d.HandleInterrupt(Keyboard, &Frame{})
		assert.Equal(t, []string{"kernel", "current", "ack"}, ctx.calls)
	})

	t.Run("bound vector", func(t *testing.T) {
		ctx = recordingContext{}

		var got *Frame
		require.Nil(t, d.RegisterInterrupt(Timer, func(f *Frame) {
			ctx.calls = append(ctx.calls, "handler")
			got = f
		}))

		frame := &Frame{EIP: 0x400010, ESP: 0x3FEFF0}
		d.HandleInterrupt(Timer, frame)

		assert.Equal(t, []string{"kernel", "save", "handler", "current", "ack"}, ctx.calls)
		assert.Equal(t, frame, got)
		assert.Equal(t, []Frame{*frame}, ctx.saved)
	})

	t.Run("handler acknowledges early", func(t *testing.T) {
		ctx = recordingContext{}

		require.Nil(t, d.RegisterInterrupt(Timer, func(*Frame) {
			d.Acknowledge()
			ctx.calls = append(ctx.calls, "handler")
			d.Acknowledge()
		}))

		d.HandleInterrupt(Timer, &Frame{})
		assert.Equal(t, []string{"kernel", "save", "ack", "handler", "current"}, ctx.calls)

		// The next interrupt is acknowledged again.
		ctx = recordingContext{}
		d.HandleInterrupt(Timer, &Frame{})
		assert.Equal(t, []string{"kernel", "save", "ack", "handler", "current"}, ctx.calls)
	})

	t.Run("vector out of range", func(t *testing.T) {
		ctx = recordingContext{}
		d.HandleInterrupt(MaxInterrupts+1, &Frame{})
		assert.Equal(t, []string{"kernel", "current", "ack"}, ctx.calls)
	})
}

func TestRegisterInterrupt(t *testing.T) {
	d := NewDispatcher(&recordingContext{}, 16)

	assert.Equal(t, errVectorOutOfRange, d.RegisterInterrupt(MaxInterrupts, func(*Frame) {}))

	var calls []int
	require.Nil(t, d.RegisterInterrupt(Keyboard, func(*Frame) { calls = append(calls, 1) }))
	// hardware vectors may be rebound
	require.Nil(t, d.RegisterInterrupt(Keyboard, func(*Frame) { calls = append(calls, 2) }))

	d.HandleInterrupt(Keyboard, &Frame{})
	assert.Equal(t, []int{2}, calls)
}

func TestHandleSyscall(t *testing.T) {
	var ctx recordingContext
	d := NewDispatcher(&ctx, 4)

	d.RegisterSyscall(0, func(f *Frame) uint32 {
		ctx.calls = append(ctx.calls, "sum")
		return f.EBX + f.ECX
	})

	res := d.HandleSyscall(&Frame{EAX: 0, EBX: 20, ECX: 22})
	assert.Equal(t, uint32(42), res)
	assert.Equal(t, []string{"kernel", "save", "sum", "current"}, ctx.calls)

	for _, id := range []uint32{1, 3, 4, 1024, 0xffffffff} {
		ctx = recordingContext{}
		assert.Equal(t, uint32(0), d.HandleSyscall(&Frame{EAX: id}), "id %d", id)
		assert.Equal(t, []string{"kernel", "save", "current"}, ctx.calls, "id %d", id)
	}
}

func TestRegisterSyscallFatalErrors(t *testing.T) {
	specs := []struct {
		name string
		id   int
	}{
		{"negative id", -1},
		{"id past the table", 4},
		{"id already bound", 0},
	}

	for _, spec := range specs {
		t.Run(spec.name, func(t *testing.T) {
			emu := cpu.NewEmulator()
			defer cpu.SetPlatform(cpu.SetPlatform(emu))

			d := NewDispatcher(&recordingContext{}, 4)
			d.RegisterSyscall(0, func(*Frame) uint32 { return 1 })
			require.False(t, emu.Halted())

			d.RegisterSyscall(spec.id, func(*Frame) uint32 { return 2 })
			assert.True(t, emu.Halted(), "expected registration to halt the CPU")

			// The original binding stays in place.
			assert.Equal(t, uint32(1), d.HandleSyscall(&Frame{EAX: 0}))
		})
	}
}
