package kmain

import (
	"bytes"
	"testing"

	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/cpu"
	"github.com/ceyert/kuzne/kernel/fs"
	"github.com/ceyert/kuzne/kernel/gate"
	"github.com/ceyert/kuzne/kernel/kfmt"
	"github.com/ceyert/kuzne/kernel/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTerminal struct {
	bytes.Buffer
}

func (f *fakeTerminal) PutChar(c byte) { f.WriteByte(c) }

type testEnv struct {
	emu  *cpu.Emulator
	log  *bytes.Buffer
	term *fakeTerminal
	k    *Kernel
}

func newTestEnv(t *testing.T, mutate func(*kernel.Config)) *testEnv {
	env := &testEnv{emu: cpu.NewEmulator(), log: &bytes.Buffer{}, term: &fakeTerminal{}}

	orig := cpu.SetPlatform(env.emu)
	t.Cleanup(func() { cpu.SetPlatform(orig) })

	origSink := kfmt.OutputSink()
	kfmt.SetOutputSink(env.log)
	t.Cleanup(func() { kfmt.SetOutputSink(origSink) })

	cfg := kernel.DefaultConfig()
	cfg.HeapSize = 8192 * mem.PageSize
	cfg.InitProgram = "0:/shell.bin"
	if mutate != nil {
		mutate(&cfg)
	}

	drive := fs.NewMemFS()
	drive.Add("shell.bin", bytes.Repeat([]byte{0x90}, 16))
	drive.Add("blank.bin", bytes.Repeat([]byte{0x90}, 16))

	var drives fs.Drives
	require.Nil(t, drives.Mount(0, drive))

	env.k = New(cfg, &drives, env.term)
	t.Cleanup(env.k.Shutdown)
	return env
}

func (env *testEnv) boot(t *testing.T) {
	require.Nil(t, env.k.Boot())
}

func TestBoot(t *testing.T) {
	env := newTestEnv(t, nil)
	env.boot(t)

	shell := env.k.Procs.Current()
	require.NotNil(t, shell)
	assert.Equal(t, "0:/shell.bin", shell.Filename)

	last, ok := env.emu.LastReturn()
	require.True(t, ok)
	assert.Equal(t, uint32(0x400000), last.EIP)
	assert.Equal(t, uint32(0x3FF000), last.ESP)
	assert.Equal(t, shell.Task.Directory.Root(), env.emu.ActivePDT())
	assert.True(t, env.emu.InterruptsEnabled())

	assert.Contains(t, env.log.String(), "kuzne v"+Version.String())
	assert.Contains(t, env.log.String(), "[kmain] heap: 0x1000000 - 0x3000000 (8192 blocks)")

	assert.Equal(t, errAlreadyBoot, env.k.Boot())
}

func TestBootFailures(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		env := newTestEnv(t, func(cfg *kernel.Config) { cfg.MaxProcesses = 0 })

		err := env.k.Boot()
		require.NotNil(t, err)
		assert.Equal(t, kernel.CodeInvalidArgument, err.Code)
		assert.Nil(t, env.k.RAM)
	})

	t.Run("heap too small for the kernel directory", func(t *testing.T) {
		env := newTestEnv(t, func(cfg *kernel.Config) { cfg.HeapSize = 64 * mem.PageSize })

		err := env.k.Boot()
		require.NotNil(t, err)
		assert.Equal(t, kernel.CodeOutOfMemory, err.Code)
		assert.Nil(t, env.k.RAM)
	})

	t.Run("missing init program", func(t *testing.T) {
		env := newTestEnv(t, func(cfg *kernel.Config) { cfg.InitProgram = "0:/nope.elf" })

		assert.Equal(t, errInitFailed, env.k.Boot())
		assert.True(t, env.emu.Halted())
		assert.Zero(t, env.emu.Returns())
		assert.Contains(t, env.log.String(), "[kmain] 0:/nope.elf: file not found")
	})
}

func TestTickRoundRobin(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, errNoTask, env.k.Tick())

	env.boot(t)
	shell := env.k.Procs.Current()
	blank, err := env.k.Procs.Load("0:/blank.bin")
	require.Nil(t, err)

	for i, exp := range []int{blank.ID, shell.ID, blank.ID} {
		require.Nil(t, env.k.Tick())

		cur := env.k.Procs.Scheduler().Current()
		assert.Equal(t, exp, cur.Process.ID, "[tick %d]", i)

		last, _ := env.emu.LastReturn()
		assert.Equal(t, cur.Registers, last, "[tick %d]", i)
	}

	// Every tick is acknowledged exactly once.
	assert.Equal(t, 3, env.emu.Acks())
}

func TestFaultTerminatesFaultingProcess(t *testing.T) {
	env := newTestEnv(t, nil)
	env.boot(t)

	shell := env.k.Procs.Current()
	blank, err := env.k.Procs.Load("0:/blank.bin")
	require.Nil(t, err)

	assert.Equal(t, errNotFault, env.k.Fault(gate.Timer))
	assert.NotNil(t, env.k.Procs.Get(shell.ID))

	require.Nil(t, env.k.Fault(gate.GPFException))
	assert.Nil(t, env.k.Procs.Get(shell.ID))
	assert.Equal(t, blank, env.k.Procs.Current())
	assert.Equal(t, blank.Task, env.k.Procs.Scheduler().Current())
	assert.Contains(t, env.log.String(), "[kmain] exception 0xd in 0:/shell.bin, terminating process 0")
	assert.Contains(t, env.log.String(), "EIP = 00400000")

	last, _ := env.emu.LastReturn()
	assert.Equal(t, blank.Task.Registers, last)
	assert.False(t, env.emu.Halted())

	// Faulting the last process halts the machine.
	require.Nil(t, env.k.Fault(gate.PageFaultException))
	assert.True(t, env.emu.Halted())
}

func TestPressKey(t *testing.T) {
	env := newTestEnv(t, nil)
	env.boot(t)

	for _, c := range []byte("ab\b") {
		require.Nil(t, env.k.PressKey(c))
	}

	assert.Equal(t, byte('a'), env.k.Procs.KeyboardPop())
	assert.Zero(t, env.k.Procs.KeyboardPop())
	assert.Equal(t, 3, env.emu.Acks())
}

func TestSyscall(t *testing.T) {
	env := newTestEnv(t, nil)
	env.boot(t)

	task := env.k.Procs.Scheduler().Current()
	const esp = 0x3FEF00
	require.Nil(t, task.WriteUint32(esp, 40))
	require.Nil(t, task.WriteUint32(esp+4, 2))

	res := env.k.Syscall(&gate.Frame{EAX: 0, ESP: esp, EIP: 0x400002, CS: 0x1b, SS: 0x23})
	assert.Equal(t, uint32(42), res)
	assert.Equal(t, uint32(0x400002), task.Registers.EIP)
}
