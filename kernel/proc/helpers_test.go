package proc

import (
	"bytes"
	"testing"

	"github.com/ceyert/kuzne/kernel"
	"github.com/ceyert/kuzne/kernel/cpu"
	"github.com/ceyert/kuzne/kernel/fs"
	"github.com/ceyert/kuzne/kernel/kfmt"
	"github.com/ceyert/kuzne/kernel/mem"
	"github.com/ceyert/kuzne/kernel/mem/heap"
	"github.com/ceyert/kuzne/kernel/mem/vmm"
	"github.com/stretchr/testify/require"
)

const (
	testHeapBase   = uintptr(0x01000000)
	testHeapBlocks = 8192
)

type testEnv struct {
	cfg       kernel.Config
	emu       *cpu.Emulator
	heap      *heap.Heap
	kernelDir *vmm.PageDirectoryTable
	drive     *fs.MemFS
	mgr       *Manager
	log       *bytes.Buffer
}

// newTestEnv boots just enough of the kernel to load processes: an emulated
// CPU, a heap backed by RAM, the kernel page directory and a memory drive
// mounted as drive 0 holding a few flat binaries.
func newTestEnv(t *testing.T, mutate func(*kernel.Config)) *testEnv {
	env := &testEnv{
		cfg:   kernel.DefaultConfig(),
		emu:   cpu.NewEmulator(),
		drive: fs.NewMemFS(),
		log:   &bytes.Buffer{},
	}
	env.cfg.HeapSize = testHeapBlocks * mem.PageSize
	if mutate != nil {
		mutate(&env.cfg)
	}

	orig := cpu.SetPlatform(env.emu)
	t.Cleanup(func() { cpu.SetPlatform(orig) })

	origSink := kfmt.OutputSink()
	kfmt.SetOutputSink(env.log)
	t.Cleanup(func() { kfmt.SetOutputSink(origSink) })

	ram, err := mem.NewRAM(testHeapBase, mem.Size(env.cfg.HeapSize))
	require.Nil(t, err)
	t.Cleanup(func() { _ = ram.Close() })

	blocks := int(env.cfg.HeapSize / env.cfg.HeapBlockSize)
	env.heap, err = heap.Create(testHeapBase, testHeapBase+env.cfg.HeapSize, env.cfg.HeapBlockSize, heap.NewMap(blocks), ram)
	require.Nil(t, err)

	env.kernelDir, err = vmm.New(env.heap, vmm.FlagPresent|vmm.FlagRW|vmm.FlagUserAccessible)
	require.Nil(t, err)
	env.kernelDir.Activate()

	env.drive.Add("a.bin", bytes.Repeat([]byte{0xA}, 64))
	env.drive.Add("b.bin", bytes.Repeat([]byte{0xB}, 64))
	env.drive.Add("c.bin", bytes.Repeat([]byte{0xC}, 64))

	var drives fs.Drives
	require.Nil(t, drives.Mount(0, env.drive))

	env.mgr = NewManager(&env.cfg, &drives, env.heap, env.kernelDir)
	return env
}

func (env *testEnv) load(t *testing.T, name string) *Process {
	p, err := env.mgr.Load("0:/" + name)
	require.Nil(t, err)
	return p
}
