package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyboardBuffer(t *testing.T) {
	kb := NewKeyboardBuffer(4)

	assert.Zero(t, kb.Pop(), "expected empty buffer to yield 0")

	kb.Push('a')
	kb.Push(0)
	kb.Push('b')
	assert.Equal(t, byte('a'), kb.Pop())
	assert.Equal(t, byte('b'), kb.Pop())
	assert.Zero(t, kb.Pop())

	// Indices wrap around the buffer.
	for _, c := range []byte("wxyz") {
		kb.Push(c)
	}
	kb.Backspace()
	kb.Push('!')

	var got []byte
	for c := kb.Pop(); c != 0; c = kb.Pop() {
		got = append(got, c)
	}
	assert.Equal(t, "wxy!", string(got))

	// Backspace never erases keys that were already consumed.
	kb.Backspace()
	kb.Push('q')
	assert.Equal(t, byte('q'), kb.Pop())
}

func TestManagerKeyboard(t *testing.T) {
	env := newTestEnv(t, nil)

	// Without a current process keys are dropped.
	env.mgr.KeyboardPush('x')
	env.mgr.KeyboardBackspace()
	assert.Zero(t, env.mgr.KeyboardPop())

	a := env.load(t, "a.bin")
	b := env.load(t, "b.bin")
	env.mgr.SetCurrent(b)

	env.mgr.KeyboardPush('h')
	env.mgr.KeyboardPush('i')
	env.mgr.KeyboardPush('?')
	env.mgr.KeyboardBackspace()

	// Keys are read from the process owning the current task, which is
	// still the first one loaded.
	assert.Zero(t, env.mgr.KeyboardPop())
	assert.Zero(t, a.Keyboard.Pop())

	env.mgr.Scheduler().SwitchTo(b.Task)
	assert.Equal(t, byte('h'), env.mgr.KeyboardPop())
	assert.Equal(t, byte('i'), env.mgr.KeyboardPop())
	assert.Zero(t, env.mgr.KeyboardPop())
}
