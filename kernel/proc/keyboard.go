package proc

// KeyboardBuffer is a per-process ring of pending key codes. A zero byte
// marks an empty cell.
type KeyboardBuffer struct {
	buf        []byte
	head, tail int
}

// NewKeyboardBuffer returns a buffer with room for size key codes.
func NewKeyboardBuffer(size int) *KeyboardBuffer {
	return &KeyboardBuffer{buf: make([]byte, size)}
}

// Push appends c. Zero key codes are dropped.
func (kb *KeyboardBuffer) Push(c byte) {
	if c == 0 {
		return
	}

	kb.buf[kb.tail%len(kb.buf)] = c
	kb.tail++
}

// Pop removes and returns the oldest key code or 0 if there is none.
func (kb *KeyboardBuffer) Pop() byte {
	idx := kb.head % len(kb.buf)
	c := kb.buf[idx]
	if c == 0 {
		return 0
	}

	kb.buf[idx] = 0
	kb.head++
	return c
}

// Backspace drops the most recently pushed key code that has not been
// popped yet.
func (kb *KeyboardBuffer) Backspace() {
	if kb.tail == kb.head {
		return
	}

	kb.tail--
	kb.buf[kb.tail%len(kb.buf)] = 0
}

// KeyboardPush queues c for the current process.
func (m *Manager) KeyboardPush(c byte) {
	if m.current == nil {
		return
	}

	m.current.Keyboard.Push(c)
}

// KeyboardPop dequeues the next key code of the process owning the current
// task.
func (m *Manager) KeyboardPop() byte {
	cur := m.sched.Current()
	if cur == nil {
		return 0
	}

	return cur.Process.Keyboard.Pop()
}

// KeyboardBackspace erases the last key queued for the current process.
func (m *Manager) KeyboardBackspace() {
	if m.current == nil {
		return
	}

	m.current.Keyboard.Backspace()
}
