package tty

import (
	"unicode/utf8"

	"github.com/ceyert/kuzne/kernel/driver/video/console"
	"golang.org/x/text/encoding/charmap"
)

const (
	defaultFg = console.LightGrey
	defaultBg = console.Black
	tabWidth  = 4

	backspace = 0x08
)

// Console is the output device of a Vt. console.Ega implements it.
type Console interface {
	console.Console

	Lock()
	Unlock()
}

// Vt implements a simple terminal that can process LF, CR, tab and
// backspace characters. Text is stored on the console using code page 437;
// UTF-8 sequences are translated, using '?' for runes without a code page
// 437 equivalent.
type Vt struct {
	cons Console

	width  uint16
	height uint16

	curX    uint16
	curY    uint16
	curAttr console.Attr
}

// AttachTo links the terminal with the specified console device.
func (t *Vt) AttachTo(cons Console) {
	t.cons = cons
	t.width, t.height = cons.Dimensions()
	t.curX = 0
	t.curY = 0

	// Default to lightgrey on black text.
	t.curAttr = console.MakeAttr(defaultFg, defaultBg)
}

// Dimensions returns the terminal width and height in characters.
func (t *Vt) Dimensions() (uint16, uint16) {
	return t.width, t.height
}

// Clear clears the terminal.
func (t *Vt) Clear() {
	t.cons.Lock()
	defer t.cons.Unlock()

	t.clear()
}

// Position returns the current cursor position (x, y).
func (t *Vt) Position() (uint16, uint16) {
	t.cons.Lock()
	defer t.cons.Unlock()

	return t.curX, t.curY
}

// SetPosition sets the current cursor position to (x,y).
func (t *Vt) SetPosition(x, y uint16) {
	t.cons.Lock()
	defer t.cons.Unlock()

	if x >= t.width {
		x = t.width - 1
	}

	if y >= t.height {
		y = t.height - 1
	}

	t.curX, t.curY = x, y
}

// Write implements io.Writer.
func (t *Vt) Write(data []byte) (int, error) {
	t.cons.Lock()
	defer t.cons.Unlock()

	for i := 0; i < len(data); {
		b := data[i]
		if b >= utf8.RuneSelf {
			if r, size := utf8.DecodeRune(data[i:]); r != utf8.RuneError {
				b = '?'
				if enc, ok := charmap.CodePage437.EncodeRune(r); ok {
					b = enc
				}
				t.doWrite(b)
				i += size
				continue
			}
		}

		t.doWrite(b)
		i++
	}

	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (t *Vt) WriteByte(b byte) error {
	t.cons.Lock()
	defer t.cons.Unlock()

	t.doWrite(b)
	return nil
}

// PutChar writes a single code page 437 character. Unlike Write, a
// backspace also erases the character before the cursor.
func (t *Vt) PutChar(c byte) {
	t.cons.Lock()
	defer t.cons.Unlock()

	if c == backspace {
		t.erase()
		return
	}

	t.doWrite(c)
}

// WriteAtPosition writes char ch with the given attributes at (x, y)
// without moving the cursor.
func (t *Vt) WriteAtPosition(x, y uint16, attr console.Attr, ch byte) {
	t.cons.Lock()
	defer t.cons.Unlock()

	t.cons.Write(ch, console.MakeAttr(attr, defaultBg), x, y)
}

func (t *Vt) doWrite(b byte) {
	switch b {
	case '\r':
		t.cr()
	case '\n':
		t.cr()
		t.lf()
	case '\b':
		if t.curX > 0 {
			t.curX--
		}
	case '\t':
		for k := 0; k < tabWidth; k++ {
			t.put(' ')
		}
	default:
		t.put(b)
	}
}

// put writes b at the cursor and advances it, wrapping to the next line.
func (t *Vt) put(b byte) {
	t.cons.Write(b, t.curAttr, t.curX, t.curY)
	t.curX++
	if t.curX == t.width {
		t.cr()
		t.lf()
	}
}

// erase moves the cursor back one cell, wrapping to the end of the
// previous line, and blanks that cell.
func (t *Vt) erase() {
	if t.curX == 0 && t.curY == 0 {
		return
	}

	if t.curX == 0 {
		t.curY--
		t.curX = t.width
	}

	t.curX--
	t.cons.Write(' ', t.curAttr, t.curX, t.curY)
}

// cls clears the terminal.
func (t *Vt) clear() {
	t.cons.Clear(0, 0, t.width, t.height)
}

// cr resets the x coordinate of the terminal cursor to 0.
func (t *Vt) cr() {
	t.curX = 0
}

// lf advances the y coordinate of the terminal cursor by one line scrolling
// the terminal contents if the end of the last terminal line is reached.
func (t *Vt) lf() {
	if t.curY+1 < t.height {
		t.curY++
		return
	}

	t.cons.Scroll(console.Up, 1)
	t.cons.Clear(0, t.height-1, t.width, 1)
}
