package console

import (
	"strings"
	"sync"

	"golang.org/x/text/encoding/charmap"
)

var _ Console = (*Ega)(nil)

const (
	clearColor = Black
	clearChar  = byte(' ')
)

// Ega implements an EGA-compatible text console. Each cell of its
// framebuffer holds a code page 437 character in the low byte and its color
// attribute in the high byte.
type Ega struct {
	sync.Mutex

	width  uint16
	height uint16

	fb []uint16
}

// NewEga returns a cleared console with the given dimensions.
func NewEga(width, height uint16) *Ega {
	cons := &Ega{}
	cons.Init(width, height)
	return cons
}

// Init sets up the console and allocates its framebuffer.
func (cons *Ega) Init(width, height uint16) {
	cons.width = width
	cons.height = height
	cons.fb = make([]uint16, int(width)*int(height))
	cons.Clear(0, 0, width, height)
}

// Clear clears the specified rectangular region
func (cons *Ega) Clear(x, y, width, height uint16) {
	var (
		clr                  = uint16(MakeAttr(clearColor, clearColor))<<8 | uint16(clearChar)
		rowOffset, colOffset uint16
	)

	// clip rectangle
	if x >= cons.width {
		x = cons.width
	}
	if y >= cons.height {
		y = cons.height
	}

	if x+width > cons.width {
		width = cons.width - x
	}
	if y+height > cons.height {
		height = cons.height - y
	}

	rowOffset = (y * cons.width) + x
	for ; height > 0; height, rowOffset = height-1, rowOffset+cons.width {
		for colOffset = rowOffset; colOffset < rowOffset+width; colOffset++ {
			cons.fb[colOffset] = clr
		}
	}
}

// Dimensions returns the console width and height in characters.
func (cons *Ega) Dimensions() (uint16, uint16) {
	return cons.width, cons.height
}

// Scroll a particular number of lines to the specified direction.
func (cons *Ega) Scroll(dir ScrollDir, lines uint16) {
	if lines == 0 || lines > cons.height {
		return
	}

	var i uint16
	offset := lines * cons.width

	switch dir {
	case Up:
		for ; i < (cons.height-lines)*cons.width; i++ {
			cons.fb[i] = cons.fb[i+offset]
		}
	case Down:
		for i = cons.height*cons.width - 1; i >= lines*cons.width; i-- {
			cons.fb[i] = cons.fb[i-offset]
		}
	}
}

// Write a char to the specified location.
func (cons *Ega) Write(ch byte, attr Attr, x, y uint16) {
	if x >= cons.width || y >= cons.height {
		return
	}

	cons.fb[(y*cons.width)+x] = (uint16(attr) << 8) | uint16(ch)
}

// Cell returns the character and attribute stored at (x, y).
func (cons *Ega) Cell(x, y uint16) (byte, Attr) {
	if x >= cons.width || y >= cons.height {
		return 0, 0
	}

	v := cons.fb[(y*cons.width)+x]
	return byte(v), Attr(v >> 8)
}

// Text returns the console contents decoded from code page 437, one line
// per row with trailing blanks removed.
func (cons *Ega) Text() string {
	var sb strings.Builder
	for y := uint16(0); y < cons.height; y++ {
		var row strings.Builder
		for x := uint16(0); x < cons.width; x++ {
			ch, _ := cons.Cell(x, y)
			row.WriteRune(charmap.CodePage437.DecodeByte(ch))
		}
		sb.WriteString(strings.TrimRight(row.String(), " \x00"))
		sb.WriteByte('\n')
	}
	return sb.String()
}
