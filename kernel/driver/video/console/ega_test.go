package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEgaInit(t *testing.T) {
	cons := NewEga(80, 25)

	w, h := cons.Dimensions()
	assert.Equal(t, uint16(80), w)
	assert.Equal(t, uint16(25), h)
	assert.Len(t, cons.fb, 80*25)

	ch, attr := cons.Cell(10, 10)
	assert.Equal(t, clearChar, ch)
	assert.Equal(t, clearColor, attr)
}

func TestEgaClear(t *testing.T) {
	specs := []struct {
		// Input rect
		x, y, w, h uint16

		// Expected area to be cleared
		expX, expY, expW, expH uint16
	}{
		{
			0, 0, 500, 500,
			0, 0, 80, 25,
		},
		{
			10, 10, 11, 50,
			10, 10, 11, 15,
		},
		{
			10, 10, 110, 1,
			10, 10, 70, 1,
		},
		{
			70, 20, 20, 20,
			70, 20, 10, 5,
		},
		{
			90, 25, 20, 20,
			0, 0, 0, 0,
		},
		{
			12, 12, 5, 6,
			12, 12, 5, 6,
		},
	}

	cons := NewEga(80, 25)

	testPat := uint16(0xDEAD)
	clearPat := (uint16(clearColor) << 8) | uint16(clearChar)

nextSpec:
	for specIndex, spec := range specs {
		// Fill FB with test pattern
		for i := 0; i < len(cons.fb); i++ {
			cons.fb[i] = testPat
		}

		cons.Clear(spec.x, spec.y, spec.w, spec.h)

		var x, y uint16
		for y = 0; y < cons.height; y++ {
			for x = 0; x < cons.width; x++ {
				fbVal := cons.fb[(y*cons.width)+x]

				if x < spec.expX || y < spec.expY || x >= spec.expX+spec.expW || y >= spec.expY+spec.expH {
					if fbVal != testPat {
						t.Errorf("[spec %d] expected char at (%d, %d) not to be cleared", specIndex, x, y)
						continue nextSpec
					}
				} else {
					if fbVal != clearPat {
						t.Errorf("[spec %d] expected char at (%d, %d) to be cleared", specIndex, x, y)
						continue nextSpec
					}
				}
			}
		}
	}
}

func fillRowPattern(cons *Ega) {
	var x, y, index uint16
	for y = 0; y < cons.height; y++ {
		for x = 0; x < cons.width; x++ {
			cons.fb[index] = (y << 8) | x
			index++
		}
	}
}

func TestEgaScroll(t *testing.T) {
	cons := NewEga(80, 25)

	for _, lines := range []uint16{0, 1, 2} {
		fillRowPattern(cons)
		cons.Scroll(Up, lines)

		for y := uint16(0); y < cons.height-lines; y++ {
			for x := uint16(0); x < cons.width; x++ {
				require.Equal(t, ((y+lines)<<8)|x, cons.fb[y*cons.width+x], "scroll up %d: (%d, %d)", lines, x, y)
			}
		}

		fillRowPattern(cons)
		cons.Scroll(Down, lines)

		for y := lines; y < cons.height; y++ {
			for x := uint16(0); x < cons.width; x++ {
				require.Equal(t, ((y-lines)<<8)|x, cons.fb[y*cons.width+x], "scroll down %d: (%d, %d)", lines, x, y)
			}
		}
	}

	// Scrolling past the console height is a no-op.
	fillRowPattern(cons)
	cons.Scroll(Up, 26)
	assert.Equal(t, uint16(0), cons.fb[0])
}

func TestEgaWrite(t *testing.T) {
	cons := NewEga(80, 25)

	attr := (Black << 4) | Red
	cons.Write('!', attr, 0, 0)
	assert.Equal(t, uint16(attr<<8)|uint16('!'), cons.fb[0])

	ch, gotAttr := cons.Cell(0, 0)
	assert.Equal(t, byte('!'), ch)
	assert.Equal(t, attr, gotAttr)

	for _, spec := range []struct{ x, y uint16 }{{80, 25}, {90, 24}, {79, 30}, {100, 100}} {
		snapshot := append([]uint16(nil), cons.fb...)
		cons.Write('?', Red, spec.x, spec.y)
		assert.Equal(t, snapshot, cons.fb, "expected Write() with off-screen coords (%d, %d) to be a no-op", spec.x, spec.y)

		ch, _ := cons.Cell(spec.x, spec.y)
		assert.Zero(t, ch)
	}
}

func TestEgaText(t *testing.T) {
	cons := NewEga(6, 2)
	for i, ch := range []byte("hi \x82") {
		cons.Write(ch, White, uint16(i), 1)
	}

	assert.Equal(t, "\nhi é\n", cons.Text())
}

func TestAttr(t *testing.T) {
	attr := MakeAttr(LightGreen, Blue)
	assert.Equal(t, Attr(0x1A), attr)
	assert.Equal(t, LightGreen, attr.Foreground())
	assert.Equal(t, Blue, attr.Background())

	// Out of range colors are masked.
	assert.Equal(t, Attr(0xF0), MakeAttr(0x10, 0xFF))
}
