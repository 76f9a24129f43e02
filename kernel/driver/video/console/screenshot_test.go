package console

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	cons := NewEga(4, 2)
	cons.Write(' ', (Red<<4)|White, 1, 0)
	cons.Write('A', (Blue<<4)|LightGreen, 3, 1)

	img := cons.Render().Image()
	assert.Equal(t, 4*CellWidth, img.Bounds().Dx())
	assert.Equal(t, 2*CellHeight, img.Bounds().Dy())

	r, g, b, _ := img.At(CellWidth+1, 1).RGBA()
	assert.Equal(t, [3]uint32{0xaaaa, 0, 0}, [3]uint32{r, g, b}, "expected red background")

	r, g, b, _ = img.At(0, 0).RGBA()
	assert.Equal(t, [3]uint32{0, 0, 0}, [3]uint32{r, g, b})

	// The glyph cell mixes background and foreground pixels.
	var fg int
	for y := CellHeight; y < 2*CellHeight; y++ {
		for x := 3 * CellWidth; x < 4*CellWidth; x++ {
			if _, g, _, _ := img.At(x, y).RGBA(); g > 0x8000 {
				fg++
			}
		}
	}
	assert.NotZero(t, fg, "expected glyph pixels to be drawn")
}

func TestScreenshot(t *testing.T) {
	cons := NewEga(80, 25)
	cons.Write('x', White, 0, 0)

	var buf bytes.Buffer
	require.NoError(t, cons.Screenshot(&buf))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 80*CellWidth, img.Bounds().Dx())
	assert.Equal(t, 25*CellHeight, img.Bounds().Dy())
}
