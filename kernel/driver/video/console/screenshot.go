package console

import (
	"image/color"
	"io"

	"github.com/fogleman/gg"
	"golang.org/x/text/encoding/charmap"
)

// Glyph cell size in pixels used when rendering screenshots.
const (
	CellWidth  = 8
	CellHeight = 16
)

// palette holds the RGB values of the 16 EGA text colors.
var palette = [16]color.RGBA{
	Black:        {0x00, 0x00, 0x00, 0xff},
	Blue:         {0x00, 0x00, 0xaa, 0xff},
	Green:        {0x00, 0xaa, 0x00, 0xff},
	Cyan:         {0x00, 0xaa, 0xaa, 0xff},
	Red:          {0xaa, 0x00, 0x00, 0xff},
	Magenta:      {0xaa, 0x00, 0xaa, 0xff},
	Brown:        {0xaa, 0x55, 0x00, 0xff},
	LightGrey:    {0xaa, 0xaa, 0xaa, 0xff},
	Grey:         {0x55, 0x55, 0x55, 0xff},
	LightBlue:    {0x55, 0x55, 0xff, 0xff},
	LightGreen:   {0x55, 0xff, 0x55, 0xff},
	LightCyan:    {0x55, 0xff, 0xff, 0xff},
	LightRed:     {0xff, 0x55, 0x55, 0xff},
	LightMagenta: {0xff, 0x55, 0xff, 0xff},
	LightBrown:   {0xff, 0xff, 0x55, 0xff},
	White:        {0xff, 0xff, 0xff, 0xff},
}

// Render draws the console contents into a new drawing context, one
// CellWidth x CellHeight cell per character.
func (cons *Ega) Render() *gg.Context {
	cons.Lock()
	defer cons.Unlock()

	dc := gg.NewContext(int(cons.width)*CellWidth, int(cons.height)*CellHeight)
	for y := uint16(0); y < cons.height; y++ {
		for x := uint16(0); x < cons.width; x++ {
			ch, attr := cons.Cell(x, y)
			px, py := float64(x)*CellWidth, float64(y)*CellHeight

			dc.SetColor(palette[attr.Background()])
			dc.DrawRectangle(px, py, CellWidth, CellHeight)
			dc.Fill()

			if ch == 0 || ch == clearChar {
				continue
			}

			dc.SetColor(palette[attr.Foreground()])
			dc.DrawString(string(charmap.CodePage437.DecodeByte(ch)), px, py+CellHeight-4)
		}
	}

	return dc
}

// Screenshot writes the console contents to w as a PNG image.
func (cons *Ega) Screenshot(w io.Writer) error {
	return cons.Render().EncodePNG(w)
}
