// Package display holds the 64x32 monochrome framebuffer.
package display

import "strings"

const (
	// Width is the framebuffer width in pixels
	Width = 64
	// Height is the framebuffer height in pixels
	Height = 32
	// Size is the number of cells in a frame
	Size = Width * Height

	// SpriteWidth is the fixed width of a sprite row in pixels
	SpriteWidth = 8
)

// Frame is a row-major grid of pixels, each 0 or 1
type Frame [Size]uint8

// Clear zero-fills the frame
func (f *Frame) Clear() {
	*f = Frame{}
}

// Pixel returns the cell at (x, y), or 0 outside the grid
func (f *Frame) Pixel(x, y int) uint8 {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return 0
	}
	return f[y*Width+x]
}

// DrawSprite XORs an 8-pixel-wide sprite onto the frame, one byte per row,
// most significant bit leftmost.
//
// Placement clips: an origin past the right or bottom edge restarts at 0,
// and cells that fall beyond the edges are skipped. The returned flag
// follows the last set bit that was drawn: true if that cell was lit
// before the XOR.
func (f *Frame) DrawSprite(x, y int, rows []uint8) bool {
	if x >= Width {
		x = 0
	}
	if y >= Height {
		y = 0
	}

	collision := false
	for row, bits := range rows {
		py := y + row
		if py >= Height {
			break
		}
		for bit := 0; bit < SpriteWidth; bit++ {
			px := x + bit
			if px >= Width {
				break
			}
			if bits&(0x80>>bit) == 0 {
				continue
			}
			cell := &f[py*Width+px]
			collision = *cell == 1
			*cell ^= 1
		}
	}
	return collision
}

// Lit returns the number of cells set to 1
func (f *Frame) Lit() int {
	n := 0
	for _, p := range f {
		n += int(p)
	}
	return n
}

// Text renders the frame with one rune per cell and a newline per row
func (f *Frame) Text(on, off rune) string {
	var sb strings.Builder
	sb.Grow(Size*3 + Height)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if f[y*Width+x] != 0 {
				sb.WriteRune(on)
			} else {
				sb.WriteRune(off)
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// String renders the frame using '#' and '.'
func (f *Frame) String() string {
	return f.Text('#', '.')
}
