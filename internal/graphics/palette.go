package graphics

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"gochip8/internal/display"
)

// Palette maps framebuffer cells to colors
type Palette struct {
	On         color.RGBA
	Off        color.RGBA
	Brightness float32
}

// DefaultPalette is white on black at full brightness
func DefaultPalette() Palette {
	return Palette{
		On:         color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
		Off:        color.RGBA{A: 0xFF},
		Brightness: 1.0,
	}
}

// NewPalette builds a palette from "#RRGGBB" strings
func NewPalette(on, off string, brightness float32) (Palette, error) {
	fg, err := ParseHexColor(on)
	if err != nil {
		return Palette{}, fmt.Errorf("foreground: %w", err)
	}
	bg, err := ParseHexColor(off)
	if err != nil {
		return Palette{}, fmt.Errorf("background: %w", err)
	}
	return Palette{On: fg, Off: bg, Brightness: brightness}, nil
}

// ParseHexColor parses "#RRGGBB" (the leading # is optional)
func ParseHexColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: want #RRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
}

// Color returns the display color for a cell value
func (p Palette) Color(cell uint8) color.RGBA {
	c := p.Off
	if cell != 0 {
		c = p.On
	}
	return p.apply(c)
}

func (p Palette) apply(c color.RGBA) color.RGBA {
	// A zero palette value means untouched
	if p.Brightness == 0 || p.Brightness == 1.0 {
		return c
	}
	return color.RGBA{
		R: uint8(clamp(float32(c.R)*p.Brightness, 0, 255)),
		G: uint8(clamp(float32(c.G)*p.Brightness, 0, 255)),
		B: uint8(clamp(float32(c.B)*p.Brightness, 0, 255)),
		A: c.A,
	}
}

// Fill paints frame into img, which must be display.Width x display.Height
func (p Palette) Fill(img *image.RGBA, frame *display.Frame) {
	on, off := p.Color(1), p.Color(0)
	for y := 0; y < display.Height; y++ {
		for x := 0; x < display.Width; x++ {
			c := off
			if frame[y*display.Width+x] != 0 {
				c = on
			}
			img.SetRGBA(x, y, c)
		}
	}
}

// Image returns a new RGBA image of frame
func (p Palette) Image(frame *display.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, display.Width, display.Height))
	p.Fill(img, frame)
	return img
}

// clamp limits a value to a range
func clamp(value, min, max float32) float32 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
