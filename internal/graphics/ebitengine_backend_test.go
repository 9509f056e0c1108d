//go:build !headless
// +build !headless

package graphics

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochip8/internal/display"
)

func TestEbitengineBackend_Initialize(t *testing.T) {
	backend := NewEbitengineBackend()

	require.NoError(t, backend.Initialize(Config{WindowTitle: "Test Window", Filter: "nearest"}))
	assert.True(t, backend.(*EbitengineBackend).initialized)
	assert.Equal(t, "Test Window", backend.(*EbitengineBackend).config.WindowTitle)
	assert.Error(t, backend.Initialize(Config{}), "double initialization")
	assert.Equal(t, "Ebitengine", backend.GetName())
}

func TestEbitengineBackend_CreateWindowRequiresInit(t *testing.T) {
	backend := NewEbitengineBackend()

	_, err := backend.CreateWindow("x", 640, 320)

	assert.Error(t, err)
}

func TestEbitengineBackend_RefusesHeadlessConfig(t *testing.T) {
	backend := NewEbitengineBackend()
	require.NoError(t, backend.Initialize(Config{Headless: true}))

	_, err := backend.CreateWindow("x", 640, 320)

	assert.Error(t, err)
	assert.True(t, backend.IsHeadless())
}

func TestFitScale(t *testing.T) {
	scale, ox, oy := fitScale(640, 320)
	assert.Equal(t, 10.0, scale)
	assert.Zero(t, ox)
	assert.Zero(t, oy)

	scale, ox, oy = fitScale(640, 640)
	assert.Equal(t, 10.0, scale)
	assert.Zero(t, ox)
	assert.Equal(t, 160.0, oy, "letterboxed vertically")
}

func TestEbitengineWindow_RenderFrameUsesPalette(t *testing.T) {
	b := &EbitengineBackend{config: Config{Palette: Palette{
		On:  color.RGBA{G: 0xFF, A: 0xFF},
		Off: color.RGBA{B: 0x20, A: 0xFF},
	}}}
	w := newEbitengineWindow(b, "test", 640, 320)

	var frame display.Frame
	frame.DrawSprite(5, 6, []uint8{0x80})
	require.NoError(t, w.RenderFrame(frame))

	assert.True(t, w.game.dirty)
	assert.Equal(t, color.RGBA{G: 0xFF, A: 0xFF}, w.game.imageBuffer.RGBAAt(5, 6))
	assert.Equal(t, color.RGBA{B: 0x20, A: 0xFF}, w.game.imageBuffer.RGBAAt(0, 0))
}

func TestEbitengineWindow_DefaultPalette(t *testing.T) {
	w := newEbitengineWindow(&EbitengineBackend{}, "test", 640, 320)

	assert.Equal(t, DefaultPalette(), w.game.palette)
}

func TestEbitengineWindow_PollEventsDrains(t *testing.T) {
	w := newEbitengineWindow(&EbitengineBackend{}, "test", 640, 320)

	w.pushKey(KeyQ, true)
	w.pushKey(KeyQ, false)

	events := w.PollEvents()
	require.Len(t, events, 2)
	assert.True(t, events[0].Pressed)
	assert.False(t, events[1].Pressed)
	assert.Empty(t, w.PollEvents())
}

func TestEbitengineWindow_Overlay(t *testing.T) {
	w := newEbitengineWindow(&EbitengineBackend{config: Config{Overlay: true}}, "test", 640, 320)

	w.SetOverlayText("PAUSED")

	assert.True(t, w.game.overlay)
	assert.Equal(t, "PAUSED", w.game.overlayText)
}

func TestEbitengineWindow_CleanupClosesWindow(t *testing.T) {
	w := newEbitengineWindow(&EbitengineBackend{}, "test", 640, 320)

	require.NoError(t, w.Cleanup())

	assert.True(t, w.ShouldClose())
}

func TestEbitengineKeys_AreUnique(t *testing.T) {
	seen := map[Key]bool{}
	for _, k := range ebitenKeys {
		assert.Falsef(t, seen[k], "%s mapped twice", k)
		seen[k] = true
	}
	assert.Len(t, seen, int(keyCount)-1)
}
