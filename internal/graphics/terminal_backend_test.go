package graphics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochip8/internal/display"
)

func TestParseTerminalInput(t *testing.T) {
	keys, quit := parseTerminalInput([]byte("qW7 \r\x1b[A\x1b[D"))

	assert.False(t, quit)
	assert.Equal(t, []Key{KeyQ, KeyW, Key7, KeySpace, KeyEnter, KeyUp, KeyLeft}, keys)
}

func TestParseTerminalInput_EscapeAndCtrlC(t *testing.T) {
	keys, quit := parseTerminalInput([]byte{0x1B})
	assert.Equal(t, []Key{KeyEscape}, keys)
	assert.False(t, quit)

	keys, quit = parseTerminalInput([]byte{0x03})
	assert.Empty(t, keys)
	assert.True(t, quit)
}

func TestRenderHalfBlocks(t *testing.T) {
	var frame display.Frame
	frame.DrawSprite(0, 0, []uint8{0xC0, 0x40})

	out := renderHalfBlocks(&frame)

	require.True(t, strings.HasPrefix(out, "\033[H"))
	lines := strings.Split(strings.TrimPrefix(out, "\033[H"), "\r\n")
	require.Len(t, lines, display.Height/2+1)
	first := []rune(lines[0])
	require.Len(t, first, display.Width)
	assert.Equal(t, '▀', first[0])
	assert.Equal(t, '█', first[1])
	assert.Equal(t, ' ', first[2])
}

func TestTerminalWindow_RenderFrame(t *testing.T) {
	var buf bytes.Buffer
	w := newTerminalWindow(&buf, "test", 64, 32)

	require.NoError(t, w.RenderFrame(display.Frame{}))

	assert.Contains(t, buf.String(), "\033[H")
}

func TestTerminalWindow_ShouldHoldAndReleaseKeys(t *testing.T) {
	w := newTerminalWindow(&bytes.Buffer{}, "test", 64, 32)

	w.input <- []byte("q")
	events := w.PollEvents()
	require.Len(t, events, 1)
	assert.Equal(t, InputEvent{Type: InputEventTypeKey, Key: KeyQ, Pressed: true}, events[0])

	// a repeat keeps the key down without a second press
	w.input <- []byte("q")
	assert.Empty(t, w.PollEvents())

	var released []InputEvent
	for i := 0; i < terminalHoldPolls; i++ {
		released = append(released, w.PollEvents()...)
	}
	require.Len(t, released, 1)
	assert.Equal(t, InputEvent{Type: InputEventTypeKey, Key: KeyQ, Pressed: false}, released[0])
}

func TestTerminalWindow_CtrlCQuits(t *testing.T) {
	w := newTerminalWindow(&bytes.Buffer{}, "test", 64, 32)

	w.input <- []byte{0x03}
	events := w.PollEvents()

	require.Len(t, events, 1)
	assert.Equal(t, InputEventTypeQuit, events[0].Type)
}

func TestTerminalWindow_Cleanup(t *testing.T) {
	var buf bytes.Buffer
	w := newTerminalWindow(&buf, "test", 64, 32)

	require.NoError(t, w.Cleanup())
	require.NoError(t, w.Cleanup())

	assert.True(t, w.ShouldClose())
	assert.Equal(t, "\033[?25h", buf.String(), "cursor restored once")
}

func TestReadTerminal_ShouldForwardChunks(t *testing.T) {
	ch := make(chan []byte, 4)

	readTerminal(strings.NewReader("ab"), ch)

	require.Len(t, ch, 1)
	assert.Equal(t, []byte("ab"), <-ch)
}
