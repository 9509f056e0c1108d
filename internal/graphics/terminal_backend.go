package graphics

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"gochip8/internal/display"
)

// Terminals only report key presses, so a pressed key is held for this many
// polls after its last repeat.
const terminalHoldPolls = 8

// TerminalBackend implements the Backend interface for terminal-based rendering
type TerminalBackend struct {
	initialized bool
	config      Config
}

// TerminalWindow draws the framebuffer with half-block characters and reads
// keys from stdin in raw mode
type TerminalWindow struct {
	title   string
	width   int
	height  int
	running bool

	out   io.Writer
	input chan []byte
	held  map[Key]int

	fd        int
	oldState  *term.State
	sizeWarn  sync.Once
	closeOnce sync.Once
	log       *logrus.Entry
}

// NewTerminalBackend creates a new terminal graphics backend
func NewTerminalBackend() Backend {
	return &TerminalBackend{}
}

// Initialize initializes the terminal backend
func (b *TerminalBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("terminal backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow puts stdin in raw mode and starts reading keys
func (b *TerminalBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("stdin is not a terminal")
	}

	w := newTerminalWindow(os.Stdout, title, width, height)
	w.fd = fd

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("failed to set raw mode: %w", err)
	}
	w.oldState = oldState

	go readTerminal(os.Stdin, w.input)

	// hide cursor, clear screen
	fmt.Fprint(w.out, "\033[?25l\033[2J")
	w.SetTitle(title)
	return w, nil
}

func newTerminalWindow(out io.Writer, title string, width, height int) *TerminalWindow {
	return &TerminalWindow{
		title:   title,
		width:   width,
		height:  height,
		running: true,
		out:     out,
		input:   make(chan []byte, 64),
		held:    make(map[Key]int),
		fd:      -1,
		log:     logrus.WithField("component", "terminal"),
	}
}

// readTerminal forwards raw input chunks until the reader fails. A blocked
// Read cannot be interrupted, so the goroutine lives until the next byte or
// process exit.
func readTerminal(r io.Reader, ch chan<- []byte) {
	buf := make([]byte, 32)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			select {
			case ch <- chunk:
			default:
				// drop input while the emulator is behind
			}
		}
		if err != nil {
			return
		}
	}
}

// Cleanup releases all terminal resources
func (b *TerminalBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns false (terminal has basic output)
func (b *TerminalBackend) IsHeadless() bool {
	return false
}

// GetName returns the backend name
func (b *TerminalBackend) GetName() string {
	return "Terminal"
}

// SetTitle sets the terminal title
func (w *TerminalWindow) SetTitle(title string) {
	w.title = title
	fmt.Fprintf(w.out, "\033]0;%s\007", title)
}

// GetSize returns window dimensions
func (w *TerminalWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *TerminalWindow) ShouldClose() bool {
	return !w.running
}

// SwapBuffers does nothing for terminal
func (w *TerminalWindow) SwapBuffers() {}

// PollEvents turns buffered input into key events. A key is pressed on its
// first byte and released once it stops repeating.
func (w *TerminalWindow) PollEvents() []InputEvent {
	var events []InputEvent
	seen := make(map[Key]bool)

	for drained := false; !drained; {
		select {
		case chunk := <-w.input:
			keys, quit := parseTerminalInput(chunk)
			if quit {
				events = append(events, InputEvent{Type: InputEventTypeQuit, Pressed: true})
			}
			for _, k := range keys {
				seen[k] = true
			}
		default:
			drained = true
		}
	}

	for k := range seen {
		if _, down := w.held[k]; !down {
			events = append(events, InputEvent{Type: InputEventTypeKey, Key: k, Pressed: true})
		}
		w.held[k] = terminalHoldPolls
	}
	for k, left := range w.held {
		if seen[k] {
			continue
		}
		if left <= 1 {
			delete(w.held, k)
			events = append(events, InputEvent{Type: InputEventTypeKey, Key: k, Pressed: false})
			continue
		}
		w.held[k] = left - 1
	}

	return events
}

// parseTerminalInput decodes raw-mode bytes. Ctrl-C reports quit.
func parseTerminalInput(b []byte) (keys []Key, quit bool) {
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case c == 0x03:
			quit = true
		case c == 0x1B:
			// CSI arrow keys: ESC [ A-D
			if i+2 < len(b) && b[i+1] == '[' {
				switch b[i+2] {
				case 'A':
					keys = append(keys, KeyUp)
				case 'B':
					keys = append(keys, KeyDown)
				case 'C':
					keys = append(keys, KeyRight)
				case 'D':
					keys = append(keys, KeyLeft)
				}
				i += 2
				continue
			}
			keys = append(keys, KeyEscape)
		case c == '\r' || c == '\n':
			keys = append(keys, KeyEnter)
		case c == ' ':
			keys = append(keys, KeySpace)
		case c >= '0' && c <= '9':
			keys = append(keys, Key0+Key(c-'0'))
		case c >= 'a' && c <= 'z':
			keys = append(keys, KeyA+Key(c-'a'))
		case c >= 'A' && c <= 'Z':
			keys = append(keys, KeyA+Key(c-'A'))
		}
	}
	return keys, quit
}

// RenderFrame draws two framebuffer rows per text line
func (w *TerminalWindow) RenderFrame(frame display.Frame) error {
	if w.fd >= 0 {
		if cols, rows, err := term.GetSize(w.fd); err == nil && (cols < display.Width || rows < display.Height/2) {
			w.sizeWarn.Do(func() {
				w.log.WithFields(logrus.Fields{"cols": cols, "rows": rows}).Warn("terminal smaller than 64x16, output will wrap")
			})
		}
	}

	_, err := io.WriteString(w.out, renderHalfBlocks(&frame))
	return err
}

func renderHalfBlocks(frame *display.Frame) string {
	var sb strings.Builder
	sb.WriteString("\033[H")
	for y := 0; y < display.Height; y += 2 {
		for x := 0; x < display.Width; x++ {
			top := frame.Pixel(x, y) != 0
			bottom := frame.Pixel(x, y+1) != 0
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteByte(' ')
			}
		}
		// raw mode does not translate \n
		sb.WriteString("\r\n")
	}
	return sb.String()
}

// Cleanup restores the terminal
func (w *TerminalWindow) Cleanup() error {
	var err error
	w.closeOnce.Do(func() {
		w.running = false
		fmt.Fprint(w.out, "\033[?25h")
		if w.oldState != nil {
			err = term.Restore(w.fd, w.oldState)
			w.oldState = nil
		}
	})
	return err
}
