//go:build !headless
// +build !headless

package graphics

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/sirupsen/logrus"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"

	"gochip8/internal/display"
)

// EbitengineBackend implements the Backend interface using Ebitengine
type EbitengineBackend struct {
	initialized bool
	config      Config
	game        *EbitengineGame
}

// EbitengineWindow implements the Window interface for Ebitengine
type EbitengineWindow struct {
	backend            *EbitengineBackend
	title              string
	width              int
	height             int
	game               *EbitengineGame
	running            bool
	events             []InputEvent
	emulatorUpdateFunc func() error

	clipboardOnce sync.Once
	clipboardOK   bool
	log           *logrus.Entry
}

// EbitengineGame implements ebiten.Game for the CHIP-8 display
type EbitengineGame struct {
	window       *EbitengineWindow
	frame        display.Frame
	frameImage   *ebiten.Image
	windowWidth  int
	windowHeight int
	palette      Palette

	// Reusable pixel buffer, copied to frameImage when dirty
	imageBuffer *image.RGBA
	dirty       bool

	overlay     bool
	overlayText string
	backdrop    *ebiten.Image
	drawCount   int
}

// ebitenKeys lists every physical key the window reports
var ebitenKeys = map[ebiten.Key]Key{
	ebiten.KeyEscape:     KeyEscape,
	ebiten.KeyEnter:      KeyEnter,
	ebiten.KeySpace:      KeySpace,
	ebiten.KeyArrowUp:    KeyUp,
	ebiten.KeyArrowDown:  KeyDown,
	ebiten.KeyArrowLeft:  KeyLeft,
	ebiten.KeyArrowRight: KeyRight,
	ebiten.Key0:          Key0,
	ebiten.Key1:          Key1,
	ebiten.Key2:          Key2,
	ebiten.Key3:          Key3,
	ebiten.Key4:          Key4,
	ebiten.Key5:          Key5,
	ebiten.Key6:          Key6,
	ebiten.Key7:          Key7,
	ebiten.Key8:          Key8,
	ebiten.Key9:          Key9,
	ebiten.KeyA:          KeyA,
	ebiten.KeyB:          KeyB,
	ebiten.KeyC:          KeyC,
	ebiten.KeyD:          KeyD,
	ebiten.KeyE:          KeyE,
	ebiten.KeyF:          KeyF,
	ebiten.KeyG:          KeyG,
	ebiten.KeyH:          KeyH,
	ebiten.KeyI:          KeyI,
	ebiten.KeyJ:          KeyJ,
	ebiten.KeyK:          KeyK,
	ebiten.KeyL:          KeyL,
	ebiten.KeyM:          KeyM,
	ebiten.KeyN:          KeyN,
	ebiten.KeyO:          KeyO,
	ebiten.KeyP:          KeyP,
	ebiten.KeyQ:          KeyQ,
	ebiten.KeyR:          KeyR,
	ebiten.KeyS:          KeyS,
	ebiten.KeyT:          KeyT,
	ebiten.KeyU:          KeyU,
	ebiten.KeyV:          KeyV,
	ebiten.KeyW:          KeyW,
	ebiten.KeyX:          KeyX,
	ebiten.KeyY:          KeyY,
	ebiten.KeyZ:          KeyZ,
	ebiten.KeyF1:         KeyF1,
	ebiten.KeyF2:         KeyF2,
	ebiten.KeyF3:         KeyF3,
	ebiten.KeyF4:         KeyF4,
	ebiten.KeyF5:         KeyF5,
	ebiten.KeyF6:         KeyF6,
	ebiten.KeyF7:         KeyF7,
	ebiten.KeyF8:         KeyF8,
	ebiten.KeyF9:         KeyF9,
	ebiten.KeyF10:        KeyF10,
	ebiten.KeyF11:        KeyF11,
	ebiten.KeyF12:        KeyF12,
}

// NewEbitengineBackend creates a new Ebitengine graphics backend
func NewEbitengineBackend() Backend {
	return &EbitengineBackend{}
}

// Initialize initializes the Ebitengine backend
func (b *EbitengineBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("Ebitengine backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates an Ebitengine window
func (b *EbitengineBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	if b.config.Headless {
		return nil, fmt.Errorf("cannot create window in headless mode")
	}

	window := newEbitengineWindow(b, title, width, height)
	b.game = window.game

	ebiten.SetWindowTitle(title)
	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetVsyncEnabled(b.config.VSync)

	if b.config.Fullscreen {
		ebiten.SetFullscreen(true)
	}

	ebiten.SetScreenFilterEnabled(b.config.Filter == "linear")

	return window, nil
}

// newEbitengineWindow builds the window and game without touching ebiten
// global state. The frame image is created on the first Draw.
func newEbitengineWindow(b *EbitengineBackend, title string, width, height int) *EbitengineWindow {
	palette := b.config.Palette
	if palette == (Palette{}) {
		palette = DefaultPalette()
	}

	game := &EbitengineGame{
		windowWidth:  width,
		windowHeight: height,
		palette:      palette,
		imageBuffer:  image.NewRGBA(image.Rect(0, 0, display.Width, display.Height)),
		dirty:        true,
		overlay:      b.config.Overlay,
	}
	palette.Fill(game.imageBuffer, &game.frame)

	window := &EbitengineWindow{
		backend: b,
		title:   title,
		width:   width,
		height:  height,
		game:    game,
		running: true,
		log:     logrus.WithField("component", "ebitengine"),
	}
	game.window = window
	return window
}

// Cleanup releases all Ebitengine resources
func (b *EbitengineBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true if running in headless mode
func (b *EbitengineBackend) IsHeadless() bool {
	return b.config.Headless
}

// GetName returns the backend name
func (b *EbitengineBackend) GetName() string {
	return "Ebitengine"
}

// SetTitle sets the window title
func (w *EbitengineWindow) SetTitle(title string) {
	w.title = title
	ebiten.SetWindowTitle(title)
}

// GetSize returns window dimensions
func (w *EbitengineWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *EbitengineWindow) ShouldClose() bool {
	return !w.running
}

// SwapBuffers is handled automatically by Ebitengine
func (w *EbitengineWindow) SwapBuffers() {}

// PollEvents returns the events gathered since the last call
func (w *EbitengineWindow) PollEvents() []InputEvent {
	events := w.events
	w.events = nil
	return events
}

// RenderFrame stores the framebuffer; the next Draw uploads it
func (w *EbitengineWindow) RenderFrame(frame display.Frame) error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}

	w.game.frame = frame
	w.game.palette.Fill(w.game.imageBuffer, &w.game.frame)
	w.game.dirty = true
	return nil
}

// SetOverlayText replaces the status line drawn over the display
func (w *EbitengineWindow) SetOverlayText(s string) {
	if w.game != nil {
		w.game.overlayText = s
	}
}

// Cleanup releases window resources
func (w *EbitengineWindow) Cleanup() error {
	w.running = false
	return nil
}

// Run starts the Ebitengine game loop
func (w *EbitengineWindow) Run() error {
	if w.game == nil {
		return fmt.Errorf("game not initialized")
	}
	return ebiten.RunGame(w.game)
}

// SetEmulatorUpdateFunc sets the function called once per Update
func (w *EbitengineWindow) SetEmulatorUpdateFunc(updateFunc func() error) {
	w.emulatorUpdateFunc = updateFunc
}

// TickDuration is the wall time one Update call stands for
func (w *EbitengineWindow) TickDuration() time.Duration {
	return time.Second / time.Duration(ebiten.TPS())
}

// copyFrameToClipboard puts the text rendering of the current frame on the
// system clipboard
func (w *EbitengineWindow) copyFrameToClipboard() {
	w.clipboardOnce.Do(func() {
		if err := clipboard.Init(); err != nil {
			w.log.WithError(err).Warn("clipboard unavailable")
			return
		}
		w.clipboardOK = true
	})
	if !w.clipboardOK {
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(w.game.frame.String()))
	w.log.Info("frame copied to clipboard")
}

// Update implements ebiten.Game.Update
func (g *EbitengineGame) Update() error {
	if g.window == nil {
		return nil
	}
	if !g.window.running {
		return ebiten.Termination
	}

	g.processInput()

	if g.window.emulatorUpdateFunc != nil {
		if err := g.window.emulatorUpdateFunc(); err != nil {
			g.window.log.WithError(err).Error("emulator update failed")
			g.window.running = false
			return ebiten.Termination
		}
	}

	return nil
}

// Draw implements ebiten.Game.Draw
func (g *EbitengineGame) Draw(screen *ebiten.Image) {
	if g.frameImage == nil {
		g.frameImage = ebiten.NewImage(display.Width, display.Height)
	}
	if g.dirty {
		g.frameImage.WritePixels(g.imageBuffer.Pix)
		g.dirty = false
	}

	screen.Fill(color.RGBA{A: 0xFF})

	scale, offsetX, offsetY := fitScale(g.windowWidth, g.windowHeight)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.GeoM.Translate(offsetX, offsetY)
	screen.DrawImage(g.frameImage, op)

	if g.overlay && g.overlayText != "" {
		g.drawOverlay(screen)
	}

	g.drawCount++
	if g.drawCount%1800 == 0 {
		g.window.log.WithFields(logrus.Fields{
			"frame": g.drawCount,
			"scale": scale,
		}).Debug("drawing frame")
	}
}

func (g *EbitengineGame) drawOverlay(screen *ebiten.Image) {
	face := basicfont.Face7x13
	bounds := text.BoundString(face, g.overlayText)
	x, y := 4, 4-bounds.Min.Y

	if g.backdrop == nil {
		g.backdrop = ebiten.NewImage(1, 1)
		g.backdrop.Fill(color.RGBA{A: 0xA0})
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(bounds.Dx()+4), float64(bounds.Dy()+4))
	op.GeoM.Translate(2, 2)
	screen.DrawImage(g.backdrop, op)
	text.Draw(screen, g.overlayText, face, x, y, color.RGBA{R: 0x00, G: 0xDC, B: 0x5A, A: 0xFF})
}

// Layout implements ebiten.Game.Layout
func (g *EbitengineGame) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	g.windowWidth = outsideWidth
	g.windowHeight = outsideHeight
	return outsideWidth, outsideHeight
}

// fitScale returns the largest aspect-preserving scale of the 64x32 display
// that fits the window, and the offsets that center it
func fitScale(windowWidth, windowHeight int) (scale, offsetX, offsetY float64) {
	scaleX := float64(windowWidth) / float64(display.Width)
	scaleY := float64(windowHeight) / float64(display.Height)

	scale = scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	offsetX = (float64(windowWidth) - float64(display.Width)*scale) / 2
	offsetY = (float64(windowHeight) - float64(display.Height)*scale) / 2
	return scale, offsetX, offsetY
}

// processInput turns key transitions into events
func (g *EbitengineGame) processInput() {
	for ebitenKey, key := range ebitenKeys {
		if inpututil.IsKeyJustPressed(ebitenKey) {
			g.window.pushKey(key, true)
		} else if inpututil.IsKeyJustReleased(ebitenKey) {
			g.window.pushKey(key, false)
		}
	}
}

func (w *EbitengineWindow) pushKey(key Key, pressed bool) {
	if key == KeyF2 && pressed {
		w.copyFrameToClipboard()
	}
	w.events = append(w.events, InputEvent{
		Type:    InputEventTypeKey,
		Key:     key,
		Pressed: pressed,
	})
}
