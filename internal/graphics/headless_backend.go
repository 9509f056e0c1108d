package graphics

import (
	"fmt"
	"sync"

	"gochip8/internal/display"
)

// FrameSink receives every frame a headless window renders. n counts from 1.
type FrameSink func(n int, frame display.Frame) error

// HeadlessBackend implements the Backend interface for headless operation
type HeadlessBackend struct {
	initialized bool
	config      Config
}

// HeadlessWindow keeps the last rendered frame in memory. Events queued with
// QueueEvent are returned by the next PollEvents.
type HeadlessWindow struct {
	mu         sync.Mutex
	title      string
	width      int
	height     int
	running    bool
	frameCount int
	lastFrame  display.Frame
	sink       FrameSink
	events     []InputEvent
}

// NewHeadlessBackend creates a new headless graphics backend
func NewHeadlessBackend() Backend {
	return &HeadlessBackend{}
}

// Initialize initializes the headless backend
func (b *HeadlessBackend) Initialize(config Config) error {
	if b.initialized {
		return fmt.Errorf("headless backend already initialized")
	}

	b.config = config
	b.initialized = true

	return nil
}

// CreateWindow creates a headless "window" (no actual window)
func (b *HeadlessBackend) CreateWindow(title string, width, height int) (Window, error) {
	if !b.initialized {
		return nil, fmt.Errorf("backend not initialized")
	}

	return &HeadlessWindow{
		title:   title,
		width:   width,
		height:  height,
		running: true,
	}, nil
}

// Cleanup releases all headless resources
func (b *HeadlessBackend) Cleanup() error {
	b.initialized = false
	return nil
}

// IsHeadless returns true (this is a headless backend)
func (b *HeadlessBackend) IsHeadless() bool {
	return true
}

// GetName returns the backend name
func (b *HeadlessBackend) GetName() string {
	return "Headless"
}

// SetTitle sets the window title (for logging purposes)
func (w *HeadlessWindow) SetTitle(title string) {
	w.mu.Lock()
	w.title = title
	w.mu.Unlock()
}

// GetSize returns window dimensions
func (w *HeadlessWindow) GetSize() (width, height int) {
	return w.width, w.height
}

// ShouldClose returns true if window should close
func (w *HeadlessWindow) ShouldClose() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.running
}

// SwapBuffers does nothing in headless mode
func (w *HeadlessWindow) SwapBuffers() {}

// PollEvents drains the queued events
func (w *HeadlessWindow) PollEvents() []InputEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := w.events
	w.events = nil
	return events
}

// QueueEvent adds an event for the next PollEvents
func (w *HeadlessWindow) QueueEvent(event InputEvent) {
	w.mu.Lock()
	w.events = append(w.events, event)
	w.mu.Unlock()
}

// RenderFrame records the frame and hands it to the sink, if any
func (w *HeadlessWindow) RenderFrame(frame display.Frame) error {
	w.mu.Lock()
	w.frameCount++
	w.lastFrame = frame
	n, sink := w.frameCount, w.sink
	w.mu.Unlock()

	if sink != nil {
		return sink(n, frame)
	}
	return nil
}

// Cleanup releases window resources
func (w *HeadlessWindow) Cleanup() error {
	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

// SetFrameSink installs a callback for every rendered frame
func (w *HeadlessWindow) SetFrameSink(sink FrameSink) {
	w.mu.Lock()
	w.sink = sink
	w.mu.Unlock()
}

// GetFrameCount returns the current frame count
func (w *HeadlessWindow) GetFrameCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frameCount
}

// LastFrame returns the most recently rendered frame
func (w *HeadlessWindow) LastFrame() display.Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastFrame
}
