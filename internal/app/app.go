package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"gochip8/internal/debug"
	"gochip8/internal/display"
	"gochip8/internal/graphics"
	"gochip8/internal/input"
	"gochip8/internal/script"
)

// Application wires the emulator to a graphics backend, the keypad and the
// optional frame dumper and Lua script.
type Application struct {
	// Graphics backend
	graphicsBackend graphics.Backend
	window          graphics.Window

	// Application state
	config   *Config
	emulator *Emulator
	keypad   *input.Keypad
	keyMap   input.KeyMap
	pauseKey graphics.Key
	quitKey  graphics.Key

	dumper *debug.FrameDumper
	script *script.Runner
	log    *logrus.Entry

	// Control flags
	running     atomic.Bool
	initialized bool
	headless    bool
	runErr      error

	// Performance tracking
	renderedFrames    uint64
	startTime         time.Time
	lastFPSTime       time.Time
	framesAtLastFPS   uint64
	currentFPS        float64
	lastStatusOverlay string

	programPath string
}

// overlayWindow is implemented by windows that can draw a status line
type overlayWindow interface {
	SetOverlayText(s string)
}

// ApplicationError represents application-specific errors
type ApplicationError struct {
	Component string
	Operation string
	Err       error
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("Application %s error during %s: %v", e.Component, e.Operation, e.Err)
}

func (e *ApplicationError) Unwrap() error {
	return e.Err
}

// NewApplication creates a new emulator application
func NewApplication(configPath string) (*Application, error) {
	return NewApplicationWithMode(configPath, false)
}

// NewApplicationWithMode creates a new emulator application with optional headless mode
func NewApplicationWithMode(configPath string, headless bool) (*Application, error) {
	config := NewConfig()
	if configPath != "" {
		if err := config.LoadFromFile(configPath); err != nil {
			logrus.WithError(err).Warnf("[APP] could not load config from %s, using defaults", configPath)
			config = NewConfig()
		}
	}
	return NewApplicationWithConfig(config, headless)
}

// NewApplicationWithConfig creates an application from an already loaded
// configuration. Out-of-range values are repaired first.
func NewApplicationWithConfig(config *Config, headless bool) (*Application, error) {
	if err := config.validate(); err != nil {
		return nil, &ApplicationError{Component: "config", Operation: "validate", Err: err}
	}

	app := &Application{
		config:      config,
		headless:    headless,
		startTime:   time.Now(),
		lastFPSTime: time.Now(),
		log:         logrus.WithField("component", "app"),
	}
	app.ApplyDebugSettings()

	if err := app.initializeComponents(headless); err != nil {
		return nil, &ApplicationError{
			Component: "initialization",
			Operation: "component setup",
			Err:       err,
		}
	}

	return app, nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents(headless bool) error {
	var err error
	app.keypad = input.NewKeypad()
	app.keypad.SetLogger(logrus.WithField("component", "input"))

	if app.keyMap, err = app.config.KeyMap(); err != nil {
		return err
	}
	app.pauseKey, _ = graphics.ParseKey(app.config.Input.PauseKey)
	app.quitKey, _ = graphics.ParseKey(app.config.Input.QuitKey)

	if err := app.initializeGraphicsBackend(headless); err != nil {
		return fmt.Errorf("failed to initialize graphics backend: %w", err)
	}

	if app.config.Debug.DumpFrames {
		app.dumper = debug.NewFrameDumper(app.config.Debug.DumpDir)
		app.dumper.SetDumpInterval(app.config.Debug.DumpInterval)
		app.dumper.SetMaxDumps(app.config.Debug.MaxDumps)
		if palette, err := app.config.Palette(); err == nil {
			app.dumper.SetColors(palette.Color(1), palette.Color(0))
		}
		if err := app.dumper.Enable(); err != nil {
			return err
		}
	}

	app.initialized = true
	return nil
}

// initializeGraphicsBackend initializes the graphics backend based on configuration
func (app *Application) initializeGraphicsBackend(headless bool) error {
	backendType := graphics.BackendType(app.config.Video.Backend)
	if headless {
		backendType = graphics.BackendHeadless
	}

	var err error
	app.graphicsBackend, err = graphics.CreateBackend(backendType)
	if err != nil {
		return fmt.Errorf("failed to create graphics backend: %w", err)
	}

	palette, err := app.config.Palette()
	if err != nil {
		return err
	}

	graphicsConfig := graphics.Config{
		WindowTitle:  "gochip8 - Go CHIP-8 Emulator",
		WindowWidth:  app.config.Window.Width,
		WindowHeight: app.config.Window.Height,
		Fullscreen:   app.config.Window.Fullscreen,
		VSync:        app.config.Video.VSync,
		Filter:       app.config.Video.Filter,
		Palette:      palette,
		Overlay:      app.config.Video.Overlay,
		Headless:     backendType == graphics.BackendHeadless,
		Debug:        app.log.Logger.IsLevelEnabled(logrus.DebugLevel),
	}

	if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
		// If Ebitengine fails (e.g., no DISPLAY), fallback to headless mode
		if backendType != graphics.BackendEbitengine {
			return fmt.Errorf("failed to initialize graphics backend: %w", err)
		}
		app.log.WithError(err).Warn("[APP] Ebitengine backend failed, falling back to headless mode")
		app.graphicsBackend = graphics.NewHeadlessBackend()
		graphicsConfig.Headless = true
		if err := app.graphicsBackend.Initialize(graphicsConfig); err != nil {
			return fmt.Errorf("failed to initialize fallback headless backend: %w", err)
		}
	}
	app.headless = app.graphicsBackend.IsHeadless()

	app.window, err = app.graphicsBackend.CreateWindow(
		graphicsConfig.WindowTitle,
		graphicsConfig.WindowWidth,
		graphicsConfig.WindowHeight,
	)
	if err != nil {
		return fmt.Errorf("failed to create window: %w", err)
	}

	if hw, ok := graphics.AsHeadlessWindow(app.window); ok {
		hw.SetFrameSink(func(n int, frame display.Frame) error {
			return app.onFrame(uint64(n), frame)
		})
	}

	app.log.WithField("backend", app.graphicsBackend.GetName()).Debug("[APP] graphics backend ready")
	return nil
}

// LoadROM loads a program file into a fresh emulator. Load failures are
// returned as *IOFault.
func (app *Application) LoadROM(romPath string) error {
	program, err := LoadProgram(romPath)
	if err != nil {
		return err
	}
	return app.LoadProgramData(filepath.Base(romPath), program, romPath)
}

// LoadProgramData starts the emulator on an in-memory program image
func (app *Application) LoadProgramData(name string, program []byte, path string) error {
	if !app.initialized {
		return errors.New("application not initialized")
	}

	emulator, err := NewEmulator(program, app.keypad, app.config)
	if err != nil {
		return &ApplicationError{Component: "emulator", Operation: "load program", Err: err}
	}
	app.emulator = emulator
	app.programPath = path

	app.window.SetTitle(fmt.Sprintf("gochip8 - %s", name))

	if app.config.Paths.Script != "" {
		if err := app.loadScript(app.config.Paths.Script); err != nil {
			return &ApplicationError{Component: "script", Operation: "load", Err: err}
		}
	}

	app.emulator.Start()
	app.log.WithFields(logrus.Fields{"program": name, "size": len(program)}).Info("[APP] program loaded")
	return nil
}

func (app *Application) loadScript(path string) error {
	if app.script != nil {
		app.script.Close()
	}
	app.script = script.NewRunner(app.emulator, logrus.WithField("component", "script"))
	return app.script.LoadFile(path)
}

// Run starts the main application loop and returns when it stops
func (app *Application) Run() error {
	if !app.initialized {
		return errors.New("application not initialized")
	}
	if app.emulator == nil {
		return errors.New("no program loaded")
	}

	app.running.Store(true)
	app.startTime = time.Now()
	app.lastFPSTime = time.Now()

	app.log.WithField("backend", app.graphicsBackend.GetName()).Info("[APP] starting emulator")

	if ebitengineWindow, ok := graphics.AsEbitengineWindow(app.window); ok {
		tick := ebitengineWindow.TickDuration()
		ebitengineWindow.SetEmulatorUpdateFunc(func() error {
			if !app.IsRunning() {
				return app.window.Cleanup()
			}
			if err := app.tick(tick); err != nil {
				app.runErr = err
				return err
			}
			return nil
		})
		if err := ebitengineWindow.Run(); err != nil {
			return &ApplicationError{Component: "graphics", Operation: "run", Err: err}
		}
		app.Stop()
		return app.runErr
	}

	return app.runLoop()
}

// runLoop drives terminal and headless windows from a ticker. Headless runs
// advance by exactly one frame period per tick so scripts see the same
// machine state on every run.
func (app *Application) runLoop() error {
	period := app.emulator.FramePeriod()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for app.IsRunning() {
		now := <-ticker.C
		elapsed := now.Sub(last)
		last = now
		if app.headless {
			elapsed = period
		}

		if err := app.tick(elapsed); err != nil {
			app.Stop()
			return err
		}
	}

	app.log.Debug("[APP] main loop ended")
	return nil
}

// tick handles one loop iteration: input, emulation, then rendering when a
// frame completed
func (app *Application) tick(elapsed time.Duration) error {
	app.processInput()

	frames, err := app.emulator.Advance(elapsed)
	if err != nil {
		if app.dumper != nil {
			if dumpErr := app.dumper.DumpState(app.emulator.MachineState(), app.emulator.GetFrameCount()); dumpErr != nil {
				app.log.WithError(dumpErr).Warn("[APP] state dump failed")
			}
		}
		if app.headless {
			return &ApplicationError{Component: "emulator", Operation: "execute", Err: err}
		}
		fmt.Printf("⛔ Machine halted: %v\n", err)
	}

	if frames > 0 {
		if err := app.render(); err != nil {
			return err
		}
	}
	app.updatePerformanceMetrics()

	if limit := app.config.Emulation.MaxFrames; limit > 0 && app.renderedFrames >= uint64(limit) {
		app.log.WithField("frames", app.renderedFrames).Info("[APP] frame limit reached")
		app.Stop()
	}
	if app.script != nil && app.script.Stopped() {
		app.log.Info("[APP] script requested stop")
		app.Stop()
	}
	if app.window.ShouldClose() {
		app.Stop()
	}
	return nil
}

// processInput routes window events to the keypad and the emulator controls
func (app *Application) processInput() {
	for _, event := range app.window.PollEvents() {
		switch event.Type {
		case graphics.InputEventTypeQuit:
			app.Stop()
		case graphics.InputEventTypeKey:
			if app.handleSpecialInput(event) {
				continue
			}
			app.handleKeyInput(event)
		}
	}
}

// handleSpecialInput handles the quit, pause, reset and screenshot keys.
// It returns true when the event was consumed.
func (app *Application) handleSpecialInput(event graphics.InputEvent) bool {
	switch event.Key {
	case app.quitKey:
		if event.Pressed {
			fmt.Println("👋 Shutting down emulator...")
			app.Stop()
		}
		return true
	case app.pauseKey:
		if event.Pressed {
			if app.TogglePause() {
				fmt.Println("⏸️  Paused")
			} else {
				fmt.Println("▶️  Resumed")
			}
		}
		return true
	case graphics.KeyF5:
		if event.Pressed {
			fmt.Println("🔄 Reset")
			app.Reset()
		}
		return true
	case graphics.KeyF12:
		if event.Pressed {
			path, err := app.SaveScreenshot()
			if err != nil {
				app.log.WithError(err).Error("[APP] screenshot failed")
			} else {
				fmt.Printf("📸 Screenshot saved to %s\n", path)
			}
		}
		return true
	}
	return false
}

// handleKeyInput forwards mapped keys to the keypad
func (app *Application) handleKeyInput(event graphics.InputEvent) {
	key, ok := app.keyMap.Lookup(event.Key.String())
	if !ok {
		return
	}
	if err := app.keypad.Set(key, event.Pressed); err != nil {
		app.log.WithError(err).Warn("[INPUT] dropped key event")
	}
}

// render renders the current frame
func (app *Application) render() error {
	frame := app.emulator.Frame()
	app.renderedFrames++

	if ow, ok := app.window.(overlayWindow); ok {
		if status := app.emulator.StatusText(); status != app.lastStatusOverlay {
			ow.SetOverlayText(status)
			app.lastStatusOverlay = status
		}
	}

	if err := app.window.RenderFrame(frame); err != nil {
		return fmt.Errorf("failed to render frame: %w", err)
	}
	app.window.SwapBuffers()

	// Headless windows call onFrame through their frame sink
	if !app.headless {
		return app.onFrame(app.renderedFrames, frame)
	}
	return nil
}

// onFrame runs the per-frame hooks: frame dumps and the script
func (app *Application) onFrame(n uint64, frame display.Frame) error {
	if app.dumper != nil {
		if err := app.dumper.DumpFrame(&frame, n, app.config.Debug.DumpPNG); err != nil {
			app.log.WithError(err).Warn("[APP] frame dump failed")
		}
	}
	if app.script != nil && !app.script.Stopped() {
		if err := app.script.OnFrame(n); err != nil {
			return &ApplicationError{Component: "script", Operation: "on_frame", Err: err}
		}
	}
	return nil
}

// updatePerformanceMetrics recomputes the FPS once per second
func (app *Application) updatePerformanceMetrics() {
	now := time.Now()
	elapsed := now.Sub(app.lastFPSTime)
	if elapsed < time.Second {
		return
	}

	app.currentFPS = float64(app.renderedFrames-app.framesAtLastFPS) / elapsed.Seconds()
	app.framesAtLastFPS = app.renderedFrames
	app.lastFPSTime = now

	stats := app.emulator.GetStats()
	app.log.WithFields(logrus.Fields{
		"fps":      fmt.Sprintf("%.1f", app.currentFPS),
		"executed": stats.Executed,
		"faults":   stats.DecodeFaults,
	}).Debug("[APP] performance")
}

// SaveScreenshot writes the current frame as a PNG into paths.screenshots
func (app *Application) SaveScreenshot() (string, error) {
	if app.emulator == nil {
		return "", errors.New("no program loaded")
	}

	dumper := debug.NewFrameDumper(app.config.Paths.Screenshots)
	if palette, err := app.config.Palette(); err == nil {
		dumper.SetColors(palette.Color(1), palette.Color(0))
	}
	if err := dumper.Enable(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("gochip8_%s_%06d.png", time.Now().Format("20060102_150405"), app.renderedFrames)
	path := filepath.Join(app.config.Paths.Screenshots, name)
	frame := app.emulator.Frame()
	if err := dumper.SavePNG(&frame, path); err != nil {
		return "", err
	}
	return path, nil
}

// Stop stops the application. It is safe to call from any goroutine.
func (app *Application) Stop() {
	app.running.Store(false)
}

// Pause pauses the emulator
func (app *Application) Pause() {
	if app.emulator != nil {
		app.emulator.Pause()
	}
}

// Resume resumes the emulator
func (app *Application) Resume() {
	if app.emulator != nil {
		app.emulator.Resume()
	}
}

// TogglePause toggles pause state and returns the new state
func (app *Application) TogglePause() bool {
	if app.emulator == nil {
		return false
	}
	return app.emulator.TogglePause()
}

// Reset restarts the loaded program
func (app *Application) Reset() {
	if app.emulator != nil {
		app.emulator.Reset()
	}
}

// IsRunning returns whether the application is running
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// IsPaused returns whether the emulator is paused
func (app *Application) IsPaused() bool {
	return app.emulator != nil && app.emulator.IsPaused()
}

// GetFPS returns the current FPS
func (app *Application) GetFPS() float64 {
	return app.currentFPS
}

// GetFrameCount returns the number of rendered frames
func (app *Application) GetFrameCount() uint64 {
	return app.renderedFrames
}

// GetUptime returns the application uptime
func (app *Application) GetUptime() time.Duration {
	return time.Since(app.startTime)
}

// GetROMPath returns the currently loaded program path
func (app *Application) GetROMPath() string {
	return app.programPath
}

// GetConfig returns the application configuration
func (app *Application) GetConfig() *Config {
	return app.config
}

// GetEmulator returns the emulator, nil before a program is loaded
func (app *Application) GetEmulator() *Emulator {
	return app.emulator
}

// GetWindow returns the active window
func (app *Application) GetWindow() graphics.Window {
	return app.window
}

// IsHeadless reports whether frames go to the headless backend
func (app *Application) IsHeadless() bool {
	return app.headless
}

// ApplyDebugSettings sets the global log level from the debug section
func (app *Application) ApplyDebugSettings() {
	level := app.config.LogLevel()
	if app.config.Debug.TraceCPU {
		level = logrus.TraceLevel
	}
	logrus.SetLevel(level)
	app.log.WithField("level", level.String()).Debug("[APP] log level set")
}

// Cleanup releases all resources and shuts down the application
func (app *Application) Cleanup() error {
	app.log.Debug("[APP] cleaning up application resources")

	var lastErr error

	if app.emulator != nil {
		app.emulator.Stop()
	}

	if app.script != nil {
		app.script.Close()
		app.script = nil
	}

	if app.window != nil {
		if err := app.window.Cleanup(); err != nil {
			lastErr = err
			app.log.WithError(err).Error("[APP] window cleanup error")
		}
	}

	if app.graphicsBackend != nil {
		if err := app.graphicsBackend.Cleanup(); err != nil {
			lastErr = err
			app.log.WithError(err).Error("[APP] graphics backend cleanup error")
		}
	}

	app.initialized = false
	return lastErr
}
