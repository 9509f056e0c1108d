package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"gochip8/internal/cpu"
	"gochip8/internal/display"
	"gochip8/internal/input"
)

// maxCatchUp bounds how much wall time one Advance call will emulate,
// so a stalled host does not trigger a burst of thousands of instructions.
const maxCatchUp = 250 * time.Millisecond

// Emulator manages the emulation loop and timing
type Emulator struct {
	machine *cpu.Machine
	keypad  *input.Keypad
	config  *Config
	log     *logrus.Entry

	// Fixed cadences derived from emulation.cpu_hz and emulation.frame_rate
	cpuPeriod   time.Duration
	framePeriod time.Duration
	cpuAccum    time.Duration
	frameAccum  time.Duration

	frameCount    uint64
	decodeFaults  uint64
	droppedTime   time.Duration
	emulationTime time.Duration
	lastResetTime time.Time

	// State tracking
	isRunning bool
	paused    bool
	halted    bool
	haltErr   error
}

// EmulatorStats is a snapshot of the emulator counters
type EmulatorStats struct {
	FrameCount    uint64
	Executed      uint64
	DecodeFaults  uint64
	DroppedTime   time.Duration
	EmulationTime time.Duration
	Uptime        time.Duration
	IsRunning     bool
	IsPaused      bool
	IsHalted      bool
}

// NewEmulator creates an emulator for program reading keys from keypad
func NewEmulator(program []byte, keypad *input.Keypad, config *Config) (*Emulator, error) {
	if config == nil {
		config = NewConfig()
	}
	if keypad == nil {
		keypad = input.NewKeypad()
	}

	log := logrus.WithField("component", "emu")
	machine, err := cpu.New(program, cpu.Config{
		StackLimit: config.Emulation.StackLimit,
		Keys:       keypad,
		Logger:     logrus.WithField("component", "cpu"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create machine: %w", err)
	}

	e := &Emulator{
		machine:     machine,
		keypad:      keypad,
		config:      config,
		log:         log,
		cpuPeriod:   periodOf(float64(config.Emulation.CPUHz), 500),
		framePeriod: periodOf(config.Emulation.FrameRate, 60),
	}
	e.Reset()
	return e, nil
}

func periodOf(hz, fallback float64) time.Duration {
	if hz <= 0 {
		hz = fallback
	}
	return time.Duration(float64(time.Second) / hz)
}

// Reset restarts the program from power-on state
func (e *Emulator) Reset() {
	e.machine.Reset()
	e.keypad.Reset()
	e.cpuAccum = 0
	e.frameAccum = 0
	e.frameCount = 0
	e.decodeFaults = 0
	e.droppedTime = 0
	e.emulationTime = 0
	e.halted = false
	e.haltErr = nil
	e.lastResetTime = time.Now()
}

// Start starts the emulator
func (e *Emulator) Start() {
	e.isRunning = true
}

// Stop stops the emulator
func (e *Emulator) Stop() {
	e.isRunning = false
}

// IsRunning reports whether Start was called without a later Stop
func (e *Emulator) IsRunning() bool {
	return e.isRunning
}

// Pause suspends instruction execution. Frames keep ticking.
func (e *Emulator) Pause() {
	if !e.paused {
		e.paused = true
		e.log.Info("[EMU] paused")
	}
}

// Resume continues execution after Pause
func (e *Emulator) Resume() {
	if e.paused {
		e.paused = false
		e.cpuAccum = 0
		e.log.Info("[EMU] resumed")
	}
}

// TogglePause flips the pause state and returns the new state
func (e *Emulator) TogglePause() bool {
	if e.paused {
		e.Resume()
	} else {
		e.Pause()
	}
	return e.paused
}

// IsPaused reports whether execution is suspended
func (e *Emulator) IsPaused() bool {
	return e.paused
}

// IsHalted reports whether a fault stopped execution
func (e *Emulator) IsHalted() bool {
	return e.halted
}

// HaltError returns the fault that halted the machine, if any
func (e *Emulator) HaltError() error {
	return e.haltErr
}

// FramePeriod returns the duration of one frame tick
func (e *Emulator) FramePeriod() time.Duration {
	return e.framePeriod
}

// Advance emulates elapsed wall time: a whole number of CPU ticks at
// cpu_hz and frame ticks at frame_rate, carrying remainders to the next
// call. It returns how many frames completed and the fault that halted
// the machine during this call, if one did.
func (e *Emulator) Advance(elapsed time.Duration) (int, error) {
	if !e.isRunning || elapsed <= 0 {
		return 0, nil
	}

	if elapsed > maxCatchUp {
		e.droppedTime += elapsed - maxCatchUp
		e.log.WithField("elapsed", elapsed).Debug("[EMU] capping catch-up")
		elapsed = maxCatchUp
	}

	start := time.Now()
	var fault error
	if !e.paused && !e.halted {
		e.cpuAccum += elapsed
		for e.cpuAccum >= e.cpuPeriod {
			e.cpuAccum -= e.cpuPeriod
			if err := e.step(); err != nil {
				fault = err
				e.cpuAccum = 0
				break
			}
		}
	}
	e.emulationTime += time.Since(start)

	e.frameAccum += elapsed
	frames := int(e.frameAccum / e.framePeriod)
	e.frameAccum -= time.Duration(frames) * e.framePeriod
	e.frameCount += uint64(frames)

	return frames, fault
}

// RunFrame advances by exactly one frame period
func (e *Emulator) RunFrame() error {
	_, err := e.Advance(e.framePeriod)
	return err
}

// step executes one instruction and applies the configured fault policy.
// A non-nil return means the machine is now halted.
func (e *Emulator) step() error {
	err := e.machine.Step()
	if err == nil {
		return nil
	}

	var decode *cpu.DecodeFault
	if errors.As(err, &decode) {
		e.decodeFaults++
		e.log.WithFields(logrus.Fields{
			"pc":     fmt.Sprintf("$%03X", decode.PC),
			"opcode": fmt.Sprintf("$%04X", decode.Opcode),
		}).Warn("[EMU] unknown opcode")
		if e.config.Emulation.OnDecodeFault == FaultHalt {
			return e.halt(err)
		}
		e.machine.Skip()
		return nil
	}

	if cpu.IsBoundsFault(err) && !cpu.IsFetchFault(err) && e.config.Emulation.OnBoundsFault == FaultSkip {
		e.log.WithError(err).Warn("[EMU] bounds fault, skipping instruction")
		e.machine.Skip()
		return nil
	}

	return e.halt(err)
}

func (e *Emulator) halt(err error) error {
	e.halted = true
	e.haltErr = err
	e.log.WithError(err).Error("[EMU] machine halted")
	return err
}

// StatusText is the overlay line for the current state, empty while running
func (e *Emulator) StatusText() string {
	pc := e.machine.PC
	switch {
	case e.halted:
		return fmt.Sprintf("HALTED  PC $%03X", pc)
	case e.paused:
		return fmt.Sprintf("PAUSED  PC $%03X", pc)
	default:
		return ""
	}
}

// Frame returns a copy of the framebuffer
func (e *Emulator) Frame() display.Frame {
	return e.machine.Frame()
}

// Machine returns the underlying interpreter
func (e *Emulator) Machine() *cpu.Machine {
	return e.machine
}

// Keypad returns the keypad the machine reads
func (e *Emulator) Keypad() *input.Keypad {
	return e.keypad
}

// GetFrameCount returns the number of frame ticks since Reset
func (e *Emulator) GetFrameCount() uint64 {
	return e.frameCount
}

// GetUptime returns the time since the last Reset
func (e *Emulator) GetUptime() time.Duration {
	return time.Since(e.lastResetTime)
}

// GetStats returns the emulator counters
func (e *Emulator) GetStats() EmulatorStats {
	return EmulatorStats{
		FrameCount:    e.frameCount,
		Executed:      e.machine.State().Executed,
		DecodeFaults:  e.decodeFaults,
		DroppedTime:   e.droppedTime,
		EmulationTime: e.emulationTime,
		Uptime:        e.GetUptime(),
		IsRunning:     e.isRunning,
		IsPaused:      e.paused,
		IsHalted:      e.halted,
	}
}

// PressKey holds a keypad key
func (e *Emulator) PressKey(key uint8) error {
	return e.keypad.Press(key)
}

// ReleaseKey releases a keypad key
func (e *Emulator) ReleaseKey(key uint8) error {
	return e.keypad.Release(key)
}

// MachineState returns a register snapshot
func (e *Emulator) MachineState() cpu.State {
	return e.machine.State()
}

// Pixel returns the framebuffer cell at (x, y)
func (e *Emulator) Pixel(x, y int) uint8 {
	return e.machine.Pixel(x, y)
}

// Peek reads a byte of machine memory
func (e *Emulator) Peek(address int) (uint8, error) {
	return e.machine.Peek(address)
}
