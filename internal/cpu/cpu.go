// Package cpu implements the CHIP-8 interpreter core.
package cpu

import (
	"errors"
	"math/rand"

	"github.com/sirupsen/logrus"

	"gochip8/internal/display"
	"gochip8/internal/instruction"
	"gochip8/internal/memory"
)

const (
	// NumRegisters is the number of general purpose registers V0-VF
	NumRegisters = 16
	// NumKeys is the size of the hexadecimal keypad
	NumKeys = 16
	// FlagRegister is the index of VF
	FlagRegister = 0xF
)

// KeySource exposes the keypad state. Keys are indexed 0x0-0xF.
type KeySource interface {
	IsPressed(key uint8) bool
}

// RandomSource supplies arbitrary bytes for the random instruction
type RandomSource interface {
	Byte() uint8
}

// RandomFunc adapts a function to RandomSource
type RandomFunc func() uint8

// Byte calls f
func (f RandomFunc) Byte() uint8 { return f() }

type defaultRandom struct{}

func (defaultRandom) Byte() uint8 { return uint8(rand.Intn(256)) }

type noKeys struct{}

func (noKeys) IsPressed(uint8) bool { return false }

// Config holds the collaborators and limits for a Machine
type Config struct {
	// StackLimit caps the call depth; 0 means unbounded
	StackLimit int
	Random     RandomSource
	Keys       KeySource
	Logger     *logrus.Entry
}

// Machine owns all CPU state
type Machine struct {
	V          [NumRegisters]uint8 // V0-VF
	I          uint16              // Address register
	PC         uint16              // Program counter
	DelayTimer uint8
	SoundTimer uint8

	stack  []uint16
	memory *memory.Memory
	frame  display.Frame

	program    []byte
	stackLimit int
	random     RandomSource
	keys       KeySource
	log        *logrus.Entry

	// Instructions executed since construction or Reset
	executed uint64
}

// State is a copy of the machine's registers
type State struct {
	V          [NumRegisters]uint8
	I          uint16
	PC         uint16
	DelayTimer uint8
	SoundTimer uint8
	Stack      []uint16
	Executed   uint64
}

// New creates a machine with the font table and program loaded
func New(program []byte, cfg Config) (*Machine, error) {
	m := &Machine{
		memory:     memory.New(),
		program:    append([]byte(nil), program...),
		stackLimit: cfg.StackLimit,
		random:     cfg.Random,
		keys:       cfg.Keys,
		log:        cfg.Logger,
	}
	if m.random == nil {
		m.random = defaultRandom{}
	}
	if m.keys == nil {
		m.keys = noKeys{}
	}
	if m.log == nil {
		m.log = logrus.WithField("component", "cpu")
	}

	if err := m.memory.LoadProgram(m.program); err != nil {
		return nil, err
	}
	m.PC = memory.ProgramStart
	return m, nil
}

// Reset restores power-on state and reloads the program
func (m *Machine) Reset() {
	m.V = [NumRegisters]uint8{}
	m.I = 0
	m.PC = memory.ProgramStart
	m.DelayTimer = 0
	m.SoundTimer = 0
	m.stack = m.stack[:0]
	m.frame.Clear()
	m.executed = 0
	m.memory.Reset()
	// size was validated in New
	_ = m.memory.LoadProgram(m.program)
}

// SetKeys replaces the key source
func (m *Machine) SetKeys(keys KeySource) {
	if keys == nil {
		keys = noKeys{}
	}
	m.keys = keys
}

// Keys returns the key source the machine reads
func (m *Machine) Keys() KeySource {
	return m.keys
}

// Fetch reads the big-endian instruction word at PC
func (m *Machine) Fetch() (uint16, error) {
	word, err := m.memory.ReadWord(int(m.PC))
	if err != nil {
		return 0, &BoundsFault{Space: SpaceMemory, Index: int(m.PC), Limit: memory.Size, PC: m.PC, Fetch: true, Err: err}
	}
	return word, nil
}

// Step fetches, decodes and executes one instruction. An unknown word
// yields a *DecodeFault and leaves the machine untouched; the caller
// decides whether to Skip or halt.
func (m *Machine) Step() error {
	word, err := m.Fetch()
	if err != nil {
		return err
	}

	inst, ok := instruction.Decode(word)
	if !ok {
		return &DecodeFault{PC: m.PC, Opcode: word}
	}

	if m.log.Logger.IsLevelEnabled(logrus.TraceLevel) {
		m.log.WithFields(logrus.Fields{
			"pc":     m.PC,
			"opcode": word,
		}).Trace(inst.String())
	}

	return m.Execute(inst)
}

// Skip advances PC past the current instruction without executing it
func (m *Machine) Skip() {
	m.PC += 2
}

// State returns a snapshot of the registers and stack
func (m *Machine) State() State {
	return State{
		V:          m.V,
		I:          m.I,
		PC:         m.PC,
		DelayTimer: m.DelayTimer,
		SoundTimer: m.SoundTimer,
		Stack:      append([]uint16(nil), m.stack...),
		Executed:   m.executed,
	}
}

// Frame returns a copy of the framebuffer
func (m *Machine) Frame() display.Frame {
	return m.frame
}

// Pixel returns the framebuffer cell at (x, y)
func (m *Machine) Pixel(x, y int) uint8 {
	return m.frame.Pixel(x, y)
}

// Peek reads a byte of memory
func (m *Machine) Peek(address int) (uint8, error) {
	return m.memory.Read(address)
}

// Poke writes a byte of memory
func (m *Machine) Poke(address int, value uint8) error {
	return m.memory.Write(address, value)
}

// StackDepth returns the number of pending return addresses
func (m *Machine) StackDepth() int {
	return len(m.stack)
}

// IsBoundsFault reports whether err is or wraps a *BoundsFault
func IsBoundsFault(err error) bool {
	var bf *BoundsFault
	return errors.As(err, &bf)
}

// IsFetchFault reports whether err is a *BoundsFault raised by Fetch.
// Skipping cannot recover from one, PC is already past the end of memory.
func IsFetchFault(err error) bool {
	var bf *BoundsFault
	return errors.As(err, &bf) && bf.Fetch
}

// IsDecodeFault reports whether err is or wraps a *DecodeFault
func IsDecodeFault(err error) bool {
	var df *DecodeFault
	return errors.As(err, &df)
}
