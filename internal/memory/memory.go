// Package memory implements the CHIP-8 address space.
package memory

import (
	"errors"
	"fmt"
)

const (
	// Size is the total addressable memory in bytes (0x000-0xFFF)
	Size = 0x1000

	// FontStart is where the built-in font table lives
	FontStart = 0x000

	// GlyphSize is the number of bytes per font glyph
	GlyphSize = 5

	// ProgramStart is the load address for program images
	ProgramStart = 0x200

	// MaxProgramSize is the largest image that fits above ProgramStart
	MaxProgramSize = Size - ProgramStart
)

// Font is the 4x5 hexadecimal glyph table, digits 0-9 then A-F.
// Only the high nibble of each row is significant.
var Font = [16 * GlyphSize]uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0x80, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// ErrOutOfRange is wrapped by every RangeError
var ErrOutOfRange = errors.New("address out of range")

// RangeError reports an access that falls outside 0x000-0xFFF
type RangeError struct {
	Address int
	Length  int
	Op      string
}

func (e *RangeError) Error() string {
	if e.Length > 1 {
		return fmt.Sprintf("memory %s of %d bytes at $%04X: %v", e.Op, e.Length, e.Address, ErrOutOfRange)
	}
	return fmt.Sprintf("memory %s at $%04X: %v", e.Op, e.Address, ErrOutOfRange)
}

func (e *RangeError) Unwrap() error {
	return ErrOutOfRange
}

// ProgramSizeError reports a program image that does not fit in memory
type ProgramSizeError struct {
	Size int
}

func (e *ProgramSizeError) Error() string {
	return fmt.Sprintf("program is %d bytes, maximum is %d", e.Size, MaxProgramSize)
}

// Memory represents the 4KB CHIP-8 RAM
type Memory struct {
	ram [Size]uint8
}

// New creates memory with the font table loaded
func New() *Memory {
	m := &Memory{}
	m.Reset()
	return m
}

// Reset zeroes RAM and reloads the font table
func (m *Memory) Reset() {
	m.ram = [Size]uint8{}
	copy(m.ram[FontStart:], Font[:])
}

// LoadProgram copies a program image to ProgramStart
func (m *Memory) LoadProgram(program []byte) error {
	if len(program) > MaxProgramSize {
		return &ProgramSizeError{Size: len(program)}
	}
	copy(m.ram[ProgramStart:], program)
	return nil
}

// Read reads a byte from the given address
func (m *Memory) Read(address int) (uint8, error) {
	if !inRange(address, 1) {
		return 0, &RangeError{Address: address, Length: 1, Op: "read"}
	}
	return m.ram[address], nil
}

// Write writes a byte to the given address
func (m *Memory) Write(address int, value uint8) error {
	if !inRange(address, 1) {
		return &RangeError{Address: address, Length: 1, Op: "write"}
	}
	m.ram[address] = value
	return nil
}

// ReadWord reads a big-endian 16-bit word
func (m *Memory) ReadWord(address int) (uint16, error) {
	if !inRange(address, 2) {
		return 0, &RangeError{Address: address, Length: 2, Op: "fetch"}
	}
	return uint16(m.ram[address])<<8 | uint16(m.ram[address+1]), nil
}

// ReadBlock returns a copy of length bytes starting at address
func (m *Memory) ReadBlock(address, length int) ([]uint8, error) {
	if length == 0 {
		return nil, nil
	}
	if !inRange(address, length) {
		return nil, &RangeError{Address: address, Length: length, Op: "read"}
	}
	block := make([]uint8, length)
	copy(block, m.ram[address:address+length])
	return block, nil
}

// WriteBlock writes data consecutively starting at address. Nothing is
// written if any byte would fall outside memory.
func (m *Memory) WriteBlock(address int, data []uint8) error {
	if !inRange(address, len(data)) {
		return &RangeError{Address: address, Length: len(data), Op: "write"}
	}
	copy(m.ram[address:], data)
	return nil
}

func inRange(address, length int) bool {
	return address >= 0 && length >= 0 && address+length <= Size
}
