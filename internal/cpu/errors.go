package cpu

import (
	"fmt"

	"gochip8/internal/instruction"
)

// Space names the index space a BoundsFault was raised in
type Space int

const (
	SpaceMemory Space = iota
	SpaceRegister
	SpaceKey
	SpaceStack
)

func (s Space) String() string {
	switch s {
	case SpaceMemory:
		return "memory"
	case SpaceRegister:
		return "register"
	case SpaceKey:
		return "key"
	case SpaceStack:
		return "stack"
	default:
		return fmt.Sprintf("Space(%d)", int(s))
	}
}

// BoundsFault reports an operand that indexes outside its valid range.
// It is fatal to the execute call that raised it.
type BoundsFault struct {
	Space Space
	Index int
	Limit int // exclusive upper bound of the space
	PC    uint16
	Inst  instruction.Instruction
	Fetch bool // raised reading the instruction word at PC
	Err   error
}

func (e *BoundsFault) Error() string {
	msg := fmt.Sprintf("%s index %d out of range [0,%d) at PC $%03X (%s)",
		e.Space, e.Index, e.Limit, e.PC, e.Inst)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BoundsFault) Unwrap() error {
	return e.Err
}

// DecodeFault reports a fetched word that maps to no instruction
type DecodeFault struct {
	PC     uint16
	Opcode uint16
}

func (e *DecodeFault) Error() string {
	return fmt.Sprintf("unknown opcode $%04X at PC $%03X", e.Opcode, e.PC)
}
