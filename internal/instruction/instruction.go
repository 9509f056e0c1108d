// Package instruction decodes CHIP-8 opcodes into typed instructions.
package instruction

import "fmt"

// Op identifies an instruction variant
type Op uint8

const (
	OpInvalid Op = iota
	OpClearDisplay
	OpReturn
	OpJump
	OpCall
	OpSkipEqual
	OpSkipNotEqual
	OpSkipEqualRegister
	OpLoadConst
	OpAddConst
	OpAssign
	OpOr
	OpAnd
	OpXor
	OpAdd
	OpSubtract
	OpShiftRight
	OpReduce
	OpShiftLeft
	OpSkipNotEqualRegister
	OpSetIndex
	OpJumpV0
	OpRandom
	OpDraw
	OpSkipPressed
	OpSkipNotPressed
	OpLoadDelay
	OpWaitForPress
	OpSetDelay
	OpSetSound
	OpAddIndex
	OpFont
	OpBCD
	OpDumpRegisters
	OpLoadRegisters

	opCount
)

var opNames = [opCount]string{
	OpInvalid:              "Invalid",
	OpClearDisplay:         "ClearDisplay",
	OpReturn:               "Return",
	OpJump:                 "Jump",
	OpCall:                 "Call",
	OpSkipEqual:            "SkipEqual",
	OpSkipNotEqual:         "SkipNotEqual",
	OpSkipEqualRegister:    "SkipEqualRegister",
	OpLoadConst:            "LoadConst",
	OpAddConst:             "AddConst",
	OpAssign:               "Assign",
	OpOr:                   "Or",
	OpAnd:                  "And",
	OpXor:                  "Xor",
	OpAdd:                  "Add",
	OpSubtract:             "Subtract",
	OpShiftRight:           "ShiftRight",
	OpReduce:               "Reduce",
	OpShiftLeft:            "ShiftLeft",
	OpSkipNotEqualRegister: "SkipNotEqualRegister",
	OpSetIndex:             "SetIndex",
	OpJumpV0:               "JumpV0",
	OpRandom:               "Random",
	OpDraw:                 "Draw",
	OpSkipPressed:          "SkipPressed",
	OpSkipNotPressed:       "SkipNotPressed",
	OpLoadDelay:            "LoadDelay",
	OpWaitForPress:         "WaitForPress",
	OpSetDelay:             "SetDelay",
	OpSetSound:             "SetSound",
	OpAddIndex:             "AddIndex",
	OpFont:                 "Font",
	OpBCD:                  "BCD",
	OpDumpRegisters:        "DumpRegisters",
	OpLoadRegisters:        "LoadRegisters",
}

// String returns the variant name
func (op Op) String() string {
	if op >= opCount {
		return fmt.Sprintf("Op(%d)", uint8(op))
	}
	return opNames[op]
}

// Ops returns every defined variant in declaration order
func Ops() []Op {
	ops := make([]Op, 0, opCount-1)
	for op := OpClearDisplay; op < opCount; op++ {
		ops = append(ops, op)
	}
	return ops
}

// Instruction is a decoded opcode. Only the operands used by Op are set,
// so two decodes of the same word compare equal with ==.
type Instruction struct {
	Op  Op
	X   uint8  // register index, bits 8-11
	Y   uint8  // register index, bits 4-7
	N   uint8  // sprite height, bits 0-3
	KK  uint8  // immediate byte
	NNN uint16 // 12-bit address
}

// Field extraction helpers
func nibble0(word uint16) uint8 { return uint8(word >> 12) }
func fieldX(word uint16) uint8  { return uint8(word>>8) & 0x0F }
func fieldY(word uint16) uint8  { return uint8(word>>4) & 0x0F }
func fieldN(word uint16) uint8  { return uint8(word) & 0x0F }
func fieldKK(word uint16) uint8 { return uint8(word) }
func fieldNNN(word uint16) uint16 {
	return word & 0x0FFF
}

var aluOps = map[uint8]Op{
	0x0: OpAssign,
	0x1: OpOr,
	0x2: OpAnd,
	0x3: OpXor,
	0x4: OpAdd,
	0x5: OpSubtract,
	0x6: OpShiftRight,
	0x7: OpReduce,
	0xE: OpShiftLeft,
}

var miscOps = map[uint8]Op{
	0x07: OpLoadDelay,
	0x0A: OpWaitForPress,
	0x15: OpSetDelay,
	0x18: OpSetSound,
	0x1E: OpAddIndex,
	0x29: OpFont,
	0x33: OpBCD,
	0x55: OpDumpRegisters,
	0x65: OpLoadRegisters,
}

// Decode maps a 16-bit opcode to an instruction. The second result is
// false when the word has no defined mapping.
func Decode(word uint16) (Instruction, bool) {
	x := fieldX(word)

	switch nibble0(word) {
	case 0x0:
		switch fieldKK(word) {
		case 0xE0:
			return Instruction{Op: OpClearDisplay}, true
		case 0xEE:
			return Instruction{Op: OpReturn}, true
		}
	case 0x1:
		return Instruction{Op: OpJump, NNN: fieldNNN(word)}, true
	case 0x2:
		return Instruction{Op: OpCall, NNN: fieldNNN(word)}, true
	case 0x3:
		return Instruction{Op: OpSkipEqual, X: x, KK: fieldKK(word)}, true
	case 0x4:
		return Instruction{Op: OpSkipNotEqual, X: x, KK: fieldKK(word)}, true
	case 0x5:
		return Instruction{Op: OpSkipEqualRegister, X: x, Y: fieldY(word)}, true
	case 0x6:
		return Instruction{Op: OpLoadConst, X: x, KK: fieldKK(word)}, true
	case 0x7:
		return Instruction{Op: OpAddConst, X: x, KK: fieldKK(word)}, true
	case 0x8:
		if op, ok := aluOps[fieldN(word)]; ok {
			return Instruction{Op: op, X: x, Y: fieldY(word)}, true
		}
	case 0x9:
		return Instruction{Op: OpSkipNotEqualRegister, X: x, Y: fieldY(word)}, true
	case 0xA:
		return Instruction{Op: OpSetIndex, NNN: fieldNNN(word)}, true
	case 0xB:
		return Instruction{Op: OpJumpV0, NNN: fieldNNN(word)}, true
	case 0xC:
		return Instruction{Op: OpRandom, X: x, KK: fieldKK(word)}, true
	case 0xD:
		return Instruction{Op: OpDraw, X: x, Y: fieldY(word), N: fieldN(word)}, true
	case 0xE:
		switch fieldKK(word) {
		case 0x9E:
			return Instruction{Op: OpSkipPressed, X: x}, true
		case 0xA1:
			return Instruction{Op: OpSkipNotPressed, X: x}, true
		}
	case 0xF:
		if op, ok := miscOps[fieldKK(word)]; ok {
			return Instruction{Op: op, X: x}, true
		}
	}

	return Instruction{}, false
}

// Encode returns the canonical opcode for the instruction. It returns
// false for OpInvalid or an unknown Op.
func (in Instruction) Encode() (uint16, bool) {
	x := uint16(in.X&0x0F) << 8
	y := uint16(in.Y&0x0F) << 4
	kk := uint16(in.KK)
	nnn := in.NNN & 0x0FFF

	switch in.Op {
	case OpClearDisplay:
		return 0x00E0, true
	case OpReturn:
		return 0x00EE, true
	case OpJump:
		return 0x1000 | nnn, true
	case OpCall:
		return 0x2000 | nnn, true
	case OpSkipEqual:
		return 0x3000 | x | kk, true
	case OpSkipNotEqual:
		return 0x4000 | x | kk, true
	case OpSkipEqualRegister:
		return 0x5000 | x | y, true
	case OpLoadConst:
		return 0x6000 | x | kk, true
	case OpAddConst:
		return 0x7000 | x | kk, true
	case OpSkipNotEqualRegister:
		return 0x9000 | x | y, true
	case OpSetIndex:
		return 0xA000 | nnn, true
	case OpJumpV0:
		return 0xB000 | nnn, true
	case OpRandom:
		return 0xC000 | x | kk, true
	case OpDraw:
		return 0xD000 | x | y | uint16(in.N&0x0F), true
	case OpSkipPressed:
		return 0xE09E | x, true
	case OpSkipNotPressed:
		return 0xE0A1 | x, true
	}

	for sub, op := range aluOps {
		if op == in.Op {
			return 0x8000 | x | y | uint16(sub), true
		}
	}
	for low, op := range miscOps {
		if op == in.Op {
			return 0xF000 | x | uint16(low), true
		}
	}

	return 0, false
}

// String renders the instruction as a mnemonic, e.g. "LD V6, $78"
func (in Instruction) String() string {
	switch in.Op {
	case OpClearDisplay:
		return "CLS"
	case OpReturn:
		return "RET"
	case OpJump:
		return fmt.Sprintf("JP $%03X", in.NNN)
	case OpCall:
		return fmt.Sprintf("CALL $%03X", in.NNN)
	case OpSkipEqual:
		return fmt.Sprintf("SE V%X, $%02X", in.X, in.KK)
	case OpSkipNotEqual:
		return fmt.Sprintf("SNE V%X, $%02X", in.X, in.KK)
	case OpSkipEqualRegister:
		return fmt.Sprintf("SE V%X, V%X", in.X, in.Y)
	case OpLoadConst:
		return fmt.Sprintf("LD V%X, $%02X", in.X, in.KK)
	case OpAddConst:
		return fmt.Sprintf("ADD V%X, $%02X", in.X, in.KK)
	case OpAssign:
		return fmt.Sprintf("LD V%X, V%X", in.X, in.Y)
	case OpOr:
		return fmt.Sprintf("OR V%X, V%X", in.X, in.Y)
	case OpAnd:
		return fmt.Sprintf("AND V%X, V%X", in.X, in.Y)
	case OpXor:
		return fmt.Sprintf("XOR V%X, V%X", in.X, in.Y)
	case OpAdd:
		return fmt.Sprintf("ADD V%X, V%X", in.X, in.Y)
	case OpSubtract:
		return fmt.Sprintf("SUB V%X, V%X", in.X, in.Y)
	case OpShiftRight:
		return fmt.Sprintf("SHR V%X, V%X", in.X, in.Y)
	case OpReduce:
		return fmt.Sprintf("SUBN V%X, V%X", in.X, in.Y)
	case OpShiftLeft:
		return fmt.Sprintf("SHL V%X, V%X", in.X, in.Y)
	case OpSkipNotEqualRegister:
		return fmt.Sprintf("SNE V%X, V%X", in.X, in.Y)
	case OpSetIndex:
		return fmt.Sprintf("LD I, $%03X", in.NNN)
	case OpJumpV0:
		return fmt.Sprintf("JP V0, $%03X", in.NNN)
	case OpRandom:
		return fmt.Sprintf("RND V%X, $%02X", in.X, in.KK)
	case OpDraw:
		return fmt.Sprintf("DRW V%X, V%X, %d", in.X, in.Y, in.N)
	case OpSkipPressed:
		return fmt.Sprintf("SKP V%X", in.X)
	case OpSkipNotPressed:
		return fmt.Sprintf("SKNP V%X", in.X)
	case OpLoadDelay:
		return fmt.Sprintf("LD V%X, DT", in.X)
	case OpWaitForPress:
		return fmt.Sprintf("LD V%X, K", in.X)
	case OpSetDelay:
		return fmt.Sprintf("LD DT, V%X", in.X)
	case OpSetSound:
		return fmt.Sprintf("LD ST, V%X", in.X)
	case OpAddIndex:
		return fmt.Sprintf("ADD I, V%X", in.X)
	case OpFont:
		return fmt.Sprintf("LD F, V%X", in.X)
	case OpBCD:
		return fmt.Sprintf("LD B, V%X", in.X)
	case OpDumpRegisters:
		return fmt.Sprintf("LD [I], V%X", in.X)
	case OpLoadRegisters:
		return fmt.Sprintf("LD V%X, [I]", in.X)
	}
	return in.Op.String()
}
