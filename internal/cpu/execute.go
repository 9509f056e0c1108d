package cpu

import (
	"gochip8/internal/instruction"
	"gochip8/internal/memory"
)

// Execute applies one decoded instruction. The timers tick first, then the
// instruction runs, then PC advances by 2 unless the instruction moved it
// itself. A returned *BoundsFault aborts the instruction.
func (m *Machine) Execute(inst instruction.Instruction) error {
	m.tickTimers()
	m.executed++

	if inst.X >= NumRegisters {
		return m.fault(inst, SpaceRegister, int(inst.X), NumRegisters, nil)
	}
	if inst.Y >= NumRegisters {
		return m.fault(inst, SpaceRegister, int(inst.Y), NumRegisters, nil)
	}

	advance := true
	vx, vy := m.V[inst.X], m.V[inst.Y]

	switch inst.Op {
	case instruction.OpClearDisplay:
		m.frame.Clear()

	case instruction.OpReturn:
		if n := len(m.stack); n > 0 {
			m.PC = m.stack[n-1]
			m.stack = m.stack[:n-1]
		} else {
			m.log.WithField("pc", m.PC).Warn("return with empty stack ignored")
		}

	case instruction.OpJump:
		m.PC = inst.NNN
		advance = false

	case instruction.OpCall:
		if m.stackLimit > 0 && len(m.stack) >= m.stackLimit {
			return m.fault(inst, SpaceStack, len(m.stack), m.stackLimit, nil)
		}
		m.stack = append(m.stack, m.PC)
		m.PC = inst.NNN
		advance = false

	case instruction.OpSkipEqual:
		m.skipIf(vx == inst.KK)
	case instruction.OpSkipNotEqual:
		m.skipIf(vx != inst.KK)
	case instruction.OpSkipEqualRegister:
		m.skipIf(vx == vy)
	case instruction.OpSkipNotEqualRegister:
		m.skipIf(vx != vy)

	case instruction.OpLoadConst:
		m.V[inst.X] = inst.KK
	case instruction.OpAddConst:
		m.V[inst.X] = vx + inst.KK

	case instruction.OpAssign:
		m.V[inst.X] = vy
	case instruction.OpOr:
		m.V[inst.X] = vx | vy
	case instruction.OpAnd:
		m.V[inst.X] = vx & vy
	case instruction.OpXor:
		m.V[inst.X] = vx ^ vy

	// Operands are captured first. Add and Reduce write VF after the
	// result, the others before it, so with X == F the last write wins.
	case instruction.OpAdd:
		sum := uint16(vx) + uint16(vy)
		m.V[inst.X] = uint8(sum)
		m.V[FlagRegister] = boolToFlag(sum > 0xFF)
	case instruction.OpSubtract:
		m.V[FlagRegister] = boolToFlag(vx > vy)
		m.V[inst.X] = vx - vy
	case instruction.OpShiftRight:
		m.V[FlagRegister] = vy & 0x01
		m.V[inst.X] = vy >> 1
	case instruction.OpReduce:
		m.V[inst.X] = vy - vx
		m.V[FlagRegister] = boolToFlag(vy > vx)
	case instruction.OpShiftLeft:
		m.V[FlagRegister] = vy >> 7
		m.V[inst.X] = vy << 1

	case instruction.OpSetIndex:
		m.I = inst.NNN

	case instruction.OpJumpV0:
		target := int(inst.NNN) + int(m.V[0])
		if target >= memory.Size {
			return m.fault(inst, SpaceMemory, target, memory.Size, nil)
		}
		m.PC = uint16(target)
		advance = false

	case instruction.OpRandom:
		m.V[inst.X] = m.random.Byte() & inst.KK

	case instruction.OpDraw:
		rows, err := m.memory.ReadBlock(int(m.I), int(inst.N))
		if err != nil {
			return m.fault(inst, SpaceMemory, int(m.I)+int(inst.N)-1, memory.Size, err)
		}
		collision := m.frame.DrawSprite(int(vx), int(vy), rows)
		m.V[FlagRegister] = boolToFlag(collision)

	case instruction.OpSkipPressed:
		if vx >= NumKeys {
			return m.fault(inst, SpaceKey, int(vx), NumKeys, nil)
		}
		m.skipIf(m.keys.IsPressed(vx))
	case instruction.OpSkipNotPressed:
		if vx >= NumKeys {
			return m.fault(inst, SpaceKey, int(vx), NumKeys, nil)
		}
		m.skipIf(!m.keys.IsPressed(vx))

	case instruction.OpLoadDelay:
		m.V[inst.X] = m.DelayTimer

	case instruction.OpWaitForPress:
		if vx >= NumKeys {
			return m.fault(inst, SpaceKey, int(vx), NumKeys, nil)
		}
		if !m.keys.IsPressed(vx) {
			advance = false
		}

	case instruction.OpSetDelay:
		m.DelayTimer = vx
	case instruction.OpSetSound:
		m.SoundTimer = vx

	case instruction.OpAddIndex:
		m.I += uint16(vx)

	case instruction.OpFont:
		m.I = memory.FontStart + uint16(vx)*memory.GlyphSize

	case instruction.OpBCD:
		digits := []uint8{vx / 100, (vx / 10) % 10, vx % 10}
		if err := m.memory.WriteBlock(int(m.I), digits); err != nil {
			return m.fault(inst, SpaceMemory, int(m.I)+len(digits)-1, memory.Size, err)
		}

	case instruction.OpDumpRegisters:
		count := int(inst.X) + 1
		if err := m.memory.WriteBlock(int(m.I), m.V[:count]); err != nil {
			return m.fault(inst, SpaceMemory, int(m.I)+count-1, memory.Size, err)
		}
		m.I += uint16(count)

	case instruction.OpLoadRegisters:
		count := int(inst.X) + 1
		block, err := m.memory.ReadBlock(int(m.I), count)
		if err != nil {
			return m.fault(inst, SpaceMemory, int(m.I)+count-1, memory.Size, err)
		}
		copy(m.V[:count], block)
		m.I += uint16(count)

	default:
		// a zero Instruction never comes out of Decode
		return &DecodeFault{PC: m.PC}
	}

	if advance {
		m.PC += 2
	}
	return nil
}

func (m *Machine) tickTimers() {
	if m.DelayTimer > 0 {
		m.DelayTimer--
	}
	if m.SoundTimer > 0 {
		m.SoundTimer--
	}
}

// skipIf adds the extra +2 on top of the normal advance
func (m *Machine) skipIf(cond bool) {
	if cond {
		m.PC += 2
	}
}

func (m *Machine) fault(inst instruction.Instruction, space Space, index, limit int, err error) error {
	return &BoundsFault{
		Space: space,
		Index: index,
		Limit: limit,
		PC:    m.PC,
		Inst:  inst,
		Err:   err,
	}
}

func boolToFlag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
