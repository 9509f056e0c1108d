package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochip8/internal/cpu"
	"gochip8/internal/input"
	"gochip8/internal/script"
)

var _ script.Host = (*Emulator)(nil)

// counter: V0 = 5, then V0++ forever
var counterProgram = []byte{
	0x60, 0x05, // 200: V0 = 5
	0x70, 0x01, // 202: V0 += 1
	0x12, 0x02, // 204: jump 202
}

func newTestEmulator(t *testing.T, program []byte, configure func(*Config)) *Emulator {
	t.Helper()
	cfg := NewConfig()
	if configure != nil {
		configure(cfg)
	}
	e, err := NewEmulator(program, input.NewKeypad(), cfg)
	require.NoError(t, err)
	e.Start()
	return e
}

func TestEmulator_RejectsOversizedProgram(t *testing.T) {
	_, err := NewEmulator(make([]byte, 4000), nil, nil)

	assert.Error(t, err)
}

func TestEmulator_AdvanceRequiresStart(t *testing.T) {
	e, err := NewEmulator(counterProgram, nil, nil)
	require.NoError(t, err)

	frames, err := e.Advance(time.Second)

	assert.NoError(t, err)
	assert.Zero(t, frames)
	assert.Zero(t, e.MachineState().Executed)
}

func TestEmulator_AdvanceRunsWholeTicks(t *testing.T) {
	e := newTestEmulator(t, counterProgram, nil)

	frames, err := e.Advance(10 * time.Millisecond)
	require.NoError(t, err)

	assert.Zero(t, frames)
	st := e.MachineState()
	assert.Equal(t, uint64(5), st.Executed, "500 Hz runs 5 instructions in 10ms")
	assert.Equal(t, uint8(7), st.V[0])

	// remainder carries over: 1ms + 1ms makes one more tick
	_, err = e.Advance(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), e.MachineState().Executed)
	_, err = e.Advance(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), e.MachineState().Executed)
}

func TestEmulator_FrameTicks(t *testing.T) {
	e := newTestEmulator(t, counterProgram, nil)

	frames, _ := e.Advance(10 * time.Millisecond)
	assert.Zero(t, frames)
	frames, _ = e.Advance(10 * time.Millisecond)
	assert.Equal(t, 1, frames)

	frames, _ = e.Advance(3 * e.FramePeriod())
	assert.Equal(t, 3, frames)
	assert.Equal(t, uint64(4), e.GetFrameCount())

	require.NoError(t, e.RunFrame())
	assert.Equal(t, uint64(5), e.GetFrameCount())
}

func TestEmulator_CustomCadence(t *testing.T) {
	e := newTestEmulator(t, counterProgram, func(c *Config) {
		c.Emulation.CPUHz = 1000
		c.Emulation.FrameRate = 50
	})

	frames, err := e.Advance(20 * time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 1, frames)
	assert.Equal(t, uint64(20), e.MachineState().Executed)
}

func TestEmulator_CatchUpIsCapped(t *testing.T) {
	e := newTestEmulator(t, []byte{0x12, 0x00}, nil)

	_, err := e.Advance(time.Second)

	require.NoError(t, err)
	stats := e.GetStats()
	assert.Equal(t, uint64(125), stats.Executed)
	assert.Equal(t, 750*time.Millisecond, stats.DroppedTime)
}

func TestEmulator_PauseStopsExecutionNotFrames(t *testing.T) {
	e := newTestEmulator(t, counterProgram, nil)

	assert.True(t, e.TogglePause())
	frames, err := e.Advance(2 * e.FramePeriod())

	require.NoError(t, err)
	assert.Equal(t, 2, frames)
	assert.Zero(t, e.MachineState().Executed)
	assert.Contains(t, e.StatusText(), "PAUSED")

	assert.False(t, e.TogglePause())
	_, err = e.Advance(4 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), e.MachineState().Executed)
	assert.Empty(t, e.StatusText())
}

func TestEmulator_DecodeFaultSkipsByDefault(t *testing.T) {
	e := newTestEmulator(t, []byte{0xFF, 0xFF, 0x60, 0x07, 0x12, 0x04}, nil)

	_, err := e.Advance(6 * time.Millisecond)

	require.NoError(t, err)
	assert.False(t, e.IsHalted())
	assert.Equal(t, uint8(7), e.MachineState().V[0])
	assert.Equal(t, uint64(1), e.GetStats().DecodeFaults)
}

func TestEmulator_DecodeFaultHalts(t *testing.T) {
	e := newTestEmulator(t, []byte{0xFF, 0xFF, 0x60, 0x07}, func(c *Config) {
		c.Emulation.OnDecodeFault = FaultHalt
	})

	_, err := e.Advance(6 * time.Millisecond)

	var df *cpu.DecodeFault
	require.ErrorAs(t, err, &df)
	assert.Equal(t, uint16(0xFFFF), df.Opcode)
	assert.True(t, e.IsHalted())
	assert.Equal(t, err, e.HaltError())
	assert.Equal(t, uint16(0x200), e.MachineState().PC)
	assert.Equal(t, "HALTED  PC $200", e.StatusText())

	// halted machines keep producing frames but run nothing
	frames, err := e.Advance(e.FramePeriod() * 2)
	assert.NoError(t, err)
	assert.Equal(t, 2, frames)
	assert.Zero(t, e.MachineState().V[0])
}

func TestEmulator_BoundsFaultPolicy(t *testing.T) {
	// V0 = 0x20, then skip-if-pressed V0: key index out of range
	program := []byte{0x60, 0x20, 0xE0, 0x9E, 0x61, 0x01, 0x12, 0x06}

	t.Run("halt by default", func(t *testing.T) {
		e := newTestEmulator(t, program, nil)

		_, err := e.Advance(8 * time.Millisecond)

		assert.True(t, cpu.IsBoundsFault(err))
		assert.True(t, e.IsHalted())
		assert.Zero(t, e.MachineState().V[1])
	})

	t.Run("skip", func(t *testing.T) {
		e := newTestEmulator(t, program, func(c *Config) {
			c.Emulation.OnBoundsFault = FaultSkip
		})

		_, err := e.Advance(8 * time.Millisecond)

		assert.NoError(t, err)
		assert.False(t, e.IsHalted())
		assert.Equal(t, uint8(1), e.MachineState().V[1])
	})

	t.Run("fetch past end of memory halts under skip", func(t *testing.T) {
		// jump FFF: the word there straddles the end of memory
		e := newTestEmulator(t, []byte{0x1F, 0xFF}, func(c *Config) {
			c.Emulation.OnBoundsFault = FaultSkip
		})

		_, err := e.Advance(8 * time.Millisecond)

		assert.True(t, cpu.IsFetchFault(err))
		assert.True(t, e.IsHalted())
		assert.Equal(t, uint16(0xFFF), e.MachineState().PC)
	})
}

func TestEmulator_StackLimitFromConfig(t *testing.T) {
	// 200: call 200, recursing until the limit
	e := newTestEmulator(t, []byte{0x22, 0x00}, func(c *Config) {
		c.Emulation.StackLimit = 4
	})

	_, err := e.Advance(20 * time.Millisecond)

	assert.True(t, cpu.IsBoundsFault(err))
	assert.Equal(t, 4, e.Machine().StackDepth())
}

func TestEmulator_WaitsForKeyFromKeypad(t *testing.T) {
	// V0 = 5, wait for key V0, then V1 = 1
	e := newTestEmulator(t, []byte{0x60, 0x05, 0xF0, 0x0A, 0x61, 0x01, 0x12, 0x06}, nil)

	_, err := e.Advance(10 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x202), e.MachineState().PC, "blocked on the wait")

	require.NoError(t, e.PressKey(5))
	assert.True(t, e.Keypad().IsPressed(5))
	_, err = e.Advance(4 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, uint8(1), e.MachineState().V[1])

	require.NoError(t, e.ReleaseKey(5))
	assert.False(t, e.Keypad().IsPressed(5))
	assert.Error(t, e.PressKey(16))
}

func TestEmulator_HostAccessors(t *testing.T) {
	// I = font glyph 0, draw it at (0,0)
	e := newTestEmulator(t, []byte{0x60, 0x00, 0xF0, 0x29, 0xD0, 0x05, 0x12, 0x06}, nil)

	_, err := e.Advance(8 * time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, uint8(1), e.Pixel(0, 0))
	assert.Equal(t, uint8(0), e.Pixel(1, 1))
	frame := e.Frame()
	assert.Equal(t, 14, frame.Lit())

	b, err := e.Peek(0x200)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x60), b)
	_, err = e.Peek(0x1000)
	assert.Error(t, err)
}

func TestEmulator_Reset(t *testing.T) {
	e := newTestEmulator(t, counterProgram, nil)
	require.NoError(t, e.PressKey(3))
	_, _ = e.Advance(40 * time.Millisecond)

	e.Reset()

	st := e.MachineState()
	assert.Equal(t, uint16(0x200), st.PC)
	assert.Zero(t, st.Executed)
	assert.Zero(t, e.GetFrameCount())
	assert.False(t, e.Keypad().IsPressed(3))
	assert.True(t, e.IsRunning(), "reset keeps the run state")
}

func TestEmulator_Stop(t *testing.T) {
	e := newTestEmulator(t, counterProgram, nil)
	e.Stop()

	frames, err := e.Advance(time.Second)

	assert.NoError(t, err)
	assert.Zero(t, frames)
	assert.False(t, e.IsRunning())
}
