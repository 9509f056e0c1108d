package cpu

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gochip8/internal/memory"
)

// fakeKeys is a settable KeySource
type fakeKeys [NumKeys]bool

func (k *fakeKeys) IsPressed(key uint8) bool {
	return int(key) < len(k) && k[key]
}

// program encodes opcodes big-endian
func program(words ...uint16) []byte {
	out := make([]byte, 0, len(words)*2)
	for _, w := range words {
		out = append(out, byte(w>>8), byte(w))
	}
	return out
}

func newTestMachine(t *testing.T, words ...uint16) (*Machine, *fakeKeys, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	keys := &fakeKeys{}
	m, err := New(program(words...), Config{
		Keys:   keys,
		Random: RandomFunc(func() uint8 { return 0xFF }),
		Logger: logger.WithField("component", "cpu"),
	})
	require.NoError(t, err)
	return m, keys, hook
}

func TestNew_ShouldStartAtProgramStart(t *testing.T) {
	m, _, _ := newTestMachine(t)

	assert.Equal(t, uint16(memory.ProgramStart), m.PC)
	assert.Equal(t, [NumRegisters]uint8{}, m.V)
	assert.Zero(t, m.I)
	assert.Zero(t, m.StackDepth())
	assert.Zero(t, m.frame.Lit())

	b, err := m.Peek(memory.FontStart)
	require.NoError(t, err)
	assert.Equal(t, memory.Font[0], b)
}

func TestNew_ShouldRejectOversizedProgram(t *testing.T) {
	_, err := New(make([]byte, memory.MaxProgramSize+1), Config{})

	var sizeErr *memory.ProgramSizeError
	assert.ErrorAs(t, err, &sizeErr)
}

func TestNew_ShouldCopyProgram(t *testing.T) {
	img := program(0x00E0)
	m, err := New(img, Config{})
	require.NoError(t, err)

	img[0] = 0xFF
	m.Reset()

	word, err := m.Fetch()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x00E0), word)
}

func TestFetch_ShouldReadBigEndianWord(t *testing.T) {
	m, _, _ := newTestMachine(t, 0x6A12)

	word, err := m.Fetch()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x6A12), word)
}

func TestFetch_ShouldFaultAtEndOfMemory(t *testing.T) {
	m, _, _ := newTestMachine(t)
	m.PC = memory.Size - 1

	_, err := m.Fetch()

	var bf *BoundsFault
	require.ErrorAs(t, err, &bf)
	assert.Equal(t, SpaceMemory, bf.Space)
	assert.ErrorIs(t, err, memory.ErrOutOfRange)
	assert.True(t, IsFetchFault(err))
}

func TestStep_ShouldClearDisplayProgram(t *testing.T) {
	m, _, _ := newTestMachine(t, 0x00E0)

	require.NoError(t, m.Step())

	assert.Equal(t, uint16(0x202), m.PC)
	assert.Zero(t, m.frame.Lit())
}

func TestStep_ShouldRunSmallProgram(t *testing.T) {
	// V0 = 5, V1 = 7, V0 += V1, I = glyph of V0, then spin on the last jump
	m, _, _ := newTestMachine(t,
		0x6005,
		0x6107,
		0x8014,
		0xF029,
		0x1208,
	)

	for i := 0; i < 5; i++ {
		require.NoError(t, m.Step())
	}

	assert.Equal(t, uint8(12), m.V[0])
	assert.Equal(t, uint8(0), m.V[0xF])
	assert.Equal(t, uint16(12*memory.GlyphSize), m.I)
	assert.Equal(t, uint16(0x208), m.PC)
	assert.Equal(t, uint64(5), m.State().Executed)
}

func TestStep_ShouldReturnDecodeFaultWithoutSideEffects(t *testing.T) {
	m, _, _ := newTestMachine(t, 0xFFFF)
	m.DelayTimer = 3

	err := m.Step()

	var df *DecodeFault
	require.ErrorAs(t, err, &df)
	assert.Equal(t, uint16(0x200), df.PC)
	assert.Equal(t, uint16(0xFFFF), df.Opcode)
	assert.True(t, IsDecodeFault(err))
	assert.False(t, IsBoundsFault(err))

	assert.Equal(t, uint16(0x200), m.PC)
	assert.Equal(t, uint8(3), m.DelayTimer, "timers only tick in Execute")

	m.Skip()
	assert.Equal(t, uint16(0x202), m.PC)
}

func TestStep_ShouldTraceWhenEnabled(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)
	m, err := New(program(0x6123), Config{Logger: logger.WithField("component", "cpu")})
	require.NoError(t, err)

	require.NoError(t, m.Step())

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "LD V1, $23", hook.LastEntry().Message)
	assert.Equal(t, uint16(0x200), hook.LastEntry().Data["pc"])
}

func TestReset_ShouldRestorePowerOnState(t *testing.T) {
	m, _, _ := newTestMachine(t, 0x6005, 0xA300, 0xF055, 0x2400)
	for i := 0; i < 4; i++ {
		require.NoError(t, m.Step())
	}
	require.NotZero(t, m.StackDepth())

	m.Reset()

	st := m.State()
	assert.Equal(t, uint16(memory.ProgramStart), st.PC)
	assert.Zero(t, st.I)
	assert.Empty(t, st.Stack)
	assert.Zero(t, st.Executed)
	b, err := m.Peek(0x300)
	require.NoError(t, err)
	assert.Zero(t, b, "data memory is cleared")
	word, err := m.Fetch()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x6005), word, "program is reloaded")
}

func TestState_ShouldReturnIndependentCopy(t *testing.T) {
	m, _, _ := newTestMachine(t)
	m.stack = append(m.stack, 0x300)

	st := m.State()
	st.Stack[0] = 0x999
	st.V[0] = 9

	assert.Equal(t, uint16(0x300), m.stack[0])
	assert.Zero(t, m.V[0])
}

func TestSetKeys_ShouldFallBackToNoKeys(t *testing.T) {
	m, _, _ := newTestMachine(t)
	m.SetKeys(nil)
	assert.False(t, m.keys.IsPressed(0))
	assert.NotNil(t, m.Keys())
}

func TestPoke_ShouldWriteMemory(t *testing.T) {
	m, _, _ := newTestMachine(t)
	require.NoError(t, m.Poke(0x500, 0x42))

	v, err := m.Peek(0x500)
	require.NoError(t, err)
	assert.Equal(t, uint8(0x42), v)

	assert.ErrorIs(t, m.Poke(memory.Size, 1), memory.ErrOutOfRange)
}
