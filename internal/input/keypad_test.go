package input

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeypad_ShouldStartReleased(t *testing.T) {
	k := NewKeypad()

	for key := uint8(0); key < NumKeys; key++ {
		assert.False(t, k.IsPressed(key))
	}
	assert.Empty(t, k.Pressed())
}

func TestKeypad_PressAndRelease(t *testing.T) {
	k := NewKeypad()

	require.NoError(t, k.Press(0xA))
	require.NoError(t, k.Press(0x3))
	assert.True(t, k.IsPressed(0xA))
	assert.Equal(t, []uint8{0x3, 0xA}, k.Pressed())

	require.NoError(t, k.Release(0xA))
	assert.False(t, k.IsPressed(0xA))
	assert.True(t, k.IsPressed(0x3))
}

func TestKeypad_ShouldRejectOutOfRangeKeys(t *testing.T) {
	k := NewKeypad()

	assert.Error(t, k.Press(NumKeys))
	assert.False(t, k.IsPressed(NumKeys))
	assert.False(t, k.IsPressed(0xFF))
}

func TestKeypad_Reset(t *testing.T) {
	k := NewKeypad()
	for key := uint8(0); key < NumKeys; key++ {
		require.NoError(t, k.Press(key))
	}

	k.Reset()

	assert.Equal(t, [NumKeys]bool{}, k.Snapshot())
}

func TestKeypad_ShouldLogOnlyChanges(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	k := NewKeypad()
	k.SetLogger(logger.WithField("component", "input"))

	require.NoError(t, k.Press(1))
	require.NoError(t, k.Press(1))
	require.NoError(t, k.Release(1))

	assert.Len(t, hook.AllEntries(), 2)
}

func TestKeypad_ConcurrentAccess(t *testing.T) {
	k := NewKeypad()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(key uint8) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = k.Set(key, j%2 == 0)
			}
		}(uint8(i))
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = k.Snapshot()
			}
		}()
	}
	wg.Wait()

	// every writer ends on a release
	assert.Empty(t, k.Pressed())
}

func TestDefaultKeyMap(t *testing.T) {
	m := DefaultKeyMap()
	require.NoError(t, m.Validate())

	cases := map[string]uint8{
		"Left": 0x4, "Right": 0x6, "Up": 0x8, "Down": 0x2, "Enter": 0x5,
		"1": 0x1, "4": 0xC, "Q": 0x4, "V": 0xF, "X": 0x0,
	}
	for name, want := range cases {
		got, ok := m.Lookup(name)
		assert.Truef(t, ok, "%s should be bound", name)
		assert.Equalf(t, want, got, "%s", name)
	}

	_, ok := m.Lookup("Space")
	assert.False(t, ok)
}

func TestKeyMap_CoversEveryKey(t *testing.T) {
	seen := map[uint8]bool{}
	for _, key := range DefaultKeyMap() {
		seen[key] = true
	}
	assert.Len(t, seen, NumKeys)
}

func TestKeyMap_Validate(t *testing.T) {
	assert.Error(t, KeyMap{"p": 0x10}.Validate())
	assert.Error(t, KeyMap{"": 0x1}.Validate())
	assert.NoError(t, KeyMap{"p": 0xF}.Validate())
}

func TestKeyMap_Normalize(t *testing.T) {
	m := KeyMap{"LEFT": 0x4, "Q": 0x7}.Normalize()

	assert.Equal(t, KeyMap{"left": 0x4, "q": 0x7}, m)
}

func TestParseKey(t *testing.T) {
	for in, want := range map[string]uint8{"0": 0, "a": 0xA, "F": 0xF, "0xC": 0xC, " 7 ": 7} {
		got, err := ParseKey(in)
		require.NoErrorf(t, err, "%q", in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"", "10", "g", "-1"} {
		_, err := ParseKey(in)
		assert.Errorf(t, err, "%q", in)
	}
}
