package input

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// KeyMap translates physical key names to keypad keys. Names are
// case-insensitive and match the graphics key names ("Left", "Q", "1").
type KeyMap map[string]uint8

// DefaultKeyMap returns the standard layout:
//
//	1 2 3 4      1 2 3 C
//	Q W E R  ->  4 5 6 D
//	A S D F      7 8 9 E
//	Z X C V      A 0 B F
//
// plus the arrow keys on 4/6/8/2 and Enter on 5.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		"1": 0x1, "2": 0x2, "3": 0x3, "4": 0xC,
		"q": 0x4, "w": 0x5, "e": 0x6, "r": 0xD,
		"a": 0x7, "s": 0x8, "d": 0x9, "f": 0xE,
		"z": 0xA, "x": 0x0, "c": 0xB, "v": 0xF,

		"left":  0x4,
		"right": 0x6,
		"up":    0x8,
		"down":  0x2,
		"enter": 0x5,
	}
}

// Lookup returns the keypad key bound to name
func (m KeyMap) Lookup(name string) (uint8, bool) {
	key, ok := m[strings.ToLower(name)]
	return key, ok
}

// Normalize lower-cases every name
func (m KeyMap) Normalize() KeyMap {
	out := make(KeyMap, len(m))
	for name, key := range m {
		out[strings.ToLower(name)] = key
	}
	return out
}

// Validate reports the first binding that targets a key outside 0x0-0xF
func (m KeyMap) Validate() error {
	for _, name := range m.Names() {
		if m[name] >= NumKeys {
			return fmt.Errorf("key map: %q bound to $%X, want 0-F", name, m[name])
		}
		if name == "" {
			return fmt.Errorf("key map: empty key name")
		}
	}
	return nil
}

// Names returns the bound names in sorted order
func (m KeyMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseKey parses a single hex digit such as "A" or "0xA"
func ParseKey(s string) (uint8, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil || v >= NumKeys {
		return 0, fmt.Errorf("invalid keypad key %q", s)
	}
	return uint8(v), nil
}
