// Package input implements the CHIP-8 hexadecimal keypad.
package input

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// NumKeys is the number of keys on the pad (0x0-0xF)
const NumKeys = 16

// Keypad holds the pressed state of the 16 keys. The window goroutine
// writes it and the emulation loop reads it, so all access is locked.
type Keypad struct {
	mu   sync.RWMutex
	keys [NumKeys]bool

	log *logrus.Entry
}

// NewKeypad creates a keypad with every key released
func NewKeypad() *Keypad {
	return &Keypad{log: logrus.WithField("component", "input")}
}

// SetLogger replaces the keypad logger
func (k *Keypad) SetLogger(log *logrus.Entry) {
	if log != nil {
		k.log = log
	}
}

// IsPressed reports whether key is held. Keys outside 0x0-0xF are never pressed.
func (k *Keypad) IsPressed(key uint8) bool {
	if key >= NumKeys {
		return false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.keys[key]
}

// Set updates the state of one key
func (k *Keypad) Set(key uint8, pressed bool) error {
	if key >= NumKeys {
		return fmt.Errorf("key $%X out of range", key)
	}

	k.mu.Lock()
	changed := k.keys[key] != pressed
	k.keys[key] = pressed
	k.mu.Unlock()

	if changed {
		k.log.WithFields(logrus.Fields{"key": fmt.Sprintf("%X", key), "pressed": pressed}).Debug("[INPUT] key state changed")
	}
	return nil
}

// Press marks key as held
func (k *Keypad) Press(key uint8) error {
	return k.Set(key, true)
}

// Release marks key as released
func (k *Keypad) Release(key uint8) error {
	return k.Set(key, false)
}

// Reset releases every key
func (k *Keypad) Reset() {
	k.mu.Lock()
	k.keys = [NumKeys]bool{}
	k.mu.Unlock()
}

// Snapshot returns a copy of all key states
func (k *Keypad) Snapshot() [NumKeys]bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.keys
}

// Pressed returns the held keys in ascending order
func (k *Keypad) Pressed() []uint8 {
	snap := k.Snapshot()
	var out []uint8
	for i, down := range snap {
		if down {
			out = append(out, uint8(i))
		}
	}
	return out
}
