// Package script drives the emulator from Lua for automated and headless runs.
//
// A script may define on_frame(n), called once per rendered frame, and uses
// these globals:
//
//	press(key) / release(key)   hold or release keypad key 0-15
//	reg(x)                      value of VX
//	index()                     the I register
//	pc()                        the program counter
//	pixel(x, y)                 framebuffer cell, 0 or 1
//	peek(addr)                  byte of memory
//	log(msg)                    write to the emulator log
//	stop()                      end the run after this frame
package script

import (
	"fmt"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"gochip8/internal/cpu"
)

// Host is the emulator surface a script can reach
type Host interface {
	PressKey(key uint8) error
	ReleaseKey(key uint8) error
	MachineState() cpu.State
	Pixel(x, y int) uint8
	Peek(address int) (uint8, error)
}

// Runner owns one Lua state bound to a Host
type Runner struct {
	L       *lua.LState
	host    Host
	log     *logrus.Entry
	stopped bool
	name    string
}

// NewRunner creates a runner with the emulator API registered
func NewRunner(host Host, log *logrus.Entry) *Runner {
	if log == nil {
		log = logrus.WithField("component", "script")
	}
	r := &Runner{
		L:    lua.NewState(),
		host: host,
		log:  log,
	}
	r.register()
	return r
}

func (r *Runner) register() {
	api := map[string]lua.LGFunction{
		"press":   r.luaPress,
		"release": r.luaRelease,
		"reg":     r.luaReg,
		"index":   r.luaIndex,
		"pc":      r.luaPC,
		"pixel":   r.luaPixel,
		"peek":    r.luaPeek,
		"log":     r.luaLog,
		"stop":    r.luaStop,
	}
	for name, fn := range api {
		r.L.SetGlobal(name, r.L.NewFunction(fn))
	}
}

// LoadFile runs a script file's top level
func (r *Runner) LoadFile(path string) error {
	r.name = path
	if err := r.L.DoFile(path); err != nil {
		return fmt.Errorf("script %s: %w", path, err)
	}
	return nil
}

// LoadString runs source under the given chunk name
func (r *Runner) LoadString(name, source string) error {
	r.name = name
	if err := r.L.DoString(source); err != nil {
		return fmt.Errorf("script %s: %w", name, err)
	}
	return nil
}

// OnFrame calls the script's on_frame(n) if it defines one
func (r *Runner) OnFrame(frame uint64) error {
	fn := r.L.GetGlobal("on_frame")
	if fn.Type() != lua.LTFunction {
		return nil
	}
	err := r.L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, lua.LNumber(frame))
	if err != nil {
		return fmt.Errorf("script %s: on_frame(%d): %w", r.name, frame, err)
	}
	return nil
}

// Stopped reports whether the script called stop()
func (r *Runner) Stopped() bool {
	return r.stopped
}

// Close releases the Lua state
func (r *Runner) Close() {
	r.L.Close()
}

func (r *Runner) checkKey(L *lua.LState) uint8 {
	key := L.CheckInt(1)
	if key < 0 || key > 0xF {
		L.ArgError(1, "key must be 0-15")
	}
	return uint8(key)
}

func (r *Runner) luaPress(L *lua.LState) int {
	if err := r.host.PressKey(r.checkKey(L)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (r *Runner) luaRelease(L *lua.LState) int {
	if err := r.host.ReleaseKey(r.checkKey(L)); err != nil {
		L.RaiseError("%v", err)
	}
	return 0
}

func (r *Runner) luaReg(L *lua.LState) int {
	x := L.CheckInt(1)
	if x < 0 || x >= cpu.NumRegisters {
		L.ArgError(1, "register must be 0-15")
	}
	L.Push(lua.LNumber(r.host.MachineState().V[x]))
	return 1
}

func (r *Runner) luaIndex(L *lua.LState) int {
	L.Push(lua.LNumber(r.host.MachineState().I))
	return 1
}

func (r *Runner) luaPC(L *lua.LState) int {
	L.Push(lua.LNumber(r.host.MachineState().PC))
	return 1
}

func (r *Runner) luaPixel(L *lua.LState) int {
	L.Push(lua.LNumber(r.host.Pixel(L.CheckInt(1), L.CheckInt(2))))
	return 1
}

func (r *Runner) luaPeek(L *lua.LState) int {
	v, err := r.host.Peek(L.CheckInt(1))
	if err != nil {
		L.RaiseError("%v", err)
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (r *Runner) luaLog(L *lua.LState) int {
	r.log.Info(L.CheckString(1))
	return 0
}

func (r *Runner) luaStop(L *lua.LState) int {
	r.stopped = true
	return 0
}
