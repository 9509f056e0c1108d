// Package app provides configuration management and wiring for the emulator.
package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"gochip8/internal/display"
	"gochip8/internal/graphics"
	"gochip8/internal/input"
)

// Fault policies for emulation.on_decode_fault and emulation.on_bounds_fault
const (
	FaultSkip = "skip"
	FaultHalt = "halt"
)

// Config holds all application configuration
type Config struct {
	Window    WindowConfig    `json:"window"`
	Video     VideoConfig     `json:"video"`
	Input     InputConfig     `json:"input"`
	Emulation EmulationConfig `json:"emulation"`
	Debug     DebugConfig     `json:"debug"`
	Paths     PathsConfig     `json:"paths"`

	// Internal state
	configPath string
	loaded     bool
}

// WindowConfig contains window-related configuration
type WindowConfig struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	Fullscreen bool `json:"fullscreen"`
	Resizable  bool `json:"resizable"`
	Scale      int  `json:"scale"` // multiplier of the 64x32 display
}

// VideoConfig contains video rendering configuration
type VideoConfig struct {
	VSync      bool    `json:"vsync"`
	Filter     string  `json:"filter"`  // "nearest", "linear"
	Backend    string  `json:"backend"` // "ebitengine", "terminal", "headless"
	Foreground string  `json:"foreground"`
	Background string  `json:"background"`
	Brightness float32 `json:"brightness"`
	Overlay    bool    `json:"overlay"` // status text while paused or halted
}

// InputConfig maps physical keys to the hex keypad.
// KeyMap values are hex digits ("C", "0xC").
type InputConfig struct {
	KeyMap   map[string]string `json:"key_map"`
	PauseKey string            `json:"pause_key"`
	QuitKey  string            `json:"quit_key"`
}

// EmulationConfig contains emulation-specific settings
type EmulationConfig struct {
	CPUHz         int     `json:"cpu_hz"`
	FrameRate     float64 `json:"frame_rate"`
	StackLimit    int     `json:"stack_limit"`     // 0 = unbounded
	OnDecodeFault string  `json:"on_decode_fault"` // "skip", "halt"
	OnBoundsFault string  `json:"on_bounds_fault"` // "halt", "skip"
	MaxFrames     int     `json:"max_frames"`      // headless frame limit, 0 = none
}

// DebugConfig contains debugging and development options
type DebugConfig struct {
	LogLevel     string `json:"log_level"` // "DEBUG", "INFO", "WARN", "ERROR"
	TraceCPU     bool   `json:"trace_cpu"`
	DumpFrames   bool   `json:"dump_frames"`
	DumpPNG      bool   `json:"dump_png"`
	DumpDir      string `json:"dump_dir"`
	DumpInterval int    `json:"dump_interval"`
	MaxDumps     int    `json:"max_dumps"`
}

// PathsConfig contains file and directory paths
type PathsConfig struct {
	Programs    string `json:"programs"`
	Screenshots string `json:"screenshots"`
	Script      string `json:"script"`
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Window: WindowConfig{
			Width:     640,
			Height:    320,
			Resizable: true,
			Scale:     10,
		},
		Video: VideoConfig{
			VSync:      true,
			Filter:     "nearest",
			Backend:    "ebitengine",
			Foreground: "#FFFFFF",
			Background: "#000000",
			Brightness: 1.0,
			Overlay:    true,
		},
		Input: InputConfig{
			KeyMap:   defaultKeyMapStrings(),
			PauseKey: "Space",
			QuitKey:  "Escape",
		},
		Emulation: EmulationConfig{
			CPUHz:         500,
			FrameRate:     60.0,
			OnDecodeFault: FaultSkip,
			OnBoundsFault: FaultHalt,
		},
		Debug: DebugConfig{
			LogLevel:     "INFO",
			DumpDir:      "./dumps",
			DumpInterval: 1,
			MaxDumps:     10,
		},
		Paths: PathsConfig{
			Programs:    "./roms",
			Screenshots: "./screenshots",
		},
	}
}

func defaultKeyMapStrings() map[string]string {
	m := make(map[string]string)
	for name, key := range input.DefaultKeyMap() {
		m[strings.ToUpper(name)] = fmt.Sprintf("%X", key)
	}
	return m
}

// LoadFromFile loads configuration from a JSON file
func (c *Config) LoadFromFile(path string) error {
	c.configPath = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist - save default config and return
		return c.SaveToFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// A key_map in the file replaces the default one instead of merging
	c.Input.KeyMap = nil
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := c.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := c.createDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	c.loaded = true
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	c.configPath = path
	return nil
}

// Save saves the configuration to the current config file
func (c *Config) Save() error {
	if c.configPath == "" {
		return fmt.Errorf("no config file path set")
	}

	return c.SaveToFile(c.configPath)
}

// validate repairs out-of-range values and rejects what cannot be repaired
func (c *Config) validate() error {
	if c.Window.Scale <= 0 {
		c.Window.Scale = 1
	}

	// Missing dimensions follow the display scale
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		c.Window.Width, c.Window.Height = c.GetWindowResolution()
	}

	if c.Video.Brightness < 0.1 || c.Video.Brightness > 3.0 {
		c.Video.Brightness = 1.0
	}

	switch graphics.BackendType(c.Video.Backend) {
	case graphics.BackendEbitengine, graphics.BackendTerminal, graphics.BackendHeadless:
	default:
		c.Video.Backend = string(graphics.BackendEbitengine)
	}

	if c.Video.Foreground == "" {
		c.Video.Foreground = "#FFFFFF"
	}
	if c.Video.Background == "" {
		c.Video.Background = "#000000"
	}
	if _, err := c.Palette(); err != nil {
		return err
	}

	if len(c.Input.KeyMap) == 0 {
		c.Input.KeyMap = defaultKeyMapStrings()
	}
	if _, err := c.KeyMap(); err != nil {
		return err
	}
	if _, ok := graphics.ParseKey(c.Input.PauseKey); !ok {
		c.Input.PauseKey = "Space"
	}
	if _, ok := graphics.ParseKey(c.Input.QuitKey); !ok {
		c.Input.QuitKey = "Escape"
	}

	if c.Emulation.CPUHz <= 0 {
		c.Emulation.CPUHz = 500
	}

	if c.Emulation.FrameRate <= 0 {
		c.Emulation.FrameRate = 60.0
	}

	if c.Emulation.StackLimit < 0 {
		c.Emulation.StackLimit = 0
	}

	if c.Emulation.OnDecodeFault != FaultSkip && c.Emulation.OnDecodeFault != FaultHalt {
		c.Emulation.OnDecodeFault = FaultSkip
	}

	if c.Emulation.OnBoundsFault != FaultSkip && c.Emulation.OnBoundsFault != FaultHalt {
		c.Emulation.OnBoundsFault = FaultHalt
	}

	if c.Emulation.MaxFrames < 0 {
		c.Emulation.MaxFrames = 0
	}

	if _, err := logrus.ParseLevel(c.Debug.LogLevel); err != nil {
		c.Debug.LogLevel = "INFO"
	}

	if c.Debug.DumpInterval <= 0 {
		c.Debug.DumpInterval = 1
	}

	if c.Debug.MaxDumps < 0 {
		c.Debug.MaxDumps = 0
	}

	return nil
}

// createDirectories creates required directories
func (c *Config) createDirectories() error {
	dirs := []string{
		c.Paths.Programs,
		c.Paths.Screenshots,
	}

	for _, dir := range dirs {
		if dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// GetWindowResolution returns the window resolution based on scale
func (c *Config) GetWindowResolution() (int, int) {
	return display.Width * c.Window.Scale, display.Height * c.Window.Scale
}

// KeyMap parses the configured bindings
func (c *Config) KeyMap() (input.KeyMap, error) {
	km := make(input.KeyMap, len(c.Input.KeyMap))
	for name, value := range c.Input.KeyMap {
		key, err := input.ParseKey(value)
		if err != nil {
			return nil, &ConfigError{Field: "input.key_map." + name, Value: value, Err: err}
		}
		if _, ok := graphics.ParseKey(name); !ok {
			return nil, &ConfigError{Field: "input.key_map", Value: name, Err: fmt.Errorf("unknown key name")}
		}
		km[name] = key
	}
	return km.Normalize(), nil
}

// Palette builds the display colors from the video section
func (c *Config) Palette() (graphics.Palette, error) {
	p, err := graphics.NewPalette(c.Video.Foreground, c.Video.Background, c.Video.Brightness)
	if err != nil {
		return graphics.Palette{}, &ConfigError{Field: "video", Value: c.Video.Foreground + "/" + c.Video.Background, Err: err}
	}
	return p, nil
}

// LogLevel returns the configured logrus level
func (c *Config) LogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.Debug.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// IsLoaded returns whether the configuration was loaded from file
func (c *Config) IsLoaded() bool {
	return c.loaded
}

// GetConfigPath returns the path to the config file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	data, err := json.Marshal(c)
	if err != nil {
		return NewConfig()
	}

	clone := &Config{}
	if err := json.Unmarshal(data, clone); err != nil {
		return NewConfig()
	}

	clone.configPath = c.configPath
	clone.loaded = c.loaded

	return clone
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() string {
	return "./config/gochip8.json"
}

// GetDefaultConfigDir returns the default configuration directory
func GetDefaultConfigDir() string {
	return "./config"
}

// ConfigError represents configuration-related errors
type ConfigError struct {
	Field string
	Value interface{}
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error in field '%s' with value '%v': %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
