// Package debug provides framebuffer and machine state dumping utilities
package debug

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"gochip8/internal/cpu"
	"gochip8/internal/display"
)

// FrameDumper writes framebuffer snapshots to a directory
type FrameDumper struct {
	outputDir    string
	dumpEnabled  bool
	frameCount   uint64
	maxDumps     int
	dumpInterval int // Dump every N frames
	pixelFilter  func(x, y int, cell uint8) bool

	on, off color.RGBA
	log     *logrus.Entry
}

// NewFrameDumper creates a disabled dumper writing into outputDir
func NewFrameDumper(outputDir string) *FrameDumper {
	return &FrameDumper{
		outputDir:    outputDir,
		maxDumps:     10,
		dumpInterval: 1,
		on:           color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
		off:          color.RGBA{A: 0xFF},
		log:          logrus.WithField("component", "debug"),
	}
}

// Enable activates frame dumping and creates the output directory
func (fd *FrameDumper) Enable() error {
	if err := os.MkdirAll(fd.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}
	fd.dumpEnabled = true
	return nil
}

// Enabled reports whether dumps are written
func (fd *FrameDumper) Enabled() bool {
	return fd.dumpEnabled
}

// SetMaxDumps sets the maximum number of frames to dump; 0 means no limit
func (fd *FrameDumper) SetMaxDumps(limit int) {
	fd.maxDumps = limit
}

// SetDumpInterval sets the interval between frame dumps
func (fd *FrameDumper) SetDumpInterval(interval int) {
	if interval < 1 {
		interval = 1
	}
	fd.dumpInterval = interval
}

// SetPixelFilter limits text dumps to the cells the filter accepts
func (fd *FrameDumper) SetPixelFilter(filter func(x, y int, cell uint8) bool) {
	fd.pixelFilter = filter
}

// SetColors sets the PNG colors for lit and unlit cells
func (fd *FrameDumper) SetColors(on, off color.RGBA) {
	fd.on, fd.off = on, off
}

// Dumped returns how many frames have been written
func (fd *FrameDumper) Dumped() uint64 {
	return fd.frameCount
}

func (fd *FrameDumper) shouldDump(frameNum uint64) bool {
	if !fd.dumpEnabled {
		return false
	}
	if frameNum%uint64(fd.dumpInterval) != 0 {
		return false
	}
	return fd.maxDumps == 0 || fd.frameCount < uint64(fd.maxDumps)
}

// DumpFrame writes the frame as text, and as PNG when withPNG is set.
// Frames outside the interval or past the limit are skipped silently.
func (fd *FrameDumper) DumpFrame(frame *display.Frame, frameNum uint64, withPNG bool) error {
	if !fd.shouldDump(frameNum) {
		return nil
	}

	path := filepath.Join(fd.outputDir, fmt.Sprintf("frame_%06d.txt", frameNum))
	if err := os.WriteFile(path, []byte(fd.FormatFrame(frame, frameNum)), 0644); err != nil {
		return fmt.Errorf("failed to write frame dump: %w", err)
	}

	if withPNG {
		pngPath := filepath.Join(fd.outputDir, fmt.Sprintf("frame_%06d.png", frameNum))
		if err := fd.SavePNG(frame, pngPath); err != nil {
			return err
		}
	}

	fd.frameCount++
	fd.log.WithFields(logrus.Fields{"frame": frameNum, "path": path}).Debug("frame dumped")
	return nil
}

// FormatFrame renders the dump text: a header, then one line per row
func (fd *FrameDumper) FormatFrame(frame *display.Frame, frameNum uint64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Frame Buffer Dump\n")
	fmt.Fprintf(&sb, "Frame Number: %d\n", frameNum)
	fmt.Fprintf(&sb, "Dimensions: %dx%d\n", display.Width, display.Height)
	fmt.Fprintf(&sb, "Lit Pixels: %d\n", frame.Lit())
	fmt.Fprintf(&sb, "===================\n\n")

	for y := 0; y < display.Height; y++ {
		fmt.Fprintf(&sb, "%02d ", y)
		for x := 0; x < display.Width; x++ {
			cell := frame.Pixel(x, y)
			switch {
			case fd.pixelFilter != nil && !fd.pixelFilter(x, y, cell):
				sb.WriteByte(' ')
			case cell != 0:
				sb.WriteByte('#')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Image returns the frame as an RGBA image using the dumper colors
func (fd *FrameDumper) Image(frame *display.Frame) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, display.Width, display.Height))
	for y := 0; y < display.Height; y++ {
		for x := 0; x < display.Width; x++ {
			c := fd.off
			if frame.Pixel(x, y) != 0 {
				c = fd.on
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// SavePNG encodes the frame as a 64x32 PNG at path
func (fd *FrameDumper) SavePNG(frame *display.Frame, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create screenshot: %w", err)
	}
	defer f.Close()
	return png.Encode(f, fd.Image(frame))
}

// DumpState writes a register dump next to the frame dumps
func (fd *FrameDumper) DumpState(state cpu.State, frameNum uint64) error {
	if !fd.dumpEnabled {
		return nil
	}
	path := filepath.Join(fd.outputDir, fmt.Sprintf("state_%06d.txt", frameNum))
	return os.WriteFile(path, []byte(FormatState(state)), 0644)
}

// FormatState renders the registers, timers and stack
func FormatState(state cpu.State) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PC: $%03X  I: $%03X  DT: %d  ST: %d  Executed: %d\n",
		state.PC, state.I, state.DelayTimer, state.SoundTimer, state.Executed)
	for i, v := range state.V {
		fmt.Fprintf(&sb, "V%X=%02X", i, v)
		if i%8 == 7 {
			sb.WriteByte('\n')
		} else {
			sb.WriteByte(' ')
		}
	}
	sb.WriteString("Stack:")
	if len(state.Stack) == 0 {
		sb.WriteString(" (empty)")
	}
	for _, addr := range state.Stack {
		fmt.Fprintf(&sb, " $%03X", addr)
	}
	sb.WriteByte('\n')
	return sb.String()
}

// CreateRegionFilter creates a filter for a specific rectangular region
func CreateRegionFilter(x1, y1, x2, y2 int) func(x, y int, cell uint8) bool {
	return func(x, y int, cell uint8) bool {
		return x >= x1 && x <= x2 && y >= y1 && y <= y2
	}
}
