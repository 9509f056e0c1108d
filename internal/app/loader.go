package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gochip8/internal/memory"
)

// ErrEmptyProgram is returned for a zero-length program image
var ErrEmptyProgram = errors.New("program image is empty")

// IOFault reports a program image that could not be loaded
type IOFault struct {
	Path string
	Err  error
}

func (e *IOFault) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to load program: %v", e.Err)
	}
	return fmt.Sprintf("failed to load program %s: %v", e.Path, e.Err)
}

func (e *IOFault) Unwrap() error {
	return e.Err
}

// LoadProgram reads a program image from disk
func LoadProgram(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOFault{Path: path, Err: err}
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Mode().IsRegular() && info.Size() > memory.MaxProgramSize {
		return nil, &IOFault{Path: path, Err: &memory.ProgramSizeError{Size: int(info.Size())}}
	}

	program, err := ReadProgram(f)
	if err != nil {
		var fault *IOFault
		if errors.As(err, &fault) {
			fault.Path = path
		}
		return nil, err
	}
	return program, nil
}

// ReadProgram reads a raw program image, rejecting anything that would
// not fit above 0x200. At most one byte past the limit is consumed, so the
// size reported for an oversized stream is a lower bound.
func ReadProgram(r io.Reader) ([]byte, error) {
	program, err := io.ReadAll(io.LimitReader(r, memory.MaxProgramSize+1))
	if err != nil {
		return nil, &IOFault{Err: err}
	}
	if len(program) == 0 {
		return nil, &IOFault{Err: ErrEmptyProgram}
	}
	if len(program) > memory.MaxProgramSize {
		return nil, &IOFault{Err: &memory.ProgramSizeError{Size: len(program)}}
	}
	return program, nil
}
