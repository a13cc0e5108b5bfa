// Package oracle provides classifier runtimes for the detector.
//
// TFLite runs a TensorFlow Lite model through the C API (cgo builds only).
// Static returns fixed logits and is used for dry runs and tests.
package oracle

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned by Open when the binary was built without cgo.
	ErrUnavailable = errors.New("tflite runtime unavailable: built without cgo")

	// ErrModel is returned when a model cannot be loaded or has unusable tensors.
	ErrModel = errors.New("unusable model")
)

// Options configure a TFLite interpreter.
type Options struct {
	// Threads is the interpreter thread count. Zero leaves the runtime default.
	Threads int `json:"threads" yaml:"threads"`
}

// Shape describes an NHWC float32 input and a flat class output.
type Shape struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	Channels int `json:"channels"`
	Classes  int `json:"classes"`
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d -> %d", s.Width, s.Height, s.Channels, s.Classes)
}

// Static is an oracle whose output never changes. It counts invocations.
type Static struct {
	shape  Shape
	input  []float32
	logits []float32
	calls  int
}

// NewStatic returns an oracle of the given input size that always yields logits.
func NewStatic(width, height int, logits []float32) (*Static, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: input %dx%d", ErrModel, width, height)
	}
	if len(logits) == 0 {
		return nil, fmt.Errorf("%w: no logits", ErrModel)
	}
	out := make([]float32, len(logits))
	copy(out, logits)
	return &Static{
		shape:  Shape{Width: width, Height: height, Channels: 3, Classes: len(out)},
		input:  make([]float32, width*height*3),
		logits: out,
	}, nil
}

func (s *Static) InputShape() (int, int, int) {
	return s.shape.Width, s.shape.Height, s.shape.Channels
}

func (s *Static) Input() []float32  { return s.input }
func (s *Static) Output() []float32 { return s.logits }

func (s *Static) Invoke() error {
	s.calls++
	return nil
}

// Shape reports the tensor layout.
func (s *Static) Shape() Shape { return s.shape }

// Calls returns the number of Invoke calls so far.
func (s *Static) Calls() int { return s.calls }

// Close is a no-op.
func (s *Static) Close() error { return nil }
