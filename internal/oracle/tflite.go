//go:build cgo

package oracle

import (
	"fmt"

	"github.com/ironsheep/signscan/internal/log"
	"github.com/mattn/go-tflite"
)

// TFLite is a TensorFlow Lite interpreter bound to one model.
//
// Input and Output alias the interpreter's tensor memory, so writes to the
// input slice are seen by the next Invoke without copying.
type TFLite struct {
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter

	shape  Shape
	input  []float32
	output []float32
}

// Open loads the model at path, allocates its tensors and checks that the
// input is a float32 [1,H,W,3] tensor.
func Open(path string, opts Options) (*TFLite, error) {
	model := tflite.NewModelFromFile(path)
	if model == nil {
		return nil, fmt.Errorf("%w: cannot load %s", ErrModel, path)
	}

	options := tflite.NewInterpreterOptions()
	if opts.Threads > 0 {
		options.SetNumThread(opts.Threads)
	}
	options.SetErrorReporter(func(msg string, _ interface{}) {
		log.Warn("tflite", "message", msg)
	}, nil)

	t := &TFLite{model: model, options: options}

	t.interpreter = tflite.NewInterpreter(model, options)
	if t.interpreter == nil {
		t.Close()
		return nil, fmt.Errorf("%w: cannot create interpreter for %s", ErrModel, path)
	}
	if status := t.interpreter.AllocateTensors(); status != tflite.OK {
		t.Close()
		return nil, fmt.Errorf("%w: tensor allocation failed (status %v)", ErrModel, status)
	}

	if err := t.bind(); err != nil {
		t.Close()
		return nil, err
	}

	log.Info("model loaded", "path", path, "input", fmt.Sprintf("%dx%dx%d", t.shape.Height, t.shape.Width, t.shape.Channels), "classes", t.shape.Classes)
	return t, nil
}

func (t *TFLite) bind() error {
	in := t.interpreter.GetInputTensor(0)
	if in == nil {
		return fmt.Errorf("%w: no input tensor", ErrModel)
	}
	if in.Type() != tflite.Float32 {
		return fmt.Errorf("%w: input tensor type %v, want float32", ErrModel, in.Type())
	}
	if in.NumDims() != 4 || in.Dim(0) != 1 {
		return fmt.Errorf("%w: input tensor must be [1,H,W,C], has %d dims", ErrModel, in.NumDims())
	}
	t.shape.Height = in.Dim(1)
	t.shape.Width = in.Dim(2)
	t.shape.Channels = in.Dim(3)
	if t.shape.Channels != 3 {
		return fmt.Errorf("%w: input has %d channels, want 3", ErrModel, t.shape.Channels)
	}

	out := t.interpreter.GetOutputTensor(0)
	if out == nil {
		return fmt.Errorf("%w: no output tensor", ErrModel)
	}
	if out.Type() != tflite.Float32 {
		return fmt.Errorf("%w: output tensor type %v, want float32", ErrModel, out.Type())
	}

	t.input = in.Float32s()
	t.output = out.Float32s()
	t.shape.Classes = len(t.output)
	if t.shape.Classes == 0 {
		return fmt.Errorf("%w: output tensor is empty", ErrModel)
	}
	return nil
}

func (t *TFLite) InputShape() (int, int, int) {
	return t.shape.Width, t.shape.Height, t.shape.Channels
}

func (t *TFLite) Input() []float32  { return t.input }
func (t *TFLite) Output() []float32 { return t.output }

// Invoke runs the model over the current input tensor.
func (t *TFLite) Invoke() error {
	if status := t.interpreter.Invoke(); status != tflite.OK {
		return fmt.Errorf("tflite invoke failed (status %v)", status)
	}
	return nil
}

// Shape reports the tensor layout found at load time.
func (t *TFLite) Shape() Shape { return t.shape }

// Close releases the interpreter, its options and the model.
func (t *TFLite) Close() error {
	if t.interpreter != nil {
		t.interpreter.Delete()
		t.interpreter = nil
	}
	if t.options != nil {
		t.options.Delete()
		t.options = nil
	}
	if t.model != nil {
		t.model.Delete()
		t.model = nil
	}
	return nil
}
