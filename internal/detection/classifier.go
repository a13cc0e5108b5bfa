package detection

import (
	"fmt"

	"github.com/ironsheep/signscan/internal/imaging"
)

// Oracle is the external classifier runtime.
//
// Input and Output expose fixed-size tensors that stay valid for the life of
// the oracle. Invoke runs the model synchronously over the current input.
type Oracle interface {
	// InputShape reports the expected input width, height and channel count.
	InputShape() (width, height, channels int)
	// Input returns the input tensor, laid out as packed HWC float32.
	Input() []float32
	// Invoke scores the current input.
	Invoke() error
	// Output returns one raw score (logit) per class.
	Output() []float32
}

// classifier normalises a resized patch into the oracle's input tensor and
// reads back the logits.
type classifier struct {
	oracle Oracle
	width  int
	height int
}

func newClassifier(o Oracle) (*classifier, error) {
	w, h, c := o.InputShape()
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("%w: oracle input %dx%d", ErrInvalidConfig, w, h)
	}
	if c != imaging.Channels {
		return nil, fmt.Errorf("%w: oracle expects %d channels, want %d", ErrInvalidConfig, c, imaging.Channels)
	}
	if got, want := len(o.Input()), w*h*c; got != want {
		return nil, fmt.Errorf("%w: oracle input tensor holds %d values, want %d", ErrInvalidConfig, got, want)
	}
	if len(o.Output()) < 1 {
		return nil, fmt.Errorf("%w: oracle has no output classes", ErrInvalidConfig)
	}
	return &classifier{oracle: o, width: w, height: h}, nil
}

// minTile is the smallest tile that is never upsampled on either axis.
func (c *classifier) minTile() int {
	if c.width > c.height {
		return c.width
	}
	return c.height
}

// Score loads the patch into the oracle and invokes it. Bytes are mapped
// from [0,255] to [-1,1].
func (c *classifier) Score(patch *imaging.Image) ([]float32, error) {
	in := c.oracle.Input()
	for i, v := range patch.Pix {
		in[i] = (float32(v)/255.0 - 0.5) / 0.5
	}
	if err := c.oracle.Invoke(); err != nil {
		return nil, err
	}
	return c.oracle.Output(), nil
}
