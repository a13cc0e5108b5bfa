package oracle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/signscan/internal/detection"
	"github.com/ironsheep/signscan/internal/imaging"
	"github.com/ironsheep/signscan/internal/log"
)

func TestNewStatic(t *testing.T) {
	logits := []float32{1, 3, 0.5, 0.2, 0.1, 0}
	o, err := NewStatic(64, 64, logits)
	if err != nil {
		t.Fatalf("NewStatic failed: %v", err)
	}

	w, h, c := o.InputShape()
	if w != 64 || h != 64 || c != 3 {
		t.Errorf("InputShape = %d,%d,%d, want 64,64,3", w, h, c)
	}
	if len(o.Input()) != 64*64*3 {
		t.Errorf("len(Input) = %d, want %d", len(o.Input()), 64*64*3)
	}
	if o.Shape().Classes != 6 {
		t.Errorf("Classes = %d, want 6", o.Shape().Classes)
	}

	// The oracle keeps its own copy of the logits.
	logits[1] = -10
	if o.Output()[1] != 3 {
		t.Errorf("Output()[1] = %v, want 3", o.Output()[1])
	}

	if err := o.Invoke(); err != nil {
		t.Errorf("Invoke: %v", err)
	}
	if o.Calls() != 1 {
		t.Errorf("Calls = %d, want 1", o.Calls())
	}
}

func TestNewStatic_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		logits []float32
	}{
		{"zero width", 0, 64, []float32{1}},
		{"negative height", 64, -1, []float32{1}},
		{"no logits", 64, 64, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewStatic(tt.w, tt.h, tt.logits); !errors.Is(err, ErrModel) {
				t.Errorf("err = %v, want ErrModel", err)
			}
		})
	}
}

func TestStatic_DrivesDetector(t *testing.T) {
	o, _ := NewStatic(64, 64, []float32{1, 3, 0.5, 0.2, 0.1, 0})
	d, err := detection.NewDetector(detection.DefaultConfig(), o, detection.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}

	img, _ := imaging.NewImage(320, 240)
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			dx, dy := x-160, y-120
			if dx*dx+dy*dy <= 3600 {
				img.SetRGB(x, y, 220, 30, 30)
			} else {
				img.SetRGB(x, y, 128, 128, 128)
			}
		}
	}

	res := d.Scan(img)
	if !res.Found() || res.Class != 1 {
		t.Errorf("result = %+v, want class 1 accepted", res)
	}
	if o.Calls() != res.Invocations {
		t.Errorf("oracle saw %d calls, result reports %d", o.Calls(), res.Invocations)
	}
}

func TestOpen_MissingModel(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.tflite"), Options{Threads: 1})
	if err == nil {
		t.Fatal("Open should fail for a missing model")
	}
	if !errors.Is(err, ErrModel) && !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrModel or ErrUnavailable", err)
	}
}

func TestOpen_Model(t *testing.T) {
	path := os.Getenv("SIGNSCAN_TEST_MODEL")
	if path == "" {
		t.Skip("SIGNSCAN_TEST_MODEL not set")
	}

	m, err := Open(path, Options{Threads: 1})
	if errors.Is(err, ErrUnavailable) {
		t.Skip("built without cgo")
	}
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close()

	s := m.Shape()
	if s.Channels != 3 || s.Width < 1 || s.Height < 1 || s.Classes < 1 {
		t.Errorf("unexpected shape %v", s)
	}
	if len(m.Input()) != s.Width*s.Height*s.Channels {
		t.Errorf("input holds %d values for shape %v", len(m.Input()), s)
	}
	if err := m.Invoke(); err != nil {
		t.Errorf("Invoke: %v", err)
	}
}
