package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/ironsheep/signscan/internal/detection"
	"github.com/ironsheep/signscan/internal/imaging"
	"github.com/ironsheep/signscan/internal/log"
	"github.com/ironsheep/signscan/internal/oracle"
	"github.com/ironsheep/signscan/internal/signtext"
)

// createSignPhoto writes a 320x240 grey PNG with a red disk in the middle.
func createSignPhoto(t *testing.T) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 320, 240))
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			dx, dy := x-160, y-120
			c := color.NRGBA{128, 128, 128, 255}
			if dx*dx+dy*dy <= 3600 {
				c = color.NRGBA{220, 30, 30, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "photo.png")
	if err := imaging.SaveImage(path, img); err != nil {
		t.Fatalf("failed to save photo: %v", err)
	}
	return path
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	o, err := oracle.NewStatic(64, 64, []float32{1, 3, 0.5, 0.2, 0.1, 0})
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	det, err := detection.NewDetector(detection.DefaultConfig(), o, detection.WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	frames := imaging.NewFrameCache(imaging.FrameSize{Width: 320, Height: 240})
	return New(det, frames, nil, signtext.DefaultOptions())
}

func TestDetectFile(t *testing.T) {
	p := newTestPipeline(t)
	path := createSignPhoto(t)

	if p.Latest() != nil {
		t.Fatal("Latest should be nil before the first scan")
	}

	rep, frame, err := p.DetectFile(context.Background(), path, Options{})
	if err != nil {
		t.Fatalf("DetectFile failed: %v", err)
	}
	if frame.Width != 320 || frame.Height != 240 {
		t.Errorf("frame = %dx%d, want 320x240", frame.Width, frame.Height)
	}
	if !rep.Found() || rep.Label != "give way" {
		t.Errorf("report = %+v, want give way", rep)
	}
	if rep.Source != path {
		t.Errorf("Source = %q, want %q", rep.Source, path)
	}
	if rep.Text != nil {
		t.Error("Text should be nil when ReadText is off")
	}
	if p.Latest() != rep {
		t.Error("Latest should be the report just produced")
	}
}

func TestDetectFile_ReadTextDoesNotFailScan(t *testing.T) {
	p := newTestPipeline(t)

	rep, _, err := p.DetectFile(context.Background(), createSignPhoto(t), Options{ReadText: true})
	if err != nil {
		t.Fatalf("DetectFile failed: %v", err)
	}
	if !rep.Found() {
		t.Errorf("report = %+v, want accepted", rep)
	}
}

func TestDetectFile_Missing(t *testing.T) {
	p := newTestPipeline(t)
	if _, _, err := p.DetectFile(context.Background(), filepath.Join(t.TempDir(), "none.jpg"), Options{}); err == nil {
		t.Error("DetectFile should fail for a missing photo")
	}
}

func TestDetectImage_Cancelled(t *testing.T) {
	p := newTestPipeline(t)
	frame, err := p.Frames().Load(createSignPhoto(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := p.DetectImage(ctx, frame, "", Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if rep == nil || rep.Outcome != detection.Cancelled {
		t.Errorf("report = %+v, want cancelled", rep)
	}
	if p.Latest() != nil {
		t.Error("a cancelled scan should not replace the latest report")
	}
}
