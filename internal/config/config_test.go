package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/signscan/internal/detection"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signscan.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Frame.Width != 320 || cfg.Frame.Height != 240 {
		t.Errorf("Frame = %+v, want 320x240", cfg.Frame)
	}
	if cfg.ClassLabels().Name(2) != "STOP" {
		t.Errorf("label 2 = %q, want STOP", cfg.ClassLabels().Name(2))
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv(EnvFile, "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
model_path: /models/signs.tflite
threads: 2
frame:
  width: 640
  height: 480
labels: [a, b, c]
detector:
  scales: [1.0, 0.5]
  min_confidence: 0.6
  yield_every: 5
`)
	t.Setenv(EnvFile, path)
	t.Setenv("SIGNSCAN_THREADS", "4")
	t.Setenv("SIGNSCAN_MIN_MARGIN", "0.2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.ModelPath != "/models/signs.tflite" {
		t.Errorf("ModelPath = %q", cfg.ModelPath)
	}
	if cfg.Threads != 4 {
		t.Errorf("Threads = %d, want env override 4", cfg.Threads)
	}
	if cfg.Frame.Width != 640 || cfg.Frame.Height != 480 {
		t.Errorf("Frame = %+v, want 640x480", cfg.Frame)
	}
	if got := cfg.ClassLabels().Name(1); got != "b" {
		t.Errorf("label 1 = %q, want b", got)
	}

	d := cfg.Detector
	if len(d.Scales) != 2 || d.Scales[1] != 0.5 {
		t.Errorf("Scales = %v, want [1 0.5]", d.Scales)
	}
	if d.MinConfidence != 0.6 || d.MinMargin != 0.2 || d.YieldEvery != 5 {
		t.Errorf("detector = %+v", d)
	}
	// Keys absent from the file keep their defaults.
	if d.MinRedFraction != 0.06 || d.MaxTileSize != 240 {
		t.Errorf("unset detector fields lost their defaults: %+v", d)
	}
	if cfg.OCR.Language != "eng" {
		t.Errorf("OCR.Language = %q, want eng", cfg.OCR.Language)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{"unknown key", "colour: red\n", nil},
		{"bad yaml", "threads: [\n", nil},
		{"ascending scales", "detector:\n  scales: [0.5, 1.0]\n", nil},
		{"bad int env", "", map[string]string{"SIGNSCAN_THREADS": "many"}},
		{"bad float env", "", map[string]string{"SIGNSCAN_MIN_CONFIDENCE": "high"}},
		{"negative threads", "threads: -1\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvFile, writeConfig(t, tt.body))
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(EnvFile, filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load()
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestValidate_DetectorError(t *testing.T) {
	cfg := Default()
	cfg.Detector.YieldEvery = 0
	if err := cfg.Validate(); !errors.Is(err, detection.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}
