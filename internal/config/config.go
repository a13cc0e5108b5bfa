// Package config loads signscan settings from defaults, an optional YAML
// file and SIGNSCAN_* environment variables, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ironsheep/signscan/internal/detection"
	"github.com/ironsheep/signscan/internal/imaging"
	"github.com/ironsheep/signscan/internal/signtext"
	"gopkg.in/yaml.v3"
)

// EnvFile names the variable holding the path of the YAML config file.
const EnvFile = "SIGNSCAN_CONFIG"

// Config holds every runtime setting of the binary.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// ModelPath is the TFLite model. Empty selects the static dry-run oracle.
	ModelPath string `yaml:"model_path"`
	Threads   int    `yaml:"threads"`

	// PhotoPath is where serve keeps the frame it publishes at /photo.jpg.
	PhotoPath string `yaml:"photo_path"`
	HTTPAddr  string `yaml:"http_addr"`

	Frame    imaging.FrameSize `yaml:"frame"`
	OCR      signtext.Options  `yaml:"ocr"`
	Labels   []string          `yaml:"labels"`
	Detector detection.Config  `yaml:"detector"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		ModelPath: "",
		Threads:   1,
		PhotoPath: "photo.jpg",
		HTTPAddr:  ":8080",
		Frame:     imaging.FrameSize{Width: 320, Height: 240},
		OCR:       signtext.DefaultOptions(),
		Labels:    append([]string(nil), detection.DefaultLabels...),
		Detector:  detection.DefaultConfig(),
	}
}

// Load builds the configuration from defaults, the file named by
// SIGNSCAN_CONFIG (if set) and environment overrides, then validates it.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvFile); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadFile overlays the YAML file at path onto cfg. Unknown keys are errors.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with any SIGNSCAN_* variables that are set.
func ApplyEnv(cfg *Config) error {
	cfg.LogLevel = getEnv("SIGNSCAN_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("SIGNSCAN_LOG_FORMAT", cfg.LogFormat)
	cfg.ModelPath = getEnv("SIGNSCAN_MODEL", cfg.ModelPath)
	cfg.PhotoPath = getEnv("SIGNSCAN_PHOTO", cfg.PhotoPath)
	cfg.HTTPAddr = getEnv("SIGNSCAN_HTTP_ADDR", cfg.HTTPAddr)
	cfg.OCR.Language = getEnv("SIGNSCAN_OCR_LANGUAGE", cfg.OCR.Language)
	cfg.OCR.TessdataPrefix = getEnv("SIGNSCAN_TESSDATA_PREFIX", cfg.OCR.TessdataPrefix)

	var err error
	if cfg.Threads, err = getEnvInt("SIGNSCAN_THREADS", cfg.Threads); err != nil {
		return err
	}
	if cfg.Frame.Width, err = getEnvInt("SIGNSCAN_FRAME_WIDTH", cfg.Frame.Width); err != nil {
		return err
	}
	if cfg.Frame.Height, err = getEnvInt("SIGNSCAN_FRAME_HEIGHT", cfg.Frame.Height); err != nil {
		return err
	}
	if cfg.Detector.MinConfidence, err = getEnvFloat("SIGNSCAN_MIN_CONFIDENCE", cfg.Detector.MinConfidence); err != nil {
		return err
	}
	if cfg.Detector.MinMargin, err = getEnvFloat("SIGNSCAN_MIN_MARGIN", cfg.Detector.MinMargin); err != nil {
		return err
	}
	return nil
}

// Validate checks the settings the binary cannot start with.
func (c Config) Validate() error {
	if err := c.Detector.Validate(); err != nil {
		return err
	}
	if c.Threads < 0 {
		return fmt.Errorf("threads must be non-negative, got %d", c.Threads)
	}
	if c.Frame.Width < 0 || c.Frame.Height < 0 {
		return fmt.Errorf("frame size %dx%d is negative", c.Frame.Width, c.Frame.Height)
	}
	if c.HTTPAddr == "" {
		return errors.New("http_addr must be set")
	}
	return nil
}

// ClassLabels returns the configured labels, falling back to the defaults.
func (c Config) ClassLabels() detection.Labels {
	if len(c.Labels) == 0 {
		return detection.DefaultLabels
	}
	return detection.Labels(c.Labels)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
