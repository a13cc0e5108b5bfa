package signtext

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// ErrUnavailable is returned when the binary was built without Tesseract.
var ErrUnavailable = errors.New("sign text reading unavailable: built without cgo")

// DefaultWhitelist covers the characters that appear on the supported signs.
const DefaultWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// minSide is the short edge tiles are upscaled to before recognition.
// Tesseract performs poorly on glyphs only a few pixels tall.
const minSide = 300

// Options configure a read.
type Options struct {
	// Language is the Tesseract language code, "eng" by default.
	Language string `json:"language" yaml:"language"`

	// Whitelist restricts recognised characters. Empty disables the filter.
	Whitelist string `json:"whitelist" yaml:"whitelist"`

	// TessdataPrefix overrides the directory holding *.traineddata files.
	TessdataPrefix string `json:"tessdata_prefix,omitempty" yaml:"tessdata_prefix"`
}

// DefaultOptions returns English with the sign whitelist.
func DefaultOptions() Options {
	return Options{Language: "eng", Whitelist: DefaultWhitelist}
}

// Bounds is a word box in the coordinates of the image passed to Read.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Word is one recognised word with its confidence (0 to 1).
type Word struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Bounds     Bounds  `json:"bounds"`
}

// Result holds the text found on a sign tile.
type Result struct {
	Text  string `json:"text"`
	Words []Word `json:"words"`
}

// Info describes the recogniser backend.
type Info struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Backend   string `json:"backend"`
	Error     string `json:"error,omitempty"`
}

// prepare converts img to grayscale and upscales it so its short edge is at
// least minSide. It returns the PNG bytes handed to Tesseract and the factor
// used to map word boxes back.
func prepare(img image.Image) ([]byte, float64, error) {
	b := img.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return nil, 0, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}

	gray := imaging.Grayscale(img)
	factor := 1.0
	if short := min(b.Dx(), b.Dy()); short < minSide {
		factor = float64(minSide) / float64(short)
		w := int(float64(b.Dx())*factor + 0.5)
		h := int(float64(b.Dy())*factor + 0.5)
		gray = imaging.Resize(gray, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, gray, imaging.PNG); err != nil {
		return nil, 0, fmt.Errorf("failed to encode tile: %w", err)
	}
	return buf.Bytes(), factor, nil
}

// unscale maps a box found on the prepared image back onto the original.
func unscale(r image.Rectangle, factor float64) Bounds {
	return Bounds{
		X1: int(float64(r.Min.X) / factor),
		Y1: int(float64(r.Min.Y) / factor),
		X2: int(float64(r.Max.X) / factor),
		Y2: int(float64(r.Max.Y) / factor),
	}
}
