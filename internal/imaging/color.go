package imaging

import (
	"fmt"
	"math"
)

// Red band used by the candidate test. A pixel is red-like when its
// saturation exceeds RedMinSaturation and its hue lies outside
// [RedHueLow, RedHueHigh], i.e. within the band wrapping through 0°.
const (
	RedMinSaturation float32 = 0.25
	RedHueLow        float32 = 30
	RedHueHigh       float32 = 330
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSVColor represents a color in HSV space.
//
// Hue is in degrees [0, 360); Saturation and Value are in [0, 1].
type HSVColor struct {
	H float32 `json:"h"`
	S float32 `json:"s"`
	V float32 `json:"v"`
}

// ColorResult contains a sampled pixel in the representations used when
// tuning the candidate filter.
type ColorResult struct {
	Hex     string   `json:"hex"`      // Hex format "#RRGGBB"
	RGB     RGBColor `json:"rgb"`      // RGB components
	HSV     HSVColor `json:"hsv"`      // HSV as computed by the candidate filter
	RedLike bool     `json:"red_like"` // Whether the filter counts this pixel as red
}

// SampleColor returns the color at (x, y).
//
// Coordinates are 0-based with origin at top-left. An error is returned when
// the point lies outside the image.
func SampleColor(img *Image, x, y int) (*ColorResult, error) {
	if x < 0 || x >= img.Width || y < 0 || y >= img.Height {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	r, g, b := img.RGB(x, y)
	h, s, v := HSV(r, g, b)

	return &ColorResult{
		Hex:     fmt.Sprintf("#%02X%02X%02X", r, g, b),
		RGB:     RGBColor{R: r, G: g, B: b},
		HSV:     HSVColor{H: h, S: s, V: v},
		RedLike: IsRedLike(h, s),
	}, nil
}

// HSV converts 8-bit RGB to hue (degrees), saturation and value.
//
// The arithmetic is carried out in float32 and follows the classic hexcone
// formula:
//
//	delta = max - min
//	max == r: h = fmod((g-b)/delta, 6)
//	max == g: h = (b-r)/delta + 2
//	max == b: h = (r-g)/delta + 4
//	h *= 60, wrapped into [0, 360)
//
// Hue is 0 when delta <= 0.0001 (achromatic). Saturation is delta/max, or 0
// for black.
func HSV(r8, g8, b8 uint8) (h, s, v float32) {
	r := float32(r8) / 255.0
	g := float32(g8) / 255.0
	b := float32(b8) / 255.0

	max := r
	if g > max {
		max = g
	}
	if b > max {
		max = b
	}
	min := r
	if g < min {
		min = g
	}
	if b < min {
		min = b
	}
	delta := max - min

	if delta > 0.0001 {
		switch max {
		case r:
			h = float32(math.Mod(float64((g-b)/delta), 6))
		case g:
			h = (b-r)/delta + 2
		default:
			h = (r-g)/delta + 4
		}
		h *= 60
		if h < 0 {
			h += 360
		}
	}

	if max != 0 {
		s = delta / max
	}
	return h, s, max
}

// IsRedLike reports whether a hue/saturation pair falls in the red band.
func IsRedLike(h, s float32) bool {
	return s > RedMinSaturation && (h < RedHueLow || h > RedHueHigh)
}
