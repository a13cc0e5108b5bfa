package imaging

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Channels is the number of bytes per pixel in a packed RGB888 buffer.
const Channels = 3

// ErrInvalidImage is returned when a pixel buffer does not match its declared size.
var ErrInvalidImage = errors.New("invalid image")

// Image is a packed RGB888 pixel buffer.
//
// Pixels are stored row-major with no padding: the pixel at (x, y) starts at
// Pix[(y*Width+x)*3]. The buffer is treated as read-only by the detector; the
// caller owns it and must not mutate it while a scan is running.
type Image struct {
	Pix    []byte
	Width  int
	Height int
}

// NewImage allocates a zeroed RGB888 image of the given size.
func NewImage(width, height int) (*Image, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidImage, width, height)
	}
	return &Image{
		Pix:    make([]byte, width*height*Channels),
		Width:  width,
		Height: height,
	}, nil
}

// FromPix wraps an existing packed RGB888 buffer without copying it.
func FromPix(pix []byte, width, height int) (*Image, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidImage, width, height)
	}
	if want := width * height * Channels; len(pix) != want {
		return nil, fmt.Errorf("%w: buffer holds %d bytes, want %d for %dx%d",
			ErrInvalidImage, len(pix), want, width, height)
	}
	return &Image{Pix: pix, Width: width, Height: height}, nil
}

// FromImage packs any image.Image into a new RGB888 buffer. Alpha is dropped.
func FromImage(img image.Image) (*Image, error) {
	b := img.Bounds()
	out, err := NewImage(b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := 0; y < out.Height; y++ {
			src := nrgba.Pix[(y+b.Min.Y-nrgba.Rect.Min.Y)*nrgba.Stride+(b.Min.X-nrgba.Rect.Min.X)*4:]
			dst := out.Pix[y*out.Width*Channels:]
			for x := 0; x < out.Width; x++ {
				dst[x*3] = src[x*4]
				dst[x*3+1] = src[x*4+1]
				dst[x*3+2] = src[x*4+2]
			}
		}
		return out, nil
	}

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			r, g, bl, _ := img.At(x+b.Min.X, y+b.Min.Y).RGBA()
			i := (y*out.Width + x) * Channels
			out.Pix[i] = uint8(r >> 8)
			out.Pix[i+1] = uint8(g >> 8)
			out.Pix[i+2] = uint8(bl >> 8)
		}
	}
	return out, nil
}

// Contains reports whether the square tile at (x, y) with side size lies
// entirely inside the image.
func (m *Image) Contains(x, y, size int) bool {
	return size > 0 && x >= 0 && y >= 0 && x+size <= m.Width && y+size <= m.Height
}

// RGB returns the pixel at (x, y). It panics if the coordinates are out of range.
func (m *Image) RGB(x, y int) (r, g, b uint8) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		panic(fmt.Sprintf("imaging: pixel (%d,%d) outside %dx%d image", x, y, m.Width, m.Height))
	}
	i := (y*m.Width + x) * Channels
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// SetRGB writes the pixel at (x, y). It panics if the coordinates are out of range.
func (m *Image) SetRGB(x, y int, r, g, b uint8) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		panic(fmt.Sprintf("imaging: pixel (%d,%d) outside %dx%d image", x, y, m.Width, m.Height))
	}
	i := (y*m.Width + x) * Channels
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = r, g, b
}

// Span returns the n pixels of row y starting at column x as a byte slice
// of length n*3 sharing the image buffer.
func (m *Image) Span(x, y, n int) []byte {
	if x < 0 || y < 0 || y >= m.Height || n < 0 || x+n > m.Width {
		panic(fmt.Sprintf("imaging: span (%d,%d)+%d outside %dx%d image", x, y, n, m.Width, m.Height))
	}
	start := (y*m.Width + x) * Channels
	return m.Pix[start : start+n*Channels]
}

// ToNRGBA converts the buffer into a standard library image, fully opaque.
func (m *Image) ToNRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i, j := 0, 0; i < len(m.Pix); i, j = i+3, j+4 {
		out.Pix[j] = m.Pix[i]
		out.Pix[j+1] = m.Pix[i+1]
		out.Pix[j+2] = m.Pix[i+2]
		out.Pix[j+3] = 0xff
	}
	return out
}

// Fill paints every pixel with c.
func (m *Image) Fill(c color.Color) {
	r, g, b, _ := c.RGBA()
	for i := 0; i < len(m.Pix); i += Channels {
		m.Pix[i], m.Pix[i+1], m.Pix[i+2] = uint8(r>>8), uint8(g>>8), uint8(b>>8)
	}
}
