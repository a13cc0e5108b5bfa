package imaging

import "fmt"

// Patch is a reusable square scratch buffer holding a copy of one tile.
//
// Its capacity is fixed when it is created; Extract never grows the buffer.
// A Patch is owned by a single scan at a time.
type Patch struct {
	buf      []byte
	capacity int
	size     int
}

// NewPatch wraps buf as a patch able to hold tiles up to capacity pixels wide.
func NewPatch(buf []byte, capacity int) (*Patch, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("%w: patch capacity %d", ErrInvalidImage, capacity)
	}
	if need := capacity * capacity * Channels; len(buf) < need {
		return nil, fmt.Errorf("%w: patch buffer holds %d bytes, need %d", ErrInvalidImage, len(buf), need)
	}
	return &Patch{buf: buf, capacity: capacity}, nil
}

// Capacity is the largest tile side the patch can hold.
func (p *Patch) Capacity() int { return p.capacity }

// Size is the side of the tile currently held.
func (p *Patch) Size() int { return p.size }

// Pix returns the packed RGB bytes of the current tile.
func (p *Patch) Pix() []byte { return p.buf[:p.size*p.size*Channels] }

// Image views the current tile as an Image sharing the patch buffer.
func (p *Patch) Image() *Image {
	return &Image{Pix: p.Pix(), Width: p.size, Height: p.size}
}

// Extract copies the size x size tile at (x, y) of src into the patch, row by row.
func (p *Patch) Extract(src *Image, x, y, size int) error {
	if size > p.capacity {
		return fmt.Errorf("tile size %d exceeds patch capacity %d", size, p.capacity)
	}
	if !src.Contains(x, y, size) {
		return fmt.Errorf("tile (%d,%d)+%d outside %dx%d image", x, y, size, src.Width, src.Height)
	}
	p.size = size
	row := size * Channels
	for j := 0; j < size; j++ {
		copy(p.buf[j*row:(j+1)*row], src.Span(x, y+j, size))
	}
	return nil
}

// ResizeInto nearest-neighbour resamples the current tile into dst.
//
// For destination pixel (dx, dy) the source pixel is
// (dx*size/dst.Width, dy*size/dst.Height) using integer division. No
// interpolation is performed.
func (p *Patch) ResizeInto(dst *Image) {
	ResizeNearest(p.Pix(), p.size, p.size, dst)
}

// ResizeNearest resamples a packed RGB buffer of srcW x srcH into dst.
func ResizeNearest(src []byte, srcW, srcH int, dst *Image) {
	for y := 0; y < dst.Height; y++ {
		sy := y * srcH / dst.Height
		for x := 0; x < dst.Width; x++ {
			sx := x * srcW / dst.Width
			s := (sy*srcW + sx) * Channels
			d := (y*dst.Width + x) * Channels
			dst.Pix[d] = src[s]
			dst.Pix[d+1] = src[s+1]
			dst.Pix[d+2] = src[s+2]
		}
	}
}
