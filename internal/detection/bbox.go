package detection

import "github.com/ironsheep/signscan/internal/imaging"

// BBox is a rectangle in patch coordinates.
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FindRedBBox returns the box enclosing all red-like pixels of patch, padded
// by a tenth of its extent on each axis and clamped to the patch. ok is false
// when no pixel is red-like.
//
// This is a coarse localisation aid for overlays; the scanner never uses it.
func FindRedBBox(patch *imaging.Image) (box BBox, ok bool) {
	minX, minY := patch.Width, patch.Height
	maxX, maxY := 0, 0

	for j := 0; j < patch.Height; j++ {
		row := patch.Span(0, j, patch.Width)
		for i := 0; i < patch.Width; i++ {
			p := row[i*imaging.Channels:]
			h, s, _ := imaging.HSV(p[0], p[1], p[2])
			if !imaging.IsRedLike(h, s) {
				continue
			}
			ok = true
			minX = min(minX, i)
			minY = min(minY, j)
			maxX = max(maxX, i)
			maxY = max(maxY, j)
		}
	}
	if !ok {
		return BBox{}, false
	}

	w, h := maxX-minX+1, maxY-minY+1
	padX, padY := w/10, h/10

	box.X = max(0, minX-padX)
	box.Y = max(0, minY-padY)
	box.Width = min(patch.Width-box.X, w+2*padX)
	box.Height = min(patch.Height-box.Y, h+2*padY)
	return box, true
}
