package detection

import (
	"math"

	"github.com/ironsheep/signscan/internal/imaging"
)

// CandidateStats are the measurements the colour filter bases its decision on.
type CandidateStats struct {
	RedFraction float32 `json:"red_fraction"`
	Contrast    float32 `json:"contrast"`
	Accepted    bool    `json:"accepted"`
}

// ColorFilter is the cheap gate run before every classifier call.
//
// A tile passes when it holds enough red-like pixels and its average colour
// differs enough from the average of its centre, which is inset by a quarter
// of the side on every edge.
type ColorFilter struct {
	MinRedFraction float32
	MinContrast    float32
}

// NewColorFilter builds the filter from the detector config.
func NewColorFilter(cfg Config) ColorFilter {
	return ColorFilter{MinRedFraction: cfg.MinRedFraction, MinContrast: cfg.MinContrast}
}

// Accept reports whether the size x size tile at (x, y) is worth classifying.
func (f ColorFilter) Accept(img *imaging.Image, x, y, size int) bool {
	return f.Measure(img, x, y, size).Accepted
}

// Measure computes the red fraction and centre contrast of a tile.
// The tile must lie inside img.
func (f ColorFilter) Measure(img *imaging.Image, x, y, size int) CandidateStats {
	var (
		redLike, total, centerTotal int

		rSum, gSum, bSum float32
		rCen, gCen, bCen float32
	)

	inset := size / 4
	lo, hi := inset, size-inset

	for j := 0; j < size; j++ {
		row := img.Span(x, y+j, size)
		inRows := j >= lo && j < hi
		for i := 0; i < size; i++ {
			p := row[i*imaging.Channels : i*imaging.Channels+3]
			r := float32(p[0]) / 255.0
			g := float32(p[1]) / 255.0
			b := float32(p[2]) / 255.0

			h, s, _ := imaging.HSV(p[0], p[1], p[2])
			if imaging.IsRedLike(h, s) {
				redLike++
			}

			rSum += r
			gSum += g
			bSum += b
			if inRows && i >= lo && i < hi {
				rCen += r
				gCen += g
				bCen += b
				centerTotal++
			}
			total++
		}
	}

	redFraction := float32(redLike) / float32(total)

	n, c := float32(total), float32(centerTotal)
	contrast := abs32(rSum/n-rCen/c) + abs32(gSum/n-gCen/c) + abs32(bSum/n-bCen/c)

	return CandidateStats{
		RedFraction: redFraction,
		Contrast:    contrast,
		Accepted:    redFraction > f.MinRedFraction && contrast > f.MinContrast,
	}
}

func abs32(v float32) float32 {
	return float32(math.Abs(float64(v)))
}
