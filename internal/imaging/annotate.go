package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Box is an axis-aligned rectangle to outline on an annotated frame.
type Box struct {
	X, Y          int    // Top-left corner (inclusive)
	Width, Height int    // Extent in pixels
	Color         string // Hex color "#RRGGBB"; empty uses DefaultBoxColor
	Label         string // Optional caption drawn above the box (digits, '.', ',', '-')
	Thickness     int    // Line width in pixels; values < 1 mean 1
}

// DefaultBoxColor is used for boxes without an explicit color.
const DefaultBoxColor = "#00FF00"

// Annotate returns a copy of img with each box outlined.
func Annotate(img *Image, boxes []Box) (*image.NRGBA, error) {
	out := img.ToNRGBA()
	for _, box := range boxes {
		if err := drawBox(out, box); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func drawBox(img *image.NRGBA, box Box) error {
	hex := box.Color
	if hex == "" {
		hex = DefaultBoxColor
	}
	c, err := parseHexColor(hex)
	if err != nil {
		return fmt.Errorf("invalid box color %q: %w", box.Color, err)
	}

	t := box.Thickness
	if t < 1 {
		t = 1
	}
	x1, y1 := box.X, box.Y
	x2, y2 := box.X+box.Width, box.Y+box.Height
	fill := image.NewUniform(c)

	edges := []image.Rectangle{
		image.Rect(x1, y1, x2, y1+t), // top
		image.Rect(x1, y2-t, x2, y2), // bottom
		image.Rect(x1, y1, x1+t, y2), // left
		image.Rect(x2-t, y1, x2, y2), // right
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(img.Bounds()), fill, image.Point{}, draw.Src)
	}

	if box.Label != "" {
		drawLabel(img, x1, y1-8, box.Label, color.NRGBA{255, 255, 255, 255}, color.NRGBA{0, 0, 0, 180})
	}
	return nil
}

// parseHexColor parses a hex color string like "#FF0000".
func parseHexColor(hex string) (color.NRGBA, error) {
	if len(hex) == 0 {
		return color.NRGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] != '#' {
		hex = "#" + hex
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, err
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// drawLabel draws a simple text label at the given position
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	// Simple 3x5 pixel font for digits and punctuation
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
		'.': {"000", "000", "000", "000", "010"},
		'-': {"000", "000", "111", "000", "000"},
	}

	bounds := img.Bounds()
	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	// Draw background
	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			px, py := x+dx, y+dy
			if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
				img.SetNRGBA(px, py, bg)
			}
		}
	}

	// Draw text
	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					px, py := cx+col, y+row
					if px >= bounds.Min.X && px < bounds.Max.X && py >= bounds.Min.Y && py < bounds.Max.Y {
						img.SetNRGBA(px, py, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
