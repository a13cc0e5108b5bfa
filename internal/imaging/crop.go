package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropResult contains the cropped tile data
type CropResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// CropTile extracts the square tile at (x, y) and returns it as an image,
// optionally scaled.
func CropTile(img *Image, x, y, size int, scale float64) (*image.NRGBA, error) {
	if !img.Contains(x, y, size) {
		return nil, fmt.Errorf("tile (%d,%d)+%d outside image bounds %dx%d",
			x, y, size, img.Width, img.Height)
	}

	cropped := imaging.Crop(img.ToNRGBA(), image.Rect(x, y, x+size, y+size))

	if scale != 1.0 && scale > 0 {
		side := int(float64(size) * scale)
		if side < 1 {
			side = 1
		}
		cropped = imaging.Resize(cropped, side, side, imaging.Lanczos)
	}
	return cropped, nil
}

// Crop extracts a tile and encodes it as base64 PNG.
func Crop(img *Image, x, y, size int, scale float64) (*CropResult, error) {
	cropped, err := CropTile(img, x, y, size, scale)
	if err != nil {
		return nil, err
	}

	encoded, err := EncodePNG(cropped)
	if err != nil {
		return nil, err
	}

	return &CropResult{
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: base64.StdEncoding.EncodeToString(encoded),
		MimeType:    "image/png",
	}, nil
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
