//go:build cgo

package signtext

import (
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Read recognises the text printed on a sign tile.
func Read(img image.Image, opts Options) (*Result, error) {
	data, factor, err := prepare(img)
	if err != nil {
		return nil, err
	}
	if opts.Language == "" {
		opts.Language = "eng"
	}

	client := gosseract.NewClient()
	defer client.Close()

	if opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(opts.TessdataPrefix); err != nil {
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	if err := client.SetLanguage(opts.Language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}
	// Sign legends are a few short words scattered over the face.
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("failed to set page mode: %w", err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	res := &Result{Text: strings.TrimSpace(text)}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err == nil {
		res.Words = make([]Word, 0, len(boxes))
		for _, box := range boxes {
			if strings.TrimSpace(box.Word) == "" {
				continue
			}
			res.Words = append(res.Words, Word{
				Text:       box.Word,
				Confidence: box.Confidence / 100.0,
				Bounds:     unscale(box.Box, factor),
			})
		}
	}
	return res, nil
}

// Available reports whether the recogniser can be used.
func Available() bool { return true }

// Describe returns the Tesseract version in use.
func Describe() Info {
	client := gosseract.NewClient()
	defer client.Close()
	return Info{
		Available: true,
		Version:   client.Version(),
		Backend:   "gosseract",
	}
}
