package pipeline

import (
	"fmt"
	"image"

	"github.com/ironsheep/signscan/internal/detection"
	"github.com/ironsheep/signscan/internal/imaging"
	"github.com/ironsheep/signscan/internal/report"
)

const (
	tileColor = imaging.DefaultBoxColor
	bboxColor = "#FF0000"
)

// LocateRedBBox finds the red bounding box inside tile, in frame coordinates.
func LocateRedBBox(frame *imaging.Image, tile detection.Tile) (detection.BBox, bool, error) {
	crop, err := imaging.CropTile(frame, tile.X, tile.Y, tile.Size, 1.0)
	if err != nil {
		return detection.BBox{}, false, err
	}
	patch, err := imaging.FromImage(crop)
	if err != nil {
		return detection.BBox{}, false, err
	}
	box, ok := detection.FindRedBBox(patch)
	if !ok {
		return detection.BBox{}, false, nil
	}
	box.X += tile.X
	box.Y += tile.Y
	return box, true, nil
}

// Overlay draws the accepted tile of rep and the red bounding box inside it.
// Frames without a detection are returned unmarked.
func Overlay(frame *imaging.Image, rep *report.Report) (*image.NRGBA, error) {
	if rep == nil || !rep.Found() {
		return imaging.Annotate(frame, nil)
	}

	t := rep.Tile
	boxes := []imaging.Box{{
		X: t.X, Y: t.Y, Width: t.Size, Height: t.Size,
		Color:     tileColor,
		Label:     fmt.Sprintf("%.1f", rep.Confidence*100),
		Thickness: 2,
	}}

	bbox, ok, err := LocateRedBBox(frame, t)
	if err != nil {
		return nil, err
	}
	if ok {
		boxes = append(boxes, imaging.Box{
			X: bbox.X, Y: bbox.Y, Width: bbox.Width, Height: bbox.Height,
			Color: bboxColor,
		})
	}
	return imaging.Annotate(frame, boxes)
}
