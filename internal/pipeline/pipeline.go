// Package pipeline ties frame loading, detection, reporting and sign text
// reading together for the CLI, HTTP and MCP front ends.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ironsheep/signscan/internal/detection"
	"github.com/ironsheep/signscan/internal/imaging"
	"github.com/ironsheep/signscan/internal/log"
	"github.com/ironsheep/signscan/internal/report"
	"github.com/ironsheep/signscan/internal/signtext"
)

// Options tune what a detection does beyond the scan itself.
type Options struct {
	// ReadText runs OCR over the accepted tile.
	ReadText bool
}

// Pipeline owns a Detector and serialises access to it.
type Pipeline struct {
	mu     sync.Mutex
	det    *detection.Detector
	frames *imaging.FrameCache
	labels detection.Labels
	ocr    signtext.Options
	latest report.Latest
	log    *slog.Logger
}

// New builds a pipeline around det. Frames are loaded through frames.
func New(det *detection.Detector, frames *imaging.FrameCache, labels detection.Labels, ocr signtext.Options) *Pipeline {
	if len(labels) == 0 {
		labels = detection.DefaultLabels
	}
	return &Pipeline{
		det:    det,
		frames: frames,
		labels: labels,
		ocr:    ocr,
		log:    log.With("component", "pipeline"),
	}
}

// Frames returns the frame cache.
func (p *Pipeline) Frames() *imaging.FrameCache { return p.frames }

// Labels returns the class names used in reports.
func (p *Pipeline) Labels() detection.Labels { return p.labels }

// TextOptions returns the OCR options used for ReadText.
func (p *Pipeline) TextOptions() signtext.Options { return p.ocr }

// Detector returns the underlying detector. Callers must not scan with it
// directly while the pipeline is in use.
func (p *Pipeline) Detector() *detection.Detector { return p.det }

// Latest returns the most recent report, or nil before the first scan.
func (p *Pipeline) Latest() *report.Report { return p.latest.Get() }

// DetectFile loads the frame at path and scans it. The frame is returned so
// callers can crop or annotate the accepted tile.
func (p *Pipeline) DetectFile(ctx context.Context, path string, opts Options) (*report.Report, *imaging.Image, error) {
	frame, err := p.frames.Load(path)
	if err != nil {
		return nil, nil, err
	}
	rep, err := p.DetectImage(ctx, frame, path, opts)
	return rep, frame, err
}

// DetectImage scans frame and records the report as the latest result.
// Only a cancelled scan returns an error; the partial report is still
// returned.
func (p *Pipeline) DetectImage(ctx context.Context, frame *imaging.Image, source string, opts Options) (*report.Report, error) {
	p.mu.Lock()
	start := time.Now()
	res, err := p.det.ScanContext(ctx, frame)
	elapsed := time.Since(start)
	p.mu.Unlock()

	rep := report.New(res, p.labels, source, elapsed)
	if err != nil {
		p.log.Warn("scan cancelled", "report", rep, "error", err)
		return rep, fmt.Errorf("scan %s: %w", rep.ScanID, err)
	}

	if opts.ReadText && rep.Found() {
		rep.Text = p.readText(frame, res.Tile)
	}

	p.latest.Set(rep)
	p.log.Info("scan complete", "report", rep)
	return rep, nil
}

func (p *Pipeline) readText(frame *imaging.Image, tile detection.Tile) *signtext.Result {
	crop, err := imaging.CropTile(frame, tile.X, tile.Y, tile.Size, 1.0)
	if err != nil {
		p.log.Warn("cannot crop accepted tile", "error", err)
		return nil
	}
	text, err := signtext.Read(crop, p.ocr)
	if err != nil {
		if errors.Is(err, signtext.ErrUnavailable) {
			p.log.Debug("sign text reading skipped", "error", err)
		} else {
			p.log.Warn("sign text reading failed", "error", err)
		}
		return nil
	}
	return text
}
