package detection

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/ironsheep/signscan/internal/imaging"
	"github.com/ironsheep/signscan/internal/log"
)

// Outcome is the terminal state of a scan.
type Outcome int

const (
	// Exhausted means every scale and position was tried without a match.
	Exhausted Outcome = iota
	// Accepted means a tile passed the decision policy.
	Accepted
	// Cancelled means the scan's context ended before a terminal state.
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Cancelled:
		return "cancelled"
	default:
		return "exhausted"
	}
}

// MarshalText renders the outcome by name in JSON reports.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText parses an outcome name.
func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "accepted":
		*o = Accepted
	case "cancelled":
		*o = Cancelled
	case "exhausted":
		*o = Exhausted
	default:
		return fmt.Errorf("unknown outcome %q", b)
	}
	return nil
}

// Tile is a square region of the frame.
type Tile struct {
	X    int `json:"x"`
	Y    int `json:"y"`
	Size int `json:"size"`
}

// Result is the classification produced by one scan.
type Result struct {
	Outcome    Outcome `json:"outcome"`
	Class      int     `json:"class"`
	Confidence float64 `json:"confidence"`
	Margin     float64 `json:"margin"`

	// Scale and Tile locate the accepted window; zero otherwise.
	Scale float64 `json:"scale"`
	Tile  Tile    `json:"tile"`

	// Invocations counts classifier calls; Failures those that errored.
	Invocations int `json:"invocations"`
	Failures    int `json:"failures"`
}

// Found reports whether the scan accepted a tile.
func (r Result) Found() bool { return r.Outcome == Accepted }

// Option customises a Detector.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	yield     func()
	allocator Allocator
}

// WithLogger sets the logger used for scan diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithYield replaces the cooperative yield, runtime.Gosched by default.
func WithYield(fn func()) Option {
	return func(o *options) { o.yield = fn }
}

// WithAllocator replaces the source of scratch buffers.
func WithAllocator(a Allocator) Option {
	return func(o *options) { o.allocator = a }
}

// Detector finds at most one road sign per frame.
//
// All scratch memory is obtained in NewDetector and reused for every tile.
// A Detector runs one scan at a time; callers serving concurrent requests
// must serialise Scan calls themselves.
type Detector struct {
	cfg        Config
	filter     ColorFilter
	classifier *classifier
	decider    *decider
	patch      *imaging.Patch
	resized    *imaging.Image
	log        *slog.Logger
	yield      func()

	isCandidate func(img *imaging.Image, x, y, size int) bool
}

// NewDetector validates cfg, checks the oracle's tensor shapes and acquires
// the patch and resize buffers. A failed allocation is reported as
// ErrAllocation; nothing is allocated after this call returns.
func NewDetector(cfg Config, oracle Oracle, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if oracle == nil {
		return nil, fmt.Errorf("%w: nil oracle", ErrInvalidConfig)
	}

	o := options{yield: runtime.Gosched}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.With("component", "detector")
	}
	if o.allocator == nil {
		o.allocator = NewBudgetAllocator(cfg.ScratchBudget)
	}

	cls, err := newClassifier(oracle)
	if err != nil {
		return nil, err
	}
	if cfg.MaxTileSize < cls.minTile() {
		return nil, fmt.Errorf("%w: max tile size %d below classifier input %d",
			ErrInvalidConfig, cfg.MaxTileSize, cls.minTile())
	}

	patchBuf, err := o.allocator.Alloc(cfg.MaxTileSize * cfg.MaxTileSize * imaging.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: patch buffer: %v", ErrAllocation, err)
	}
	resizedBuf, err := o.allocator.Alloc(cls.width * cls.height * imaging.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: resize buffer: %v", ErrAllocation, err)
	}

	patch, err := imaging.NewPatch(patchBuf, cfg.MaxTileSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocation, err)
	}
	resized, err := imaging.FromPix(resizedBuf, cls.width, cls.height)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocation, err)
	}

	d := &Detector{
		cfg:        cfg,
		filter:     NewColorFilter(cfg),
		classifier: cls,
		decider:    newDecider(Policy{MinConfidence: cfg.MinConfidence, MinMargin: cfg.MinMargin}, len(oracle.Output())),
		patch:      patch,
		resized:    resized,
		log:        o.logger,
		yield:      o.yield,
	}
	d.isCandidate = d.filter.Accept
	return d, nil
}

// Config returns the settings the detector was built with.
func (d *Detector) Config() Config { return d.cfg }

// Filter returns the candidate filter in use.
func (d *Detector) Filter() ColorFilter { return d.filter }

// MinTileSize is the smallest tile the scanner will classify.
func (d *Detector) MinTileSize() int { return d.classifier.minTile() }

// Scan runs a full scan of img and returns its result. It blocks until the
// scan is Accepted or Exhausted.
func (d *Detector) Scan(img *imaging.Image) Result {
	res, _ := d.ScanContext(context.Background(), img)
	return res
}

// ScanContext is Scan with cancellation. The context is checked before the
// first tile and at every cooperative yield; when it is done the scan stops
// with Outcome Cancelled and the context's error. Accepted and Exhausted
// results are returned with a nil error.
func (d *Detector) ScanContext(ctx context.Context, img *imaging.Image) (Result, error) {
	res := Result{Outcome: Exhausted, Class: NoClass}
	if err := ctx.Err(); err != nil {
		res.Outcome = Cancelled
		return res, err
	}

	debug := d.log.Enabled(ctx, slog.LevelDebug)
	minTile := d.classifier.minTile()

	for _, scale := range d.cfg.Scales {
		size := int(math.Round(float64(img.Height) * scale))
		if size < minTile || size > img.Width || size > img.Height {
			if debug {
				d.log.Debug("scale skipped", "scale", scale, "tile", size)
			}
			continue
		}
		if size > d.patch.Capacity() {
			d.log.Warn("scale skipped: tile exceeds patch capacity",
				"scale", scale, "tile", size, "capacity", d.patch.Capacity())
			continue
		}
		if debug {
			d.log.Debug("scanning scale", "scale", scale, "tile", size)
		}

		stride := size / 2
		for y := 0; y <= img.Height-size; y += stride {
			for x := 0; x <= img.Width-size; x += stride {
				if !d.isCandidate(img, x, y, size) {
					continue
				}

				dec, ok := d.classify(img, x, y, size, scale)
				res.Invocations++
				if !ok {
					res.Failures++
				} else if debug {
					d.log.Debug("tile scored", "x", x, "y", y, "scale", scale,
						"class", dec.Class, "confidence", dec.Confidence, "margin", dec.Margin)
				}

				if res.Invocations%d.cfg.YieldEvery == 0 {
					d.yield()
				}

				if ok && dec.Accepted {
					res.Outcome = Accepted
					res.Class = dec.Class
					res.Confidence = dec.Confidence
					res.Margin = dec.Margin
					res.Scale = scale
					res.Tile = Tile{X: x, Y: y, Size: size}
					return res, nil
				}

				if res.Invocations%d.cfg.YieldEvery == 0 {
					if err := ctx.Err(); err != nil {
						res.Outcome = Cancelled
						return res, err
					}
				}
			}
		}
	}

	return res, nil
}

// classify extracts, resizes and scores one tile. ok is false when the
// classifier could not produce a result; the failure is logged.
func (d *Detector) classify(img *imaging.Image, x, y, size int, scale float64) (Decision, bool) {
	if err := d.patch.Extract(img, x, y, size); err != nil {
		d.log.Warn("tile extraction failed", "x", x, "y", y, "tile", size, "error", err)
		return Decision{}, false
	}
	d.patch.ResizeInto(d.resized)

	logits, err := d.classifier.Score(d.resized)
	if err != nil {
		d.log.Warn("classifier invocation failed", "x", x, "y", y, "scale", scale, "error", err)
		return Decision{}, false
	}
	return d.decider.Decide(logits), true
}
