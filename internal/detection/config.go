package detection

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is returned by NewDetector for unusable settings.
	ErrInvalidConfig = errors.New("invalid detector config")

	// ErrAllocation is returned by NewDetector when scratch buffers cannot be obtained.
	ErrAllocation = errors.New("scratch allocation failed")
)

// DefaultScales is the descending list of tile sizes, as fractions of the
// frame height, tried by the scanner.
var DefaultScales = []float64{1.0, 0.75, 0.56, 0.42, 0.31, 0.22, 0.17}

// Config holds the tuning knobs of the detector.
type Config struct {
	// Scales are tile sizes relative to frame height, strictly descending.
	// Larger scales are scanned first and win ties by construction.
	Scales []float64 `json:"scales" yaml:"scales"`

	// MinRedFraction is the share of red-like pixels a tile must exceed.
	MinRedFraction float32 `json:"min_red_fraction" yaml:"min_red_fraction"`

	// MinContrast is the whole-vs-centre colour difference a tile must exceed.
	MinContrast float32 `json:"min_contrast" yaml:"min_contrast"`

	// MinConfidence is the top softmax probability a classification must exceed.
	MinConfidence float64 `json:"min_confidence" yaml:"min_confidence"`

	// MinMargin is the gap between the top two probabilities a classification must exceed.
	MinMargin float64 `json:"min_margin" yaml:"min_margin"`

	// YieldEvery is the number of classifier invocations between cooperative yields.
	YieldEvery int `json:"yield_every" yaml:"yield_every"`

	// MaxTileSize bounds the patch scratch buffer. Scales producing larger
	// tiles are skipped.
	MaxTileSize int `json:"max_tile_size" yaml:"max_tile_size"`

	// ScratchBudget caps the bytes the default allocator hands out. Zero
	// disables the cap.
	ScratchBudget int `json:"scratch_budget" yaml:"scratch_budget"`
}

// DefaultConfig returns the thresholds the classifier was tuned with.
func DefaultConfig() Config {
	return Config{
		Scales:         append([]float64(nil), DefaultScales...),
		MinRedFraction: 0.06,
		MinContrast:    0.2,
		MinConfidence:  0.4,
		MinMargin:      0.1,
		YieldEvery:     10,
		MaxTileSize:    240,
		ScratchBudget:  256 * 1024,
	}
}

// Validate checks the config for values the scanner cannot work with.
func (c Config) Validate() error {
	if len(c.Scales) == 0 {
		return fmt.Errorf("%w: no scales", ErrInvalidConfig)
	}
	for i, s := range c.Scales {
		if s <= 0 {
			return fmt.Errorf("%w: scale %v must be positive", ErrInvalidConfig, s)
		}
		if i > 0 && s >= c.Scales[i-1] {
			return fmt.Errorf("%w: scales must be strictly descending, got %v after %v",
				ErrInvalidConfig, s, c.Scales[i-1])
		}
	}
	if c.MinRedFraction < 0 || c.MinContrast < 0 {
		return fmt.Errorf("%w: candidate thresholds must be non-negative", ErrInvalidConfig)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 || c.MinMargin < 0 || c.MinMargin > 1 {
		return fmt.Errorf("%w: decision thresholds must lie in [0,1]", ErrInvalidConfig)
	}
	if c.YieldEvery < 1 {
		return fmt.Errorf("%w: yield interval %d must be at least 1", ErrInvalidConfig, c.YieldEvery)
	}
	if c.MaxTileSize < 1 {
		return fmt.Errorf("%w: max tile size %d must be at least 1", ErrInvalidConfig, c.MaxTileSize)
	}
	if c.ScratchBudget < 0 {
		return fmt.Errorf("%w: scratch budget %d is negative", ErrInvalidConfig, c.ScratchBudget)
	}
	return nil
}
