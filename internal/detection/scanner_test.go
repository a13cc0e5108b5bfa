package detection

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ironsheep/signscan/internal/imaging"
	"github.com/ironsheep/signscan/internal/log"
)

// stubOracle returns fixed logits and records how it was driven.
type stubOracle struct {
	w, h   int
	input  []float32
	logits []float32

	fail  func(call int) bool
	calls int
}

func newStubOracle(logits ...float32) *stubOracle {
	return &stubOracle{
		w:      64,
		h:      64,
		input:  make([]float32, 64*64*3),
		logits: logits,
	}
}

func (o *stubOracle) InputShape() (int, int, int) { return o.w, o.h, 3 }
func (o *stubOracle) Input() []float32            { return o.input }
func (o *stubOracle) Output() []float32           { return o.logits }

func (o *stubOracle) Invoke() error {
	o.calls++
	if o.fail != nil && o.fail(o.calls) {
		return errors.New("interpreter busy")
	}
	return nil
}

var (
	acceptLogits = []float32{5, 0, 0, 0, 0, 0}
	rejectLogits = []float32{0, 0, 0, 0, 0, 0}
)

type yieldCounter struct{ n int }

func (y *yieldCounter) yield() { y.n++ }

func newTestDetector(t *testing.T, cfg Config, o Oracle, opts ...Option) *Detector {
	t.Helper()
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	d, err := NewDetector(cfg, o, opts...)
	if err != nil {
		t.Fatalf("NewDetector failed: %v", err)
	}
	return d
}

func alwaysCandidate(*imaging.Image, int, int, int) bool { return true }

func TestScan_TooSmallForClassifier(t *testing.T) {
	tests := []struct {
		name string
		w, h int
	}{
		{"narrow", 63, 100},
		{"short", 200, 63},
		{"tiny", 8, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := newStubOracle(acceptLogits...)
			d := newTestDetector(t, DefaultConfig(), oracle)
			d.isCandidate = alwaysCandidate

			res := d.Scan(createSolidImage(tt.w, tt.h, signRed))
			if res.Outcome != Exhausted {
				t.Errorf("Outcome = %v, want exhausted", res.Outcome)
			}
			if res.Class != NoClass {
				t.Errorf("Class = %d, want %d", res.Class, NoClass)
			}
			if oracle.calls != 0 || res.Invocations != 0 {
				t.Errorf("classifier invoked %d times (reported %d), want 0", oracle.calls, res.Invocations)
			}
		})
	}
}

func TestScan_TileSchedule(t *testing.T) {
	// 320x240 with default scales: tiles of 240, 180, 134, 101 and 74 give
	// 1+2+6+15+35 positions; 53 and 41 fall below the 64 pixel input.
	oracle := newStubOracle(rejectLogits...)
	yc := &yieldCounter{}
	d := newTestDetector(t, DefaultConfig(), oracle, WithYield(yc.yield))

	var tiles []Tile
	d.isCandidate = func(_ *imaging.Image, x, y, size int) bool {
		tiles = append(tiles, Tile{X: x, Y: y, Size: size})
		return true
	}

	res := d.Scan(createSolidImage(320, 240, roadGrey))
	if res.Outcome != Exhausted {
		t.Fatalf("Outcome = %v, want exhausted", res.Outcome)
	}
	if res.Invocations != 59 || oracle.calls != 59 {
		t.Errorf("Invocations = %d (oracle %d), want 59", res.Invocations, oracle.calls)
	}
	if yc.n != 5 {
		t.Errorf("yields = %d, want 5", yc.n)
	}

	perSize := map[int]int{}
	for _, tile := range tiles {
		perSize[tile.Size]++
	}
	want := map[int]int{240: 1, 180: 2, 134: 6, 101: 15, 74: 35}
	for size, n := range want {
		if perSize[size] != n {
			t.Errorf("tiles of %d: got %d, want %d", size, perSize[size], n)
		}
	}

	// Scales are visited large to small, rows top to bottom, left to right.
	for i := 1; i < len(tiles); i++ {
		prev, cur := tiles[i-1], tiles[i]
		if cur.Size > prev.Size {
			t.Fatalf("tile %d grew from %d to %d", i, prev.Size, cur.Size)
		}
		if cur.Size == prev.Size && (cur.Y < prev.Y || (cur.Y == prev.Y && cur.X <= prev.X)) {
			t.Fatalf("tile %d out of raster order: %+v after %+v", i, cur, prev)
		}
	}
	if tiles[len(tiles)-1] != (Tile{X: 222, Y: 148, Size: 74}) {
		t.Errorf("last tile = %+v, want {222 148 74}", tiles[len(tiles)-1])
	}
}

func TestScan_YieldPerTenInvocations(t *testing.T) {
	tests := []struct {
		name      string
		candidate func() func(*imaging.Image, int, int, int) bool
		fail      func(int) bool
	}{
		{
			name:      "every tile",
			candidate: func() func(*imaging.Image, int, int, int) bool { return alwaysCandidate },
		},
		{
			name: "alternate tiles",
			candidate: func() func(*imaging.Image, int, int, int) bool {
				n := 0
				return func(*imaging.Image, int, int, int) bool {
					n++
					return n%2 == 1
				}
			},
		},
		{
			name:      "every invocation fails",
			candidate: func() func(*imaging.Image, int, int, int) bool { return alwaysCandidate },
			fail:      func(int) bool { return true },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := newStubOracle(rejectLogits...)
			oracle.fail = tt.fail
			yc := &yieldCounter{}
			d := newTestDetector(t, DefaultConfig(), oracle, WithYield(yc.yield))
			d.isCandidate = tt.candidate()

			res := d.Scan(createSolidImage(320, 240, roadGrey))
			if res.Invocations == 0 {
				t.Fatal("expected classifier invocations")
			}
			if want := res.Invocations / 10; yc.n != want {
				t.Errorf("yields = %d for %d invocations, want %d", yc.n, res.Invocations, want)
			}
		})
	}
}

func TestScan_OracleFailuresSkipTile(t *testing.T) {
	oracle := newStubOracle(acceptLogits...)
	// Fail the first three calls; the fourth tile is accepted.
	oracle.fail = func(call int) bool { return call <= 3 }
	d := newTestDetector(t, DefaultConfig(), oracle)
	d.isCandidate = alwaysCandidate

	res := d.Scan(createSolidImage(320, 240, roadGrey))
	if res.Outcome != Accepted {
		t.Fatalf("Outcome = %v, want accepted", res.Outcome)
	}
	if res.Failures != 3 {
		t.Errorf("Failures = %d, want 3", res.Failures)
	}
	if res.Invocations != 4 {
		t.Errorf("Invocations = %d, want 4", res.Invocations)
	}
	// Tiles 1-3 are the 240 tile and both 180 tiles; the fourth is the first 134 tile.
	if res.Tile != (Tile{X: 0, Y: 0, Size: 134}) || res.Scale != 0.56 {
		t.Errorf("accepted %+v at scale %v, want {0 0 134} at 0.56", res.Tile, res.Scale)
	}
}

func TestScan_CandidateFilterGatesClassifier(t *testing.T) {
	oracle := newStubOracle(rejectLogits...)
	d := newTestDetector(t, DefaultConfig(), oracle)

	res := d.Scan(createSolidImage(320, 240, roadGrey))
	if res.Invocations != 0 || oracle.calls != 0 {
		t.Errorf("grey frame invoked classifier %d times, want 0", oracle.calls)
	}

	res = d.Scan(createDiskScene(320, 240, 160, 120, 60))
	if res.Invocations != 10 {
		t.Errorf("Invocations = %d, want 10 candidate tiles", res.Invocations)
	}
}

func TestScan_LargestScaleWins(t *testing.T) {
	img := createDiskScene(320, 240, 160, 120, 60)

	small := DefaultConfig()
	small.Scales = []float64{0.42}
	d := newTestDetector(t, small, newStubOracle(acceptLogits...))
	res := d.Scan(img)
	if !res.Found() || res.Scale != 0.42 {
		t.Fatalf("scale 0.42 alone should accept the sign, got %+v", res)
	}
	if res.Tile != (Tile{X: 100, Y: 50, Size: 101}) {
		t.Errorf("Tile = %+v, want {100 50 101}", res.Tile)
	}

	d = newTestDetector(t, DefaultConfig(), newStubOracle(acceptLogits...))
	res = d.Scan(img)
	if !res.Found() {
		t.Fatalf("Outcome = %v, want accepted", res.Outcome)
	}
	if res.Scale != 1.0 || res.Tile != (Tile{X: 0, Y: 0, Size: 240}) {
		t.Errorf("accepted %+v at scale %v, want the full-height tile", res.Tile, res.Scale)
	}
	if res.Invocations != 1 {
		t.Errorf("Invocations = %d, want 1", res.Invocations)
	}
}

func TestScan_EndToEnd(t *testing.T) {
	oracle := newStubOracle(1, 3, 0.5, 0.2, 0.1, 0)
	d := newTestDetector(t, DefaultConfig(), oracle)

	res := d.Scan(createDiskScene(320, 240, 160, 120, 60))
	if res.Outcome != Accepted {
		t.Fatalf("Outcome = %v, want accepted", res.Outcome)
	}
	if res.Class != 1 || DefaultLabels.Name(res.Class) != "give way" {
		t.Errorf("Class = %d (%s), want 1 (give way)", res.Class, DefaultLabels.Name(res.Class))
	}
	if math.Abs(res.Confidence-0.7230) > 1e-3 {
		t.Errorf("Confidence = %v, want ~0.7230", res.Confidence)
	}
	if math.Abs(res.Margin-0.6252) > 1e-3 {
		t.Errorf("Margin = %v, want ~0.6252", res.Margin)
	}

	// Pixel (0,0) of the full-height tile is road grey, mapped into [-1,1].
	want := (float32(128)/255 - 0.5) / 0.5
	if got := oracle.input[0]; math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("input[0] = %v, want %v", got, want)
	}
	// The centre of the resized tile lands inside the disk.
	c := (32*64 + 32) * 3
	wantRed := (float32(220)/255 - 0.5) / 0.5
	if got := oracle.input[c]; math.Abs(float64(got-wantRed)) > 1e-6 {
		t.Errorf("input[centre] = %v, want %v", got, wantRed)
	}
	for i, v := range oracle.input {
		if v < -1 || v > 1 {
			t.Fatalf("input[%d] = %v outside [-1,1]", i, v)
		}
	}
}

func TestScan_RepeatableWithReusedBuffers(t *testing.T) {
	d := newTestDetector(t, DefaultConfig(), newStubOracle(1, 3, 0.5, 0.2, 0.1, 0))
	img := createDiskScene(320, 240, 160, 120, 60)

	first := d.Scan(img)
	for i := 0; i < 3; i++ {
		if got := d.Scan(img); got != first {
			t.Fatalf("scan %d = %+v, want %+v", i+2, got, first)
		}
	}
}

func TestScan_SkipsScalesBeyondPatchCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTileSize = 200
	d := newTestDetector(t, cfg, newStubOracle(acceptLogits...))
	d.isCandidate = alwaysCandidate

	res := d.Scan(createSolidImage(320, 240, roadGrey))
	if res.Scale != 0.75 || res.Tile.Size != 180 {
		t.Errorf("accepted at scale %v size %d, want 0.75 size 180", res.Scale, res.Tile.Size)
	}
}

func TestScanContext_Cancelled(t *testing.T) {
	t.Run("before start", func(t *testing.T) {
		oracle := newStubOracle(rejectLogits...)
		d := newTestDetector(t, DefaultConfig(), oracle)
		d.isCandidate = alwaysCandidate

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		res, err := d.ScanContext(ctx, createSolidImage(320, 240, roadGrey))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if res.Outcome != Cancelled || oracle.calls != 0 {
			t.Errorf("Outcome = %v after %d calls, want cancelled after 0", res.Outcome, oracle.calls)
		}
	})

	t.Run("at yield", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		oracle := newStubOracle(rejectLogits...)
		d := newTestDetector(t, DefaultConfig(), oracle, WithYield(cancel))
		d.isCandidate = alwaysCandidate

		res, err := d.ScanContext(ctx, createSolidImage(320, 240, roadGrey))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if res.Outcome != Cancelled {
			t.Errorf("Outcome = %v, want cancelled", res.Outcome)
		}
		if res.Invocations != 10 {
			t.Errorf("Invocations = %d, want 10", res.Invocations)
		}
	})
}

func TestNewDetector_Errors(t *testing.T) {
	badScales := DefaultConfig()
	badScales.Scales = []float64{0.5, 0.75}

	smallTile := DefaultConfig()
	smallTile.MaxTileSize = 32

	gray := newStubOracle(acceptLogits...)
	gray.input = make([]float32, 64*64)

	noClasses := newStubOracle()

	tests := []struct {
		name    string
		cfg     Config
		oracle  Oracle
		opts    []Option
		wantErr error
	}{
		{"ascending scales", badScales, newStubOracle(acceptLogits...), nil, ErrInvalidConfig},
		{"nil oracle", DefaultConfig(), nil, nil, ErrInvalidConfig},
		{"tile below input", smallTile, newStubOracle(acceptLogits...), nil, ErrInvalidConfig},
		{"input tensor size", DefaultConfig(), gray, nil, ErrInvalidConfig},
		{"no output classes", DefaultConfig(), noClasses, nil, ErrInvalidConfig},
		{"patch budget", DefaultConfig(), newStubOracle(acceptLogits...),
			[]Option{WithAllocator(NewBudgetAllocator(1000))}, ErrAllocation},
		{"resize budget", DefaultConfig(), newStubOracle(acceptLogits...),
			[]Option{WithAllocator(NewBudgetAllocator(240 * 240 * 3))}, ErrAllocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithLogger(log.Discard())}, tt.opts...)
			_, err := NewDetector(tt.cfg, tt.oracle, opts...)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewDetector_DefaultBudgetFits(t *testing.T) {
	a := NewBudgetAllocator(DefaultConfig().ScratchBudget)
	d := newTestDetector(t, DefaultConfig(), newStubOracle(acceptLogits...), WithAllocator(a))

	if want := 240*240*3 + 64*64*3; a.Used() != want {
		t.Errorf("Used = %d, want %d", a.Used(), want)
	}
	if d.MinTileSize() != 64 {
		t.Errorf("MinTileSize = %d, want 64", d.MinTileSize())
	}
}

func TestOutcome_Text(t *testing.T) {
	for _, o := range []Outcome{Exhausted, Accepted, Cancelled} {
		b, err := o.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", o, err)
		}
		var back Outcome
		if err := back.UnmarshalText(b); err != nil || back != o {
			t.Errorf("round trip of %s gave %v, %v", b, back, err)
		}
	}
	var o Outcome
	if err := o.UnmarshalText([]byte("maybe")); err == nil {
		t.Error("expected error for unknown outcome")
	}
}
