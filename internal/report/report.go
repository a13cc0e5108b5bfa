// Package report turns scan results into labelled, identifiable records.
package report

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ironsheep/signscan/internal/detection"
	"github.com/ironsheep/signscan/internal/signtext"
)

// Report is the externally visible record of one scan.
type Report struct {
	ScanID     string            `json:"scan_id"`
	Time       time.Time         `json:"time"`
	Source     string            `json:"source,omitempty"`
	Outcome    detection.Outcome `json:"outcome"`
	Class      int               `json:"class"`
	Label      string            `json:"label"`
	Confidence float64           `json:"confidence"`
	Margin     float64           `json:"margin"`
	Scale      float64           `json:"scale"`
	Tile       detection.Tile    `json:"tile"`

	Invocations int     `json:"invocations"`
	Failures    int     `json:"failures"`
	DurationMS  float64 `json:"duration_ms"`

	// Text is set when the accepted tile was passed through OCR.
	Text *signtext.Result `json:"text,omitempty"`
}

// New labels res and stamps it with a fresh scan ID.
func New(res detection.Result, labels detection.Labels, source string, elapsed time.Duration) *Report {
	return &Report{
		ScanID:      uuid.NewString(),
		Time:        time.Now().UTC(),
		Source:      source,
		Outcome:     res.Outcome,
		Class:       res.Class,
		Label:       labels.Name(res.Class),
		Confidence:  res.Confidence,
		Margin:      res.Margin,
		Scale:       res.Scale,
		Tile:        res.Tile,
		Invocations: res.Invocations,
		Failures:    res.Failures,
		DurationMS:  float64(elapsed.Microseconds()) / 1000,
	}
}

// Found reports whether a sign was accepted.
func (r *Report) Found() bool { return r.Outcome == detection.Accepted }

// Summary is a one-line human description, e.g. "STOP (72.3%)".
func (r *Report) Summary() string {
	if !r.Found() {
		return "no sign (" + r.Outcome.String() + ")"
	}
	return fmt.Sprintf("%s (%.1f%%)", r.Label, r.Confidence*100)
}

// LogValue implements slog.LogValuer.
func (r *Report) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("scan_id", r.ScanID),
		slog.String("outcome", r.Outcome.String()),
		slog.Int("invocations", r.Invocations),
		slog.Float64("duration_ms", r.DurationMS),
	}
	if r.Found() {
		attrs = append(attrs,
			slog.String("label", r.Label),
			slog.Float64("confidence", r.Confidence),
			slog.Float64("margin", r.Margin),
			slog.Float64("scale", r.Scale),
		)
	}
	if r.Failures > 0 {
		attrs = append(attrs, slog.Int("failures", r.Failures))
	}
	return slog.GroupValue(attrs...)
}

// Latest holds the most recent report. It is safe for concurrent use.
type Latest struct {
	mu sync.RWMutex
	r  *Report
}

// Set replaces the stored report.
func (l *Latest) Set(r *Report) {
	l.mu.Lock()
	l.r = r
	l.mu.Unlock()
}

// Get returns the stored report, or nil before the first scan.
func (l *Latest) Get() *Report {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.r
}
