package detection

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Decision is the outcome of scoring a single tile.
type Decision struct {
	Class      int     `json:"class"`
	Confidence float64 `json:"confidence"`
	Margin     float64 `json:"margin"`
	Accepted   bool    `json:"accepted"`
}

// Policy is the accept rule applied to a tile's probability distribution.
type Policy struct {
	MinConfidence float64
	MinMargin     float64
}

// Accept reports whether a classification is confident and well separated.
func (p Policy) Accept(confidence, margin float64) bool {
	return confidence > p.MinConfidence && margin > p.MinMargin
}

// decider turns logits into a Decision using a preallocated buffer.
type decider struct {
	policy Policy
	probs  []float64
}

func newDecider(p Policy, classes int) *decider {
	return &decider{policy: p, probs: make([]float64, classes)}
}

// Decide applies softmax to logits and the policy to the result.
func (d *decider) Decide(logits []float32) Decision {
	probs := d.probs[:len(logits)]
	Softmax(logits, probs)

	best := floats.MaxIdx(probs)
	second := 0.0
	for i, p := range probs {
		if i != best && p > second {
			second = p
		}
	}

	conf := probs[best]
	margin := conf - second
	return Decision{
		Class:      best,
		Confidence: conf,
		Margin:     margin,
		Accepted:   d.policy.Accept(conf, margin),
	}
}

// Softmax writes the probability distribution of logits into probs.
//
// The maximum logit is subtracted before exponentiation so large magnitudes
// cannot overflow. probs must have the same length as logits.
func Softmax(logits []float32, probs []float64) {
	if len(logits) == 0 {
		return
	}
	for i, l := range logits {
		probs[i] = float64(l)
	}
	floats.AddConst(-floats.Max(probs), probs)
	for i, v := range probs {
		probs[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(probs), probs)
}
