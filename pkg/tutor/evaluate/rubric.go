package evaluate

import (
	"ai-tutoring-be/pkg/store"
)

// Weights for the four scoring dimensions. They must sum to 1; the
// defaults put the emphasis on conceptual accuracy and integration, with
// evidence use weighted lowest because the student cannot see the sources.
type Weights struct {
	Accuracy    float64
	Coherence   float64
	Evidence    float64
	Integration float64
}

// DefaultWeights returns the documented default weighting.
func DefaultWeights() Weights {
	return Weights{
		Accuracy:    0.35,
		Coherence:   0.25,
		Evidence:    0.15,
		Integration: 0.25,
	}
}

// Thresholds are the tier cut points on the 0-4 weighted scale. A weighted
// score at or above Strong is strong, at or above Adequate is adequate,
// at or above Partial is partial, and anything below is fail.
type Thresholds struct {
	Strong   float64
	Adequate float64
	Partial  float64
}

// DefaultThresholds returns the documented default cut points.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Strong:   3.5,
		Adequate: 2.5,
		Partial:  1.5,
	}
}

// Rubric combines weights and tier thresholds.
type Rubric struct {
	Weights    Weights
	Thresholds Thresholds
}

func DefaultRubric() Rubric {
	return Rubric{Weights: DefaultWeights(), Thresholds: DefaultThresholds()}
}

// Aggregate computes the weighted mean of the four sub-scores and maps it
// to a performance tier. Sub-scores are clamped to the 0-4 scale first so
// a misbehaving judge cannot push the weighted score out of range.
func (r Rubric) Aggregate(scores store.DimensionScores) (float64, string) {
	a := float64(ClampScore(scores.Accuracy))
	c := float64(ClampScore(scores.Coherence))
	e := float64(ClampScore(scores.Evidence))
	i := float64(ClampScore(scores.Integration))

	weighted := a*r.Weights.Accuracy + c*r.Weights.Coherence + e*r.Weights.Evidence + i*r.Weights.Integration

	switch {
	case weighted >= r.Thresholds.Strong:
		return weighted, store.TierStrong
	case weighted >= r.Thresholds.Adequate:
		return weighted, store.TierAdequate
	case weighted >= r.Thresholds.Partial:
		return weighted, store.TierPartial
	default:
		return weighted, store.TierFail
	}
}

// ClampScore forces a sub-score onto the 0-4 ordinal scale.
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 4 {
		return 4
	}
	return v
}
