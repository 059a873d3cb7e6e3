// Package scoring implements the real-time lyric synchronization and vocal
// scoring state machine.
//
// A Machine is prepared with a parsed document and then fed playback
// progress and detected vocal pitch on a short cadence. It resolves the
// reference pitch at each timestamp, scores voiced samples through a
// PitchCorrector and a ScoreCurve, aggregates per-line scores through a
// LineScorer and reports everything to a Listener.
package scoring

import "math"

// PitchCorrector repairs octave errors from a pitch detector.
type PitchCorrector interface {
	// Correct returns the detected pitch moved toward reference. It
	// returns 0 when either pitch is non-positive.
	Correct(detected, reference, maxReference float64) float64
}

// ScoreCurve maps a corrected pitch to a score in [0, 100].
type ScoreCurve interface {
	Score(pitch, reference float64, level, offset int) float64
}

// Scoring level and compensation offset bounds.
const (
	DefaultScoringLevel = 15
	MinScoringLevel     = 1
	MaxScoringLevel     = 100

	DefaultCompensationOffset = 0
	MinCompensationOffset     = 0
	MaxCompensationOffset     = 100
)

// OctaveCorrector evaluates detected*2^k for k in [MinShift, MaxShift] and
// picks the candidate closest to the reference.
//
// Candidates above twice the larger of reference and maxReference are not
// considered, except the unshifted pitch. Ties keep the smaller |k|.
type OctaveCorrector struct {
	MinShift int
	MaxShift int
}

// DefaultCorrector searches three octaves either way.
func DefaultCorrector() OctaveCorrector {
	return OctaveCorrector{MinShift: -3, MaxShift: 3}
}

// Correct implements PitchCorrector.
func (c OctaveCorrector) Correct(detected, reference, maxReference float64) float64 {
	if detected <= 0 || reference <= 0 || math.IsNaN(detected) || math.IsNaN(reference) {
		return 0
	}

	bound := 2 * math.Max(reference, maxReference)
	best := detected
	bestDist := math.Abs(detected - reference)
	bestShift := 0

	for k := c.MinShift; k <= c.MaxShift; k++ {
		if k == 0 {
			continue
		}
		candidate := detected * math.Pow(2, float64(k))
		if candidate > bound {
			continue
		}
		dist := math.Abs(candidate - reference)
		if dist < bestDist || (dist == bestDist && absInt(k) < absInt(bestShift)) {
			best, bestDist, bestShift = candidate, dist, k
		}
	}
	return best
}

// ToneCurve scores the semitone deviation between pitch and reference.
//
// Deviations inside the tolerance band score 100. The band is half a
// semitone at level 100 and widens toward one semitone as level drops.
// Beyond it the score falls by level percent per semitone, and offset
// percent is added back before clamping to [0, 100].
type ToneCurve struct{}

// DeadZone returns the half-width in semitones of the band scored 100 at
// the given level.
func (ToneCurve) DeadZone(level int) float64 {
	level = clampInt(level, MinScoringLevel, MaxScoringLevel)
	return 0.5 + float64(MaxScoringLevel-level)/200
}

// Score implements ScoreCurve.
func (c ToneCurve) Score(pitch, reference float64, level, offset int) float64 {
	if pitch <= 0 || reference <= 0 {
		return 0
	}

	level = clampInt(level, MinScoringLevel, MaxScoringLevel)
	offset = clampInt(offset, MinCompensationOffset, MaxCompensationOffset)

	d := math.Abs(12 * math.Log2(pitch/reference))
	s := 1 - float64(level)*math.Max(0, d-c.DeadZone(level))/100 + float64(offset)/100
	return clampFloat(s, 0, 1) * 100
}

// ThresholdCurve scores 100 when the pitch is within Tolerance Hz of the
// reference and 0 otherwise. Level and offset are ignored.
type ThresholdCurve struct {
	Tolerance float64
}

// Score implements ScoreCurve.
func (c ThresholdCurve) Score(pitch, reference float64, _, _ int) float64 {
	if pitch <= 0 || reference <= 0 {
		return 0
	}
	tol := c.Tolerance
	if tol <= 0 {
		tol = 5
	}
	if math.Abs(pitch-reference) < tol {
		return 100
	}
	return 0
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
