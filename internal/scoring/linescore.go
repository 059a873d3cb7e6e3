package scoring

import "github.com/simonhull/karaoke/internal/types"

// Sample is one scored pitch sample.
type Sample struct {
	Timestamp int64
	Score     float64
}

// ScoreBuffer holds the scored samples of the line being sung, in arrival
// order.
type ScoreBuffer struct {
	samples []Sample
}

// Add appends a scored sample.
func (b *ScoreBuffer) Add(ts int64, score float64) {
	b.samples = append(b.samples, Sample{Timestamp: ts, Score: score})
}

// Len returns the number of buffered samples.
func (b *ScoreBuffer) Len() int {
	return len(b.samples)
}

// Samples returns a copy of the buffered samples.
func (b *ScoreBuffer) Samples() []Sample {
	return append([]Sample(nil), b.samples...)
}

// Clear drops every buffered sample.
func (b *ScoreBuffer) Clear() {
	b.samples = b.samples[:0]
}

// TakeUntil removes and returns the samples with Timestamp <= end.
func (b *ScoreBuffer) TakeUntil(end int64) []Sample {
	var taken []Sample
	kept := b.samples[:0]
	for _, s := range b.samples {
		if s.Timestamp <= end {
			taken = append(taken, s)
		} else {
			kept = append(kept, s)
		}
	}
	b.samples = kept
	return taken
}

// LineScorer turns the buffered samples of a finished line into one score.
//
// Implementations consume the samples they use from buf.
type LineScorer interface {
	LineScore(buf *ScoreBuffer, line types.Line) float64
}

// MeanLineScorer averages every buffered score up to the line end. A line
// with no samples scores 0.
type MeanLineScorer struct{}

// LineScore implements LineScorer.
func (MeanLineScorer) LineScore(buf *ScoreBuffer, line types.Line) float64 {
	taken := buf.TakeUntil(line.EndTime())

	var total float64
	for _, s := range taken {
		total += s.Score
	}
	return total / float64(max(len(taken), 1))
}

// ToneLineScorer averages per tone first, then over the tones of the line.
// Tones without samples count as 0, so skipped words cost more than with
// MeanLineScorer.
type ToneLineScorer struct{}

// LineScore implements LineScorer.
func (ToneLineScorer) LineScore(buf *ScoreBuffer, line types.Line) float64 {
	if len(line.Tones) == 0 {
		buf.TakeUntil(line.EndTime())
		return 0
	}

	taken := buf.TakeUntil(line.EndTime())

	var total float64
	next := 0
	for _, tone := range line.Tones {
		var sum float64
		var n int
		for next < len(taken) && taken[next].Timestamp <= tone.End {
			if taken[next].Timestamp >= tone.Begin {
				sum += taken[next].Score
				n++
			}
			next++
		}
		if n > 0 {
			total += sum / float64(n)
		}
	}
	return total / float64(len(line.Tones))
}
