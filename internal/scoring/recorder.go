package scoring

import "github.com/simonhull/karaoke/internal/types"

type recordedLine struct {
	begin int64
	score float64
}

// LineScoreRecorder keeps one score per line of the source lyric so a host
// can show a per-line breakdown and rewind it on seek.
//
// Leading credit lines a parser dropped still get a slot, so indices match
// the full lyric. It also implements Listener and records every finished
// line it is told about.
type LineScoreRecorder struct {
	NopListener

	lines   []recordedLine
	skipped int
}

// NewLineScoreRecorder builds an all-zero ledger for doc.
func NewLineScoreRecorder(doc *types.Document) *LineScoreRecorder {
	r := &LineScoreRecorder{}
	if doc.IsEmpty() {
		return r
	}

	r.skipped = doc.CopyrightLineCount
	r.lines = make([]recordedLine, 0, r.skipped+len(doc.Lines))
	for range r.skipped {
		r.lines = append(r.lines, recordedLine{})
	}
	for _, line := range doc.Lines {
		r.lines = append(r.lines, recordedLine{begin: line.StartTime()})
	}
	return r
}

// Len returns the number of slots, credit lines included.
func (r *LineScoreRecorder) Len() int {
	return len(r.lines)
}

// SetLineScore stores score for the 1-based line index and returns the new
// total. An out-of-range index changes nothing and returns -1.
func (r *LineScoreRecorder) SetLineScore(index int, score float64) float64 {
	if index <= 0 || index > len(r.lines) {
		return -1
	}
	r.lines[index-1].score = score
	return r.Cumulative()
}

// Rewind zeroes every line beginning at or after ts and returns the new total.
func (r *LineScoreRecorder) Rewind(ts int64) float64 {
	for i := range r.lines {
		if r.lines[i].begin >= ts {
			r.lines[i].score = 0
		}
	}
	return r.Cumulative()
}

// Score returns the score stored for the 1-based line index.
func (r *LineScoreRecorder) Score(index int) float64 {
	if index <= 0 || index > len(r.lines) {
		return 0
	}
	return r.lines[index-1].score
}

// Cumulative returns the sum of every stored line score.
func (r *LineScoreRecorder) Cumulative() float64 {
	var total float64
	for _, l := range r.lines {
		total += l.score
	}
	return total
}

// OnLineFinished records a Machine line score. Machine indices are 0-based
// and exclude dropped credit lines.
func (r *LineScoreRecorder) OnLineFinished(_ types.Line, lineScore, _ float64, index, _ int) {
	r.SetLineScore(r.skipped+index+1, lineScore)
}
