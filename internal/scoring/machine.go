package scoring

import (
	"github.com/sirupsen/logrus"

	"github.com/simonhull/karaoke/internal/logging"
	"github.com/simonhull/karaoke/internal/types"
)

// State is the lifecycle state of a Machine.
type State int

const (
	// StateIdle means no document is prepared.
	StateIdle State = iota
	// StateReady means a document is prepared and no sample arrived yet.
	StateReady
	// StateRunning means samples are being scored.
	StateRunning
	// StateSeeking means a drag just happened and the next sample resumes.
	StateSeeking
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateSeeking:
		return "seeking"
	default:
		return "unknown"
	}
}

const (
	// DefaultInterval is the assumed sample spacing in ms when the observed
	// spacing is unusable.
	DefaultInterval = 40

	// SilenceThreshold is the number of consecutive unvoiced samples after
	// which the singer counts as silent.
	SilenceThreshold = 10

	maxInterval = 100

	defaultMinRefPitch = 100
)

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithCorrector replaces the octave corrector.
func WithCorrector(c PitchCorrector) MachineOption {
	return func(m *Machine) {
		if c != nil {
			m.corrector = c
		}
	}
}

// WithCurve replaces the score curve.
func WithCurve(c ScoreCurve) MachineOption {
	return func(m *Machine) {
		if c != nil {
			m.curve = c
		}
	}
}

// WithLineScorer replaces the line aggregation.
func WithLineScorer(s LineScorer) MachineOption {
	return func(m *Machine) {
		if s != nil {
			m.lineScorer = s
		}
	}
}

// WithScoringLevel sets the curve steepness, clamped to [1, 100].
func WithScoringLevel(level int) MachineOption {
	return func(m *Machine) {
		m.SetScoringLevel(level)
	}
}

// WithCompensationOffset sets the curve offset, clamped to [0, 100].
func WithCompensationOffset(offset int) MachineOption {
	return func(m *Machine) {
		m.SetCompensationOffset(offset)
	}
}

// WithInitialScore sets the score the cumulative total starts from.
// Negative values become 0.
func WithInitialScore(score float64) MachineOption {
	return func(m *Machine) {
		m.initialScore = max(score, 0)
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(l logrus.FieldLogger) MachineOption {
	return func(m *Machine) {
		m.logger = logging.OrDiscard(l)
	}
}

// Machine synchronizes a lyric document with playback progress and scores
// detected vocal pitch against it.
//
// A Machine is not safe for concurrent use. Wrap it in a SyncMachine when
// progress and pitch arrive on different goroutines.
type Machine struct {
	listener   Listener
	corrector  PitchCorrector
	curve      ScoreCurve
	lineScorer LineScorer
	logger     logrus.FieldLogger

	level        int
	offset       int
	initialScore float64

	doc        *types.Document
	pitchLines []types.PitchLine
	minRef     float64
	maxRef     float64
	firstRefTs int64
	endTs      int64

	state      State
	pitchTs    int64
	progress   int64
	interval   int64
	silence    int
	lineIdx    int
	displayIdx int
	buffer     ScoreBuffer
	lineScores map[int]float64
	cumulative float64
}

// NewMachine returns an idle Machine reporting to l. A nil listener drops
// every event.
func NewMachine(l Listener, opts ...MachineOption) *Machine {
	if l == nil {
		l = NopListener{}
	}

	m := &Machine{
		listener:   l,
		corrector:  DefaultCorrector(),
		curve:      ToneCurve{},
		lineScorer: MeanLineScorer{},
		logger:     logging.Discard(),
		level:      DefaultScoringLevel,
		offset:     DefaultCompensationOffset,
		lineScores: make(map[int]float64),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.Reset()
	return m
}

// Prepare loads doc and moves to StateReady.
//
// The machine works on its own copy; adjacent lines that overlap are clamped
// on that copy. A nil or empty document is replaced by an empty one so the
// host keeps running with no lyrics.
func (m *Machine) Prepare(doc *types.Document) {
	m.Reset()
	defer m.listener.ResetUI()

	if doc.IsEmpty() {
		m.doc = &types.Document{}
		m.state = StateReady
		m.logger.Debug("prepared empty document")
		return
	}

	m.doc = doc.Clone()
	m.clampOverlaps()
	m.firstRefTs = m.doc.PreludeEndPosition
	m.endTs = m.doc.LastEndTime()
	m.pitchLines = m.doc.PitchLines()
	if m.doc.HasPitch {
		m.computeRefRange()
	}
	m.state = StateReady

	m.logger.WithFields(logrus.Fields{
		"format":    m.doc.Format.String(),
		"lines":     len(m.doc.Lines),
		"has_pitch": m.doc.HasPitch,
		"min_ref":   m.minRef,
		"max_ref":   m.maxRef,
	}).Debug("prepared document")
}

// clampOverlaps moves tones that begin before the previous line ends.
func (m *Machine) clampOverlaps() {
	lines := m.doc.Lines
	for i := 1; i < len(lines); i++ {
		prevEnd := lines[i-1].EndTime()
		tones := lines[i].Tones
		for j := range tones {
			if tones[j].Begin >= prevEnd {
				continue
			}
			m.logger.WithFields(logrus.Fields{
				"line":     i,
				"tone":     j,
				"begin":    tones[j].Begin,
				"prev_end": prevEnd,
			}).Debug("clamped overlapping tone")
			tones[j].Begin = prevEnd
			tones[j].End = max(tones[j].End, tones[j].Begin)
		}
	}
}

func (m *Machine) computeRefRange() {
	visit := func(p float64) {
		if p <= 0 {
			return
		}
		m.minRef = min(m.minRef, p)
		m.maxRef = max(m.maxRef, p)
	}

	if len(m.doc.PitchSamples) > 0 {
		for _, s := range m.doc.PitchSamples {
			visit(s.Pitch)
		}
		return
	}
	for _, line := range m.doc.Lines {
		for _, t := range line.Tones {
			visit(t.Pitch)
		}
	}
}

// Reset drops the document and every piece of state, returning to StateIdle.
func (m *Machine) Reset() {
	m.doc = nil
	m.pitchLines = nil
	m.minRef = defaultMinRefPitch
	m.maxRef = 0
	m.firstRefTs = -1
	m.endTs = 0
	m.interval = DefaultInterval
	m.state = StateIdle
	m.minorReset()
	m.resetStats()
}

func (m *Machine) minorReset() {
	m.pitchTs = 0
	m.progress = 0
	m.lineIdx = 0
	m.displayIdx = 0
	m.silence = 0
	m.buffer.Clear()
}

func (m *Machine) resetStats() {
	m.cumulative = m.initialScore
	clear(m.lineScores)
}

// restart rewinds to the start of the prepared document.
func (m *Machine) restart() {
	m.minorReset()
	m.resetStats()
	if m.doc != nil {
		m.state = StateReady
	}
}

// SetProgress moves the display position to ts without scoring.
//
// ts <= 0 restarts the run. A timestamp earlier than the previous one is
// handled as a drag.
func (m *Machine) SetProgress(ts int64) {
	if ts <= 0 {
		m.restart()
		m.listener.ResetUI()
		return
	}
	if ts < m.progress {
		m.WhenDraggingHappen(ts)
	}
	m.progress = ts

	if m.doc == nil {
		return
	}

	if idx := m.displayLine(ts); idx != m.displayIdx {
		m.logger.WithFields(logrus.Fields{
			"line": idx,
			"ts":   ts,
		}).Debug("display line changed")
		m.displayIdx = idx
	}
	m.listener.RequestRefreshUI()
}

// displayLine returns the last line that started at or before ts.
func (m *Machine) displayLine(ts int64) int {
	idx := 0
	for i, line := range m.doc.Lines {
		if line.StartTime() > ts {
			break
		}
		idx = i
	}
	return idx
}

// SetPitch scores one detected pitch sample taken at ts.
func (m *Machine) SetPitch(pitch float64, ts int64) {
	m.updateInterval(ts)

	if ts <= 0 {
		m.restart()
		m.listener.ResetUI()
		return
	}
	if ts < m.pitchTs {
		m.WhenDraggingHappen(ts)
	}
	m.pitchTs = ts

	if m.doc == nil {
		m.listener.ResetUI()
		return
	}
	m.state = StateRunning

	// Nothing is scored after the last line has finished.
	if ts > m.endTs+2*m.interval {
		return
	}

	ref := m.RefPitchAt(ts)

	if pitch <= 0 {
		m.silence++
		if m.silence < SilenceThreshold {
			m.finishLines(ts)
			return
		}
	} else {
		m.silence = 0
	}

	if ref <= 0 || m.silence >= SilenceThreshold {
		m.silence = 0
		m.finishLines(ts)
		m.listener.ResetUI()
		return
	}

	m.finishLines(ts)

	corrected := m.corrector.Correct(pitch, ref, m.maxRef)
	score := m.curve.Score(corrected, ref, m.level, m.offset)
	m.buffer.Add(ts, score)

	m.listener.OnPitchAndScoreUpdate(corrected, score, ts)
	m.listener.RequestRefreshUI()
}

func (m *Machine) updateInterval(ts int64) {
	if ts <= 0 {
		return
	}
	delta := ts - m.pitchTs
	if delta <= 0 || delta > maxInterval {
		delta = DefaultInterval
	}
	m.interval = delta
}

// finishLines scores every line that ts has moved past. Lines that already
// carry a score are skipped, so each line finishes once per pass.
func (m *Machine) finishLines(ts int64) {
	if ts < m.firstRefTs || ts > m.endTs+2*m.interval {
		return
	}

	lines := m.doc.Lines
	for m.lineIdx < len(lines) {
		idx := m.lineIdx
		if _, done := m.lineScores[idx]; done {
			m.lineIdx++
			continue
		}
		if !m.crossed(idx, ts) {
			return
		}

		line := lines[idx]
		score := m.lineScorer.LineScore(&m.buffer, line)
		m.cumulative += score
		m.lineScores[idx] = score
		m.lineIdx++

		m.logger.WithFields(logrus.Fields{
			"line":       idx,
			"score":      score,
			"cumulative": m.cumulative,
			"ts":         ts,
		}).Debug("line finished")
		m.listener.OnLineFinished(line, score, m.cumulative, idx, len(lines))
	}
}

// crossed reports whether ts has left line idx: it is past the line end, or
// the next sample would land after the next line starts.
func (m *Machine) crossed(idx int, ts int64) bool {
	lines := m.doc.Lines
	if ts > lines[idx].EndTime() {
		return true
	}
	return idx+1 < len(lines) && ts+m.interval > lines[idx+1].StartTime()
}

// WhenDraggingHappen resynchronizes after a seek to ts.
//
// The sample buffer and silence counter are cleared, scores of lines
// starting at or after ts are forgotten, and the cumulative score is rebuilt
// from the initial score plus the scores that remain.
func (m *Machine) WhenDraggingHappen(ts int64) {
	m.minorReset()
	if m.doc == nil {
		return
	}

	m.cumulative = m.initialScore
	for idx, line := range m.doc.Lines {
		score, ok := m.lineScores[idx]
		if !ok {
			continue
		}
		if ts <= line.StartTime() {
			delete(m.lineScores, idx)
			continue
		}
		m.cumulative += score
	}
	m.displayIdx = m.displayLine(ts)
	m.state = StateSeeking

	m.logger.WithFields(logrus.Fields{
		"ts":         ts,
		"kept":       len(m.lineScores),
		"cumulative": m.cumulative,
	}).Debug("drag")
}

// RefPitchAt returns the reference pitch at ts, or 0 when there is none.
//
// Side-channel samples take precedence over tone pitches.
func (m *Machine) RefPitchAt(ts int64) float64 {
	if m.doc == nil {
		return 0
	}

	if len(m.doc.PitchSamples) > 0 {
		for _, s := range m.doc.PitchSamples {
			if s.StartTime > ts {
				break
			}
			if ts <= s.EndTime() {
				return s.Pitch
			}
		}
		return 0
	}

	for _, line := range m.doc.Lines {
		if line.StartTime() > ts {
			break
		}
		if !line.Contains(ts) {
			continue
		}
		for _, t := range line.Tones {
			if ts >= t.Begin && ts <= t.End {
				return t.Pitch
			}
		}
	}
	return 0
}

// SetScoringLevel changes the curve steepness, clamped to [1, 100].
func (m *Machine) SetScoringLevel(level int) {
	m.level = clampInt(level, MinScoringLevel, MaxScoringLevel)
}

// SetCompensationOffset changes the curve offset, clamped to [0, 100].
func (m *Machine) SetCompensationOffset(offset int) {
	m.offset = clampInt(offset, MinCompensationOffset, MaxCompensationOffset)
}

// SetInitialScore changes the starting score and shifts the cumulative
// score by the difference. Negative values become 0.
func (m *Machine) SetInitialScore(score float64) {
	score = max(score, 0)
	m.cumulative += score - m.initialScore
	m.initialScore = score
}

// ScoringLevel returns the curve steepness.
func (m *Machine) ScoringLevel() int { return m.level }

// CompensationOffset returns the curve offset.
func (m *Machine) CompensationOffset() int { return m.offset }

// State returns the lifecycle state.
func (m *Machine) State() State { return m.state }

// CumulativeScore returns the initial score plus every finished line score.
func (m *Machine) CumulativeScore() float64 { return m.cumulative }

// LineScores returns a copy of the finished line scores keyed by line index.
func (m *Machine) LineScores() map[int]float64 {
	out := make(map[int]float64, len(m.lineScores))
	for k, v := range m.lineScores {
		out[k] = v
	}
	return out
}

// MinRefPitch returns the lowest positive reference pitch, or 100 when the
// document has none below that.
func (m *Machine) MinRefPitch() float64 { return m.minRef }

// MaxRefPitch returns the highest reference pitch, or 0 without pitch data.
func (m *Machine) MaxRefPitch() float64 { return m.maxRef }

// PitchLines returns the reference pitch projected per line.
func (m *Machine) PitchLines() []types.PitchLine { return m.pitchLines }

// CurrentLine returns the index of the line shown at the current progress.
func (m *Machine) CurrentLine() int { return m.displayIdx }

// Progress returns the last timestamp passed to SetProgress.
func (m *Machine) Progress() int64 { return m.progress }

// Interval returns the smoothed spacing between pitch samples in ms.
func (m *Machine) Interval() int64 { return m.interval }

// Document returns the machine's copy of the prepared document, or nil when
// idle.
func (m *Machine) Document() *types.Document { return m.doc }
