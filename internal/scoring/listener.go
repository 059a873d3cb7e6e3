package scoring

import (
	"sync/atomic"

	"github.com/simonhull/karaoke/internal/types"
)

// Listener receives the events a Machine emits. Calls happen synchronously
// on the goroutine driving the Machine and must return quickly.
type Listener interface {
	// ResetUI asks the display to clear its pitch and score state.
	ResetUI()

	// RequestRefreshUI asks the display to redraw at the current progress.
	RequestRefreshUI()

	// OnPitchAndScoreUpdate reports one scored sample.
	OnPitchAndScoreUpdate(correctedPitch, score float64, ts int64)

	// OnLineFinished reports a finished line. index is 0-based and total is
	// the number of lines in the prepared document.
	OnLineFinished(line types.Line, lineScore, cumulativeScore float64, index, total int)
}

// NopListener ignores every event.
type NopListener struct{}

func (NopListener) ResetUI()                                              {}
func (NopListener) RequestRefreshUI()                                     {}
func (NopListener) OnPitchAndScoreUpdate(float64, float64, int64)         {}
func (NopListener) OnLineFinished(types.Line, float64, float64, int, int) {}

// Listeners fans every event out to each listener in order.
type Listeners []Listener

func (ls Listeners) ResetUI() {
	for _, l := range ls {
		l.ResetUI()
	}
}

func (ls Listeners) RequestRefreshUI() {
	for _, l := range ls {
		l.RequestRefreshUI()
	}
}

func (ls Listeners) OnPitchAndScoreUpdate(pitch, score float64, ts int64) {
	for _, l := range ls {
		l.OnPitchAndScoreUpdate(pitch, score, ts)
	}
}

func (ls Listeners) OnLineFinished(line types.Line, lineScore, cumulative float64, index, total int) {
	for _, l := range ls {
		l.OnLineFinished(line, lineScore, cumulative, index, total)
	}
}

// EventKind identifies the Listener method an Event stands for.
type EventKind int

// Event kinds, one per Listener method.
const (
	EventResetUI EventKind = iota
	EventRefreshUI
	EventPitchScore
	EventLineFinished
)

// String returns the wire name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventResetUI:
		return "reset_ui"
	case EventRefreshUI:
		return "refresh_ui"
	case EventPitchScore:
		return "pitch_score"
	case EventLineFinished:
		return "line_finished"
	default:
		return "unknown"
	}
}

// Event is a Listener call captured as a value.
type Event struct {
	Kind       EventKind   `json:"-"`
	Name       string      `json:"event"`
	Timestamp  int64       `json:"ts,omitempty"`
	Pitch      float64     `json:"pitch,omitempty"`
	Score      float64     `json:"score,omitempty"`
	Line       *types.Line `json:"line,omitempty"`
	LineText   string      `json:"text,omitempty"`
	LineScore  float64     `json:"line_score,omitempty"`
	Cumulative float64     `json:"cumulative,omitempty"`
	Index      int         `json:"index,omitempty"`
	Total      int         `json:"total,omitempty"`
}

// ChannelListener delivers events on a buffered channel without blocking
// the Machine. Events that do not fit are dropped and counted.
type ChannelListener struct {
	C       chan Event
	dropped atomic.Int64
}

// NewChannelListener returns a listener with a channel of the given capacity.
func NewChannelListener(capacity int) *ChannelListener {
	return &ChannelListener{C: make(chan Event, max(capacity, 1))}
}

// Dropped returns how many events were discarded because C was full.
func (c *ChannelListener) Dropped() int64 {
	return c.dropped.Load()
}

func (c *ChannelListener) send(e Event) {
	e.Name = e.Kind.String()
	select {
	case c.C <- e:
	default:
		c.dropped.Add(1)
	}
}

// ResetUI sends an EventResetUI.
func (c *ChannelListener) ResetUI() {
	c.send(Event{Kind: EventResetUI})
}

// RequestRefreshUI sends an EventRefreshUI.
func (c *ChannelListener) RequestRefreshUI() {
	c.send(Event{Kind: EventRefreshUI})
}

// OnPitchAndScoreUpdate sends an EventPitchScore.
func (c *ChannelListener) OnPitchAndScoreUpdate(pitch, score float64, ts int64) {
	c.send(Event{Kind: EventPitchScore, Pitch: pitch, Score: score, Timestamp: ts})
}

// OnLineFinished sends an EventLineFinished carrying a copy of line.
func (c *ChannelListener) OnLineFinished(line types.Line, lineScore, cumulative float64, index, total int) {
	c.send(Event{
		Kind:       EventLineFinished,
		Line:       &line,
		LineText:   line.Text(),
		Timestamp:  line.EndTime(),
		LineScore:  lineScore,
		Cumulative: cumulative,
		Index:      index,
		Total:      total,
	})
}
