package karaoke

import "github.com/simonhull/karaoke/internal/scoring"

// Machine is an alias to scoring.Machine.
type Machine = scoring.Machine

// SyncMachine is an alias to scoring.SyncMachine.
type SyncMachine = scoring.SyncMachine

// MachineOption is an alias to scoring.MachineOption.
type MachineOption = scoring.MachineOption

// State is an alias to scoring.State.
type State = scoring.State

const (
	StateIdle    = scoring.StateIdle
	StateReady   = scoring.StateReady
	StateRunning = scoring.StateRunning
	StateSeeking = scoring.StateSeeking
)

// DefaultInterval is the assumed spacing of pitch samples in ms.
const DefaultInterval = scoring.DefaultInterval

const (
	EventResetUI      = scoring.EventResetUI
	EventRefreshUI    = scoring.EventRefreshUI
	EventPitchScore   = scoring.EventPitchScore
	EventLineFinished = scoring.EventLineFinished
)

type (
	Listener          = scoring.Listener
	NopListener       = scoring.NopListener
	Listeners         = scoring.Listeners
	ChannelListener   = scoring.ChannelListener
	Event             = scoring.Event
	EventKind         = scoring.EventKind
	LineScoreRecorder = scoring.LineScoreRecorder
	PitchCorrector    = scoring.PitchCorrector
	ScoreCurve        = scoring.ScoreCurve
	LineScorer        = scoring.LineScorer
)

// NewMachine returns an idle scoring machine reporting to l.
func NewMachine(l Listener, opts ...MachineOption) *Machine {
	return scoring.NewMachine(l, opts...)
}

// NewSyncMachine returns a Machine guarded by a mutex.
func NewSyncMachine(l Listener, opts ...MachineOption) *SyncMachine {
	return scoring.NewSyncMachine(l, opts...)
}

// NewChannelListener returns a listener that publishes events on a buffered
// channel of the given capacity.
func NewChannelListener(capacity int) *ChannelListener {
	return scoring.NewChannelListener(capacity)
}

// NewLineScoreRecorder returns a per-line score ledger for doc.
func NewLineScoreRecorder(doc *Document) *LineScoreRecorder {
	return scoring.NewLineScoreRecorder(doc)
}

// Machine options, re-exported.
var (
	WithCorrector          = scoring.WithCorrector
	WithCurve              = scoring.WithCurve
	WithLineScorer         = scoring.WithLineScorer
	WithScoringLevel       = scoring.WithScoringLevel
	WithCompensationOffset = scoring.WithCompensationOffset
	WithInitialScore       = scoring.WithInitialScore
	WithMachineLogger      = scoring.WithLogger
)
