package scoring

import (
	"sync"

	"github.com/simonhull/karaoke/internal/types"
)

// SyncMachine serializes access to a Machine with a mutex.
//
// Listener callbacks run while the lock is held and must not call back into
// the SyncMachine.
type SyncMachine struct {
	mu sync.Mutex
	m  *Machine
}

// NewSyncMachine returns a SyncMachine around a new Machine.
func NewSyncMachine(l Listener, opts ...MachineOption) *SyncMachine {
	return &SyncMachine{m: NewMachine(l, opts...)}
}

// Do runs fn with exclusive access to the underlying Machine.
func (s *SyncMachine) Do(fn func(m *Machine)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.m)
}

// Prepare calls Machine.Prepare under the lock.
func (s *SyncMachine) Prepare(doc *types.Document) {
	s.Do(func(m *Machine) { m.Prepare(doc) })
}

// SetProgress calls Machine.SetProgress under the lock.
func (s *SyncMachine) SetProgress(ts int64) {
	s.Do(func(m *Machine) { m.SetProgress(ts) })
}

// SetPitch calls Machine.SetPitch under the lock.
func (s *SyncMachine) SetPitch(pitch float64, ts int64) {
	s.Do(func(m *Machine) { m.SetPitch(pitch, ts) })
}

// WhenDraggingHappen calls Machine.WhenDraggingHappen under the lock.
func (s *SyncMachine) WhenDraggingHappen(ts int64) {
	s.Do(func(m *Machine) { m.WhenDraggingHappen(ts) })
}

// Reset calls Machine.Reset under the lock.
func (s *SyncMachine) Reset() {
	s.Do(func(m *Machine) { m.Reset() })
}

// State returns the lifecycle state.
func (s *SyncMachine) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.State()
}

// CumulativeScore returns the initial score plus every finished line score.
func (s *SyncMachine) CumulativeScore() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.CumulativeScore()
}

// LineScores returns a copy of the finished line scores.
func (s *SyncMachine) LineScores() map[int]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.LineScores()
}

// RefPitchAt returns the reference pitch at ts.
func (s *SyncMachine) RefPitchAt(ts int64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.RefPitchAt(ts)
}

// CurrentLine returns the index of the displayed line.
func (s *SyncMachine) CurrentLine() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.CurrentLine()
}
