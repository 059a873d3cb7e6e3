package types

// PitchTrack is a reference pitch curve sampled at a fixed interval.
//
// It comes from the binary pitch file that accompanies XML and LRC lyrics.
type PitchTrack struct {
	Samples  []float64
	Version  int32
	Interval int32 // ms between samples
	Reserved int32
}

// Len returns the number of samples.
func (t *PitchTrack) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Samples)
}

// AverageInWindow averages the positive samples covering [from, to).
//
// Sample indices are (t - origin) / Interval, clamped to the available
// samples. Returns 0 when the track is empty or no sample in the window is
// positive.
func (t *PitchTrack) AverageInWindow(origin, from, to int64) float64 {
	if t.Len() == 0 || t.Interval <= 0 {
		return 0
	}

	interval := int64(t.Interval)
	fromIdx := (from - origin) / interval
	toIdx := (to - origin) / interval

	fromIdx = max(fromIdx, 0)
	toIdx = min(toIdx, int64(len(t.Samples)))

	var total float64
	var count int
	for idx := fromIdx; idx < toIdx; idx++ {
		if p := t.Samples[idx]; p > 0 {
			total += p
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// PitchSample is one reference pitch segment from the KRC side-channel.
type PitchSample struct {
	StartTime int64   `json:"startTime" yaml:"start_time"`
	Duration  int64   `json:"duration" yaml:"duration"`
	Pitch     float64 `json:"pitch" yaml:"pitch"`
}

// EndTime returns StartTime + Duration.
func (s PitchSample) EndTime() int64 {
	return s.StartTime + s.Duration
}

// PitchLine is the reference pitch projected onto one lyric line's window.
type PitchLine struct {
	Pitches []PitchSample
	Begin   int64
	End     int64
}
