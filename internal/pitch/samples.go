package pitch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/simonhull/karaoke/internal/types"
)

// sideChannel is the KRC pitch payload. pitchDatas is either an array or a
// JSON string holding that array.
type sideChannel struct {
	PitchDatas json.RawMessage `json:"pitchDatas"`
}

// DecodeSamples decodes the KRC pitch side-channel.
//
// Returns nil, nil for empty input or a payload without pitchDatas.
func DecodeSamples(data []byte) ([]types.PitchSample, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var sc sideChannel
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode pitch side-channel: %w", err)
	}

	raw := bytes.TrimSpace(sc.PitchDatas)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("decode pitchDatas string: %w", err)
		}
		raw = []byte(inner)
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, nil
		}
	}

	var entries []sampleEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode pitchDatas: %w", err)
	}

	samples := make([]types.PitchSample, len(entries))
	for i, e := range entries {
		samples[i] = types.PitchSample{
			StartTime: int64(math.Round(e.StartTime)),
			Duration:  int64(math.Round(e.Duration)),
			Pitch:     e.Pitch,
		}
	}
	return samples, nil
}

// sampleEntry accepts integral or fractional times.
type sampleEntry struct {
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
	Pitch     float64 `json:"pitch"`
}

// EncodeSamples produces a side-channel payload with an inline array.
func EncodeSamples(samples []types.PitchSample) ([]byte, error) {
	arr, err := json.Marshal(samples)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sideChannel{PitchDatas: arr})
}
