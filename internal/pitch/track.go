// Package pitch decodes reference pitch data: the binary pitch track that
// accompanies XML and LRC lyrics, and the JSON side-channel that accompanies
// KRC lyrics.
package pitch

import (
	"fmt"
	"io"
	"math"

	"github.com/simonhull/karaoke/internal/binary"
	"github.com/simonhull/karaoke/internal/types"
)

// HeaderSize is the length of the version/interval/reserved header.
const HeaderSize = 12

// DecodeTrack decodes a binary pitch track.
//
// Short, empty, or unreadable input yields an empty track, never an error.
// Use ReadTrack when the caller needs to know why decoding stopped.
func DecodeTrack(data []byte) *types.PitchTrack {
	track, err := ReadTrack(binary.FromBytes(data, "pitch"))
	if err != nil {
		return &types.PitchTrack{}
	}
	return track
}

// ReadTrack decodes a binary pitch track from sr.
//
// Layout: int32 version, int32 interval (ms), int32 reserved, then float64
// samples, all little-endian. Samples are rounded to three decimals. A
// trailing partial sample is ignored.
func ReadTrack(sr *binary.SafeReader) (*types.PitchTrack, error) {
	if sr.Size() < HeaderSize {
		return nil, &types.CorruptedFileError{
			Path:   sr.Path(),
			Reason: fmt.Sprintf("pitch header needs %d bytes, have %d", HeaderSize, sr.Size()),
		}
	}

	cr := binary.NewChainReader(binary.NewReader(sr, 0))
	track := &types.PitchTrack{
		Version:  binary.ReadChained[int32](cr, "pitch version"),
		Interval: binary.ReadChained[int32](cr, "pitch interval"),
		Reserved: binary.ReadChained[int32](cr, "pitch reserved"),
	}
	if err := cr.Error(); err != nil {
		return nil, err
	}

	count := cr.Remaining() / int64(binary.SizeOf[float64]())
	track.Samples = make([]float64, 0, count)
	for range count {
		v := binary.ReadChained[float64](cr, "pitch sample")
		if err := cr.Error(); err != nil {
			return nil, err
		}
		track.Samples = append(track.Samples, round3(v))
	}

	return track, nil
}

// WriteTrack encodes a track in the layout ReadTrack decodes.
func WriteTrack(w io.Writer, track *types.PitchTrack) error {
	sw := binary.NewSafeWriter(w)
	for _, v := range []int32{track.Version, track.Interval, track.Reserved} {
		if err := binary.Write(sw, v); err != nil {
			return fmt.Errorf("write pitch header: %w", err)
		}
	}
	if err := binary.WriteAll(sw, track.Samples); err != nil {
		return fmt.Errorf("write pitch samples: %w", err)
	}
	return nil
}

func round3(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*1000) / 1000
}
