package types

import "github.com/sirupsen/logrus"

// ParseOptions carries the per-call settings every format parser receives.
type ParseOptions struct {
	// Logger receives debug output; never nil once normalized
	Logger logrus.FieldLogger

	// Binary pitch track for XML and LRC, side-channel JSON for KRC
	PitchData []byte

	// Subtracted from every KRC tone begin, in ms
	TimeOffset int64

	// Keep leading KRC credit lines that end before the first pitch sample
	IncludeCopyrightLines bool
}
