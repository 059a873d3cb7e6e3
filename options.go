package karaoke

import (
	"github.com/sirupsen/logrus"
)

// Option configures parsing.
//
// Options use the functional options pattern:
//
//	doc, err := karaoke.ParseFile("song.krc",
//	    karaoke.WithPitchData(sideChannel),
//	    karaoke.WithTimeOffset(250),
//	)
type Option func(*parseOptions)

// parseOptions holds configuration for one parse.
type parseOptions struct {
	format         Format // FormatUnknown = sniff
	pitchData      []byte
	timeOffset     int64
	copyrightLines bool
	strictParsing  bool // Fail on any warning
	ignoreWarnings bool // Drop all warnings
	logger         logrus.FieldLogger
}

// defaultOptions returns the default configuration.
func defaultOptions() *parseOptions {
	return &parseOptions{
		copyrightLines: true,
	}
}

// WithPitchData supplies reference pitch alongside the lyrics: a binary pitch
// track for XML and LRC, the JSON side-channel for KRC.
func WithPitchData(data []byte) Option {
	return func(o *parseOptions) {
		o.pitchData = data
	}
}

// WithCopyrightLines controls whether leading KRC credit lines that end
// before the first pitch sample are kept. Default true.
//
// When false, the dropped lines are counted in Document.CopyrightLineCount.
func WithCopyrightLines(keep bool) Option {
	return func(o *parseOptions) {
		o.copyrightLines = keep
	}
}

// WithTimeOffset shifts every KRC tone earlier by ms.
func WithTimeOffset(ms int64) Option {
	return func(o *parseOptions) {
		o.timeOffset = ms
	}
}

// WithFormat skips sniffing and parses the input as f.
func WithFormat(f Format) Option {
	return func(o *parseOptions) {
		o.format = f
	}
}

// WithStrictParsing treats any warning as a fatal error.
//
// By default, skipped lines and tones are reported in Document.Warnings and
// parsing continues.
func WithStrictParsing() Option {
	return func(o *parseOptions) {
		o.strictParsing = true
	}
}

// WithIgnoreWarnings discards Document.Warnings.
func WithIgnoreWarnings() Option {
	return func(o *parseOptions) {
		o.ignoreWarnings = true
	}
}

// WithLogger sends parser debug output to l. Nothing is logged by default.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *parseOptions) {
		o.logger = l
	}
}
