package karaoke

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/simonhull/karaoke/internal/logging"
	"github.com/simonhull/karaoke/internal/registry"
	"github.com/simonhull/karaoke/internal/types"
)

// Parse builds a Document from lyric text.
//
// The encoding is sniffed from the content unless WithFormat is given.
// Unrecognized text returns an *UnsupportedFormatError; text that parses to
// no valid timeline returns a *NoDocumentError.
//
// Example:
//
//	doc, err := karaoke.Parse(data, karaoke.WithPitchData(track))
//	if errors.Is(err, karaoke.ErrNoDocument) {
//		// nothing to show
//	}
func Parse(data []byte, opts ...Option) (*Document, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}
	return parse(data, "", options)
}

func parse(data []byte, path string, options *parseOptions) (*Document, error) {
	log := logging.OrDiscard(options.logger)
	if path != "" {
		log = log.WithField("path", path)
	}

	format := options.format
	if format == FormatUnknown {
		format = Sniff(data)
	}
	if format == FormatUnknown {
		return nil, &UnsupportedFormatError{Path: path, Reason: "no lyric encoding recognized"}
	}

	parser := registry.Get(format)
	if parser == nil {
		return nil, &UnsupportedFormatError{
			Path:   path,
			Reason: fmt.Sprintf("no parser available for format %s", format),
		}
	}

	log.WithFields(logrus.Fields{"format": format, "size": len(data)}).Debug("parsing lyrics")

	doc, err := parser.Parse(data, types.ParseOptions{
		Logger:                log,
		PitchData:             options.pitchData,
		TimeOffset:            options.timeOffset,
		IncludeCopyrightLines: options.copyrightLines,
	})
	if err != nil {
		if nd, ok := err.(*NoDocumentError); ok && path != "" && nd.Path == "" {
			nd.Path = path
		}
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}

	if options.strictParsing && len(doc.Warnings) > 0 {
		return nil, fmt.Errorf("strict parsing failed: %s", doc.Warnings[0])
	}
	if options.ignoreWarnings {
		doc.Warnings = nil
	}

	return doc, nil
}

// ParseFile reads and parses the lyric file at path.
//
// The file name plays no part in format detection.
func ParseFile(path string, opts ...Option) (*Document, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return parse(data, path, options)
}

// ParseFileContext is ParseFile with a cancellation check before reading.
func ParseFileContext(ctx context.Context, path string, opts ...Option) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ParseFile(path, opts...)
}

// ParseMany parses multiple lyric files concurrently.
//
// Files are parsed using up to runtime.NumCPU() goroutines. Results are
// returned in the same order as paths. The first failure cancels the rest and
// is returned.
//
// Example:
//
//	docs, err := karaoke.ParseMany(ctx, paths)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for i, doc := range docs {
//		fmt.Printf("%s: %s\n", paths[i], doc.Format)
//	}
func ParseMany(ctx context.Context, paths []string, opts ...Option) ([]*Document, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	results := make([]*Document, len(paths))

	for i, path := range paths {
		g.Go(func() error {
			doc, err := ParseFileContext(ctx, path, opts...)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = doc
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
