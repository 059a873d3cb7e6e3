package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// sungSample is one detected pitch from a performance log.
type sungSample struct {
	ts    int64
	pitch float64
}

// readSamples reads a performance log: one "TS PITCH" pair per line, ts in
// ms and pitch in Hz. Blank lines and lines starting with '#' are ignored.
func readSamples(r io.Reader) ([]sungSample, error) {
	var samples []sungSample
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: want \"TS PITCH\", got %q", n, line)
		}
		ts, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: timestamp: %w", n, err)
		}
		pitch, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: pitch: %w", n, err)
		}
		samples = append(samples, sungSample{ts: ts, pitch: pitch})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

func readSamplesFile(path string) ([]sungSample, error) {
	if path == "-" {
		return readSamples(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	samples, err := readSamples(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}
