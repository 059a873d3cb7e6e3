package krc

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// lineTiming is the "[start,duration]" prefix of a lyric line.
type lineTiming struct {
	Start    int64 `@Int ","`
	Duration int64 `@Int`
}

// toneTiming is the "<offset,duration,pitch>" prefix of a word.
type toneTiming struct {
	Offset   int64   `@Int ","`
	Duration int64   `@Int ","`
	Pitch    float64 `@(Float | Int)`
}

// timingLexer tokenizes the inside of timing tags.
var timingLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Float", Pattern: `[-+]?\d+\.\d*`},
	{Name: "Int", Pattern: `[-+]?\d+`},
	{Name: "Punct", Pattern: `,`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var (
	lineParser = participle.MustBuild[lineTiming](
		participle.Lexer(timingLexer),
		participle.Elide("Whitespace"),
	)
	toneParser = participle.MustBuild[toneTiming](
		participle.Lexer(timingLexer),
		participle.Elide("Whitespace"),
	)
)

// rawTone is one "<...>word" segment before its timing is parsed.
type rawTone struct {
	timing string
	word   string
	closed bool // false when the segment has no '>'
}

// splitLine separates "[start,dur]<a,b,c>w1<d,e,f>w2" into the line timing
// text and its tone segments. ok is false when the line has no bracketed
// prefix.
func splitLine(line string) (timing string, tones []rawTone, ok bool) {
	open := strings.Index(line, "[")
	closing := strings.Index(line, "]")
	if open < 0 || closing < open {
		return "", nil, false
	}
	timing = line[open+1 : closing]

	body := strings.TrimSpace(line[closing+1:])
	for _, part := range strings.Split(body, "<") {
		if part == "" {
			continue
		}
		tag, word, found := strings.Cut(part, ">")
		if !found {
			tones = append(tones, rawTone{timing: part})
			continue
		}
		tones = append(tones, rawTone{timing: tag, word: word, closed: true})
	}
	return timing, tones, true
}
