package karaoke

// Register the built-in lyric parsers.
import (
	_ "github.com/simonhull/karaoke/internal/krc"
	_ "github.com/simonhull/karaoke/internal/lrc"
	_ "github.com/simonhull/karaoke/internal/xml"
)
