package download

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/simonhull/karaoke/internal/types"
)

// unwrap returns the lyric bytes stored at path.
//
// A .zip file yields its first entry, which must be a lyric file. A .xz file
// is decompressed when the name underneath is a lyric file. Plain lyric
// files are returned as they are.
func unwrap(path string) ([]byte, error) {
	name := strings.ToLower(filepath.Base(path))

	switch {
	case strings.HasSuffix(name, ".zip"):
		return unzipFirst(path)
	case strings.HasSuffix(name, ".xz"):
		if !types.IsLyricExtension(strings.TrimSuffix(name, ".xz")) {
			return nil, &Error{Kind: KindUnzip, Message: "unsupported xz payload " + name}
		}
		return unxz(path)
	case types.IsLyricExtension(name):
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{Kind: KindGeneral, Message: "read cached file", Err: err}
		}
		return data, nil
	default:
		return nil, &Error{Kind: KindUnzip, Message: "unsupported file " + name}
	}
}

func unzipFirst(path string) ([]byte, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, &Error{Kind: KindUnzip, Message: "open zip", Err: err}
	}
	defer zr.Close()

	if len(zr.File) == 0 {
		return nil, &Error{Kind: KindUnzip, Message: "empty zip"}
	}
	entry := zr.File[0]
	if !types.IsLyricExtension(entry.Name) {
		return nil, &Error{Kind: KindUnzip, Message: fmt.Sprintf("zip entry %q is not a lyric file", entry.Name)}
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, &Error{Kind: KindUnzip, Message: "open zip entry", Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &Error{Kind: KindUnzip, Message: "read zip entry", Err: err}
	}
	return data, nil
}

func unxz(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindGeneral, Message: "open cached file", Err: err}
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		return nil, &Error{Kind: KindUnzip, Message: "open xz stream", Err: err}
	}
	data, err := io.ReadAll(xr)
	if err != nil {
		return nil, &Error{Kind: KindUnzip, Message: "read xz stream", Err: err}
	}
	return data, nil
}
