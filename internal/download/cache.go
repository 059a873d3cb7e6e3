package download

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"
)

// cacheName derives the cache file name for rawURL: the last path element,
// or a blake3 digest of the URL with a .zip extension when the path has none.
func cacheName(rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", fmt.Errorf("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", rawURL)
	}

	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" || strings.HasPrefix(base, ".") {
		sum := blake3.Sum256([]byte(rawURL))
		return hex.EncodeToString(sum[:16]) + ".zip", nil
	}
	return base, nil
}

type cacheFile struct {
	path    string
	modTime time.Time
}

// cacheFilesLocked lists the regular files in the cache directory.
func (m *Manager) cacheFilesLocked() ([]cacheFile, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("download: read cache directory: %w", err)
	}

	files := make([]cacheFile, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, cacheFile{path: filepath.Join(m.dir, e.Name()), modTime: info.ModTime()})
	}
	return files, nil
}

// busyLocked reports whether p belongs to a download in flight.
func (m *Manager) busyLocked(p string) bool {
	for _, r := range m.inflight {
		if r.path == p || r.tmp == p {
			return true
		}
	}
	return false
}

// evictExpiredLocked removes cached files older than maxAge.
func (m *Manager) evictExpiredLocked() {
	files, err := m.cacheFilesLocked()
	if err != nil {
		m.logger.WithError(err).Warn("age eviction skipped")
		return
	}

	cutoff := time.Now().Add(-m.maxAge)
	for _, f := range files {
		if !f.modTime.Before(cutoff) || m.busyLocked(f.path) {
			continue
		}
		m.remove(f, "expired")
	}
}

// evictOverflowLocked removes the oldest cached files until at most
// maxFiles remain, skipping files still being downloaded.
func (m *Manager) evictOverflowLocked() {
	files, err := m.cacheFilesLocked()
	if err != nil {
		m.logger.WithError(err).Warn("count eviction skipped")
		return
	}
	if len(files) <= m.maxFiles {
		return
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	excess := len(files) - m.maxFiles
	for _, f := range files {
		if excess == 0 {
			return
		}
		if m.busyLocked(f.path) {
			continue
		}
		if m.remove(f, "over capacity") {
			excess--
		}
	}
}

func (m *Manager) remove(f cacheFile, reason string) bool {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		m.logger.WithField("path", f.path).WithError(err).Warn("evict failed")
		return false
	}
	m.logger.WithFields(logrus.Fields{
		"path":   f.path,
		"reason": reason,
	}).Debug("evicted cache file")
	return true
}
