// Package download fetches lyric files over HTTP into a bounded on-disk
// cache.
//
// A Manager deduplicates in-flight URLs, serves cached files without
// touching the network, unwraps zip and xz payloads and evicts cache entries
// by age and by count. Results are only ever reported through Callbacks.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/simonhull/karaoke/internal/logging"
)

// Defaults for a new Manager.
const (
	DefaultMaxFiles = 50
	DefaultMaxAge   = 8 * time.Hour
	DefaultWorkers  = 3
)

// Callbacks receive download results. Both run on a Manager goroutine.
type Callbacks struct {
	// Progress reports the fraction received in [0, 1], or 0 when the
	// server sent no length.
	Progress func(id int, progress float64)

	// Completed reports the lyric bytes or a *Error. A cancelled request
	// never completes.
	Completed func(id int, data []byte, err error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxFiles caps the number of cached files. Non-positive values are
// ignored.
func WithMaxFiles(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxFiles = n
		}
	}
}

// WithMaxAge sets how long a cached file stays valid. Non-positive values are
// ignored.
func WithMaxAge(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.maxAge = d
		}
	}
}

// WithWorkers limits concurrent transfers.
func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = n
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		if c != nil {
			m.client = c
		}
	}
}

// WithCallbacks sets the result callbacks.
func WithCallbacks(cb Callbacks) Option {
	return func(m *Manager) {
		m.callbacks = cb
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Manager) {
		m.logger = logging.OrDiscard(l)
	}
}

type request struct {
	id     int
	url    string
	path   string
	tmp    string
	cancel context.CancelFunc
}

// Manager downloads lyric files into a cache directory.
type Manager struct {
	dir       string
	client    *http.Client
	callbacks Callbacks
	logger    logrus.FieldLogger
	maxFiles  int
	maxAge    time.Duration
	workers   int
	sem       *semaphore.Weighted

	mu       sync.Mutex
	lastID   int
	inflight map[string]*request
	wg       sync.WaitGroup
}

// New returns a Manager caching into dir, creating it if needed.
func New(dir string, opts ...Option) (*Manager, error) {
	if dir == "" {
		return nil, errors.New("download: empty cache directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("download: create cache directory: %w", err)
	}

	m := &Manager{
		dir:      dir,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logging.Discard(),
		maxFiles: DefaultMaxFiles,
		maxAge:   DefaultMaxAge,
		workers:  DefaultWorkers,
		lastID:   -1,
		inflight: make(map[string]*request),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sem = semaphore.NewWeighted(int64(m.workers))
	return m, nil
}

// Dir returns the cache directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Download starts fetching url and returns its request id.
//
// A URL already in flight is not fetched again: Completed receives a
// KindRepeat error under the existing id, which is returned. A valid cached
// file is delivered without network access.
func (m *Manager) Download(ctx context.Context, url string) int {
	log := m.logger.WithField("url", url)

	m.mu.Lock()
	if r, ok := m.inflight[url]; ok {
		m.mu.Unlock()
		id := r.id
		log.WithField("request", id).Info("already downloading")
		m.spawn(func() { m.complete(id, nil, &Error{Kind: KindRepeat, Message: "already downloading " + url}) })
		return id
	}

	id := m.nextID()
	log = log.WithField("request", id)

	name, err := cacheName(url)
	if err != nil {
		m.mu.Unlock()
		m.spawn(func() { m.complete(id, nil, &Error{Kind: KindGeneral, Message: "invalid url", Err: err}) })
		return id
	}

	m.evictExpiredLocked()

	path := filepath.Join(m.dir, name)
	if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
		m.mu.Unlock()
		log.WithField("path", path).Debug("serving cached file")
		m.spawn(func() { m.deliver(id, path) })
		return id
	}

	ctx, cancel := context.WithCancel(ctx)
	r := &request{
		id:     id,
		url:    url,
		path:   path,
		tmp:    filepath.Join(m.dir, "."+uuid.NewString()+".part"),
		cancel: cancel,
	}
	m.inflight[url] = r
	m.mu.Unlock()

	log.WithField("path", path).Info("download queued")
	m.spawn(func() { m.run(ctx, r) })
	return id
}

// nextID advances the request counter, wrapping before math.MaxInt32.
func (m *Manager) nextID() int {
	if m.lastID+1 == math.MaxInt32 {
		m.lastID = -1
	}
	m.lastID++
	return m.lastID
}

func (m *Manager) spawn(fn func()) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
}

func (m *Manager) run(ctx context.Context, r *request) {
	defer r.cancel()
	log := m.logger.WithFields(logrus.Fields{"request": r.id, "url": r.url})

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.finish(r)
		log.Debug("cancelled before start")
		return
	}
	err := m.fetch(ctx, r)
	m.sem.Release(1)

	if err != nil {
		_ = os.Remove(r.tmp)
		if !m.finish(r) {
			log.Debug("cancelled")
			return
		}
		log.WithError(err).Warn("download failed")
		m.complete(r.id, nil, err)
		return
	}

	if !m.finish(r) {
		log.Debug("cancelled after fetch")
		return
	}
	log.Info("download finished")
	m.deliver(r.id, r.path)
}

// finish drops r from the in-flight set. It returns false when r had
// already been cancelled.
func (m *Manager) finish(r *request) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.inflight[r.url]; ok && cur == r {
		delete(m.inflight, r.url)
		return true
	}
	return false
}

func (m *Manager) fetch(ctx context.Context, r *request) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return &Error{Kind: KindGeneral, Message: "build request", Err: err}
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return &Error{Kind: KindHTTP, Code: -1, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Kind: KindHTTPLogic, Code: resp.StatusCode, Message: resp.Status}
	}

	f, err := os.Create(r.tmp)
	if err != nil {
		return &Error{Kind: KindGeneral, Message: "create temp file", Err: err}
	}

	pw := &progressWriter{total: resp.ContentLength, report: func(p float64) {
		if m.callbacks.Progress != nil {
			m.callbacks.Progress(r.id, p)
		}
	}}
	if _, err := io.Copy(io.MultiWriter(f, pw), resp.Body); err != nil {
		f.Close()
		return &Error{Kind: KindHTTP, Code: -1, Message: "read body", Err: err}
	}
	if err := f.Close(); err != nil {
		return &Error{Kind: KindGeneral, Message: "close temp file", Err: err}
	}

	if err := os.Rename(r.tmp, r.path); err != nil {
		return &Error{Kind: KindGeneral, Message: "store download", Err: err}
	}
	return nil
}

type progressWriter struct {
	total   int64
	written int64
	report  func(float64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	var progress float64
	if w.total > 0 {
		progress = float64(w.written*100/w.total) / 100
	}
	w.report(progress)
	return len(p), nil
}

// deliver unwraps a cached file and completes the request with its bytes.
func (m *Manager) deliver(id int, path string) {
	m.mu.Lock()
	m.evictExpiredLocked()
	m.mu.Unlock()

	data, err := unwrap(path)
	if err != nil {
		m.logger.WithFields(logrus.Fields{"request": id, "path": path}).WithError(err).Warn("unwrap failed")
		m.complete(id, nil, err)
		return
	}
	m.complete(id, data, nil)
}

func (m *Manager) complete(id int, data []byte, err error) {
	m.mu.Lock()
	m.evictOverflowLocked()
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"request": id,
		"bytes":   len(data),
		"failed":  err != nil,
	}).Debug("download completed")

	if m.callbacks.Completed != nil {
		m.callbacks.Completed(id, data, err)
	}
}

// Cancel stops request id. Its Completed callback will not run.
func (m *Manager) Cancel(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for url, r := range m.inflight {
		if r.id != id {
			continue
		}
		r.cancel()
		delete(m.inflight, url)
		m.logger.WithFields(logrus.Fields{"request": id, "url": url}).Info("download cancelled")
		return
	}
}

// CleanAll removes every cached file that is not being downloaded.
func (m *Manager) CleanAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	files, err := m.cacheFilesLocked()
	if err != nil {
		return err
	}

	var errs []error
	for _, f := range files {
		if m.busyLocked(f.path) {
			continue
		}
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	m.logger.WithField("files", len(files)).Info("cache cleaned")
	return errors.Join(errs...)
}

// Wait blocks until every started request has completed or been cancelled.
func (m *Manager) Wait() {
	m.wg.Wait()
}
