package download

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ulikunitz/xz"
)

type result struct {
	data []byte
	err  error
}

// results collects callback invocations.
type results struct {
	mu       sync.Mutex
	done     map[int][]result
	progress map[int][]float64
	notify   chan int
}

func newResults() *results {
	return &results{
		done:     make(map[int][]result),
		progress: make(map[int][]float64),
		notify:   make(chan int, 16),
	}
}

func (r *results) callbacks() Callbacks {
	return Callbacks{
		Progress: func(id int, p float64) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.progress[id] = append(r.progress[id], p)
		},
		Completed: func(id int, data []byte, err error) {
			r.mu.Lock()
			r.done[id] = append(r.done[id], result{data, err})
			r.mu.Unlock()
			r.notify <- id
		},
	}
}

func (r *results) last(t *testing.T, id int) result {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	got := r.done[id]
	if len(got) == 0 {
		t.Fatalf("request %d never completed", id)
	}
	return got[len(got)-1]
}

func kindOf(t *testing.T, err error) Kind {
	t.Helper()
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("error %v is not a *download.Error", err)
	}
	return de.Kind
}

func newManager(t *testing.T, r *results, opts ...Option) *Manager {
	t.Helper()
	m, err := New(t.TempDir(), append([]Option{WithCallbacks(r.callbacks())}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func zipBytes(t *testing.T, name, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func xzBytes(t *testing.T, content string) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := xw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := xw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fileServer serves fixed payloads by path and counts requests.
func fileServer(t *testing.T, files map[string][]byte) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		data, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

const lrcBody = "[00:01.00]hello\n[00:03.00]world\n"

func TestDownloadPlainAndCached(t *testing.T) {
	srv, hits := fileServer(t, map[string][]byte{"/songs/song.lrc": []byte(lrcBody)})
	r := newResults()
	m := newManager(t, r)

	id := m.Download(context.Background(), srv.URL+"/songs/song.lrc")
	m.Wait()

	res := r.last(t, id)
	if res.err != nil || string(res.data) != lrcBody {
		t.Fatalf("first download = (%q, %v)", res.data, res.err)
	}
	if _, err := os.Stat(filepath.Join(m.Dir(), "song.lrc")); err != nil {
		t.Errorf("cached file missing: %v", err)
	}
	if p := r.progress[id]; len(p) == 0 || p[len(p)-1] != 1 {
		t.Errorf("progress = %v, want to end at 1", p)
	}

	id2 := m.Download(context.Background(), srv.URL+"/songs/song.lrc")
	m.Wait()
	if id2 != id+1 {
		t.Errorf("second id = %d, want %d", id2, id+1)
	}
	if res := r.last(t, id2); res.err != nil || string(res.data) != lrcBody {
		t.Errorf("cached download = (%q, %v)", res.data, res.err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestDownloadPayloads(t *testing.T) {
	srv, _ := fileServer(t, map[string][]byte{
		"/a.zip":       zipBytes(t, "inner.krc", "krc body"),
		"/b.zip":       zipBytes(t, "notes.txt", "nope"),
		"/c.zip":       []byte("not a zip"),
		"/song.xml.xz": xzBytes(t, "<song/>"),
		"/song.bin.xz": xzBytes(t, "binary"),
		"/song.mp3":    []byte("ID3"),
		"/plain.krc":   []byte("[0,1]<0,1,0>a"),
	})

	tests := []struct {
		path     string
		want     string
		wantKind Kind
		wantErr  bool
	}{
		{"/a.zip", "krc body", 0, false},
		{"/b.zip", "", KindUnzip, true},
		{"/c.zip", "", KindUnzip, true},
		{"/song.xml.xz", "<song/>", 0, false},
		{"/song.bin.xz", "", KindUnzip, true},
		{"/song.mp3", "", KindUnzip, true},
		{"/plain.krc", "[0,1]<0,1,0>a", 0, false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimPrefix(tt.path, "/"), func(t *testing.T) {
			r := newResults()
			m := newManager(t, r)
			id := m.Download(context.Background(), srv.URL+tt.path)
			m.Wait()

			res := r.last(t, id)
			if tt.wantErr {
				if res.err == nil {
					t.Fatalf("want %v error, got data %q", tt.wantKind, res.data)
				}
				if k := kindOf(t, res.err); k != tt.wantKind {
					t.Errorf("kind = %v, want %v", k, tt.wantKind)
				}
				return
			}
			if res.err != nil || string(res.data) != tt.want {
				t.Errorf("got (%q, %v), want %q", res.data, res.err, tt.want)
			}
		})
	}
}

func TestDownloadHTTPErrors(t *testing.T) {
	srv, _ := fileServer(t, nil)
	r := newResults()
	m := newManager(t, r)

	id := m.Download(context.Background(), srv.URL+"/missing.lrc")
	m.Wait()
	err := r.last(t, id).err
	if k := kindOf(t, err); k != KindHTTPLogic {
		t.Errorf("404 kind = %v, want %v", k, KindHTTPLogic)
	}
	var de *Error
	errors.As(err, &de)
	if de.Code != http.StatusNotFound {
		t.Errorf("404 code = %d", de.Code)
	}

	closed := httptest.NewServer(http.NotFoundHandler())
	url := closed.URL + "/gone.lrc"
	closed.Close()
	id = m.Download(context.Background(), url)
	m.Wait()
	if k := kindOf(t, r.last(t, id).err); k != KindHTTP {
		t.Errorf("transport failure kind = %v, want %v", k, KindHTTP)
	}

	for _, bad := range []string{"", "not a url", "/relative.lrc"} {
		id = m.Download(context.Background(), bad)
		m.Wait()
		if k := kindOf(t, r.last(t, id).err); k != KindGeneral {
			t.Errorf("Download(%q) kind = %v, want %v", bad, k, KindGeneral)
		}
	}

	entries, _ := os.ReadDir(m.Dir())
	if len(entries) != 0 {
		t.Errorf("failed downloads left %d files behind", len(entries))
	}
}

// blockingServer holds every request until release is closed or the client
// goes away.
func blockingServer(t *testing.T, body string) (srv *httptest.Server, started <-chan struct{}, release chan struct{}) {
	t.Helper()
	start := make(chan struct{}, 4)
	release = make(chan struct{})
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start <- struct{}{}
		select {
		case <-release:
			w.Write([]byte(body))
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	return srv, start, release
}

func TestDownloadRepeat(t *testing.T) {
	srv, started, release := blockingServer(t, lrcBody)
	r := newResults()
	m := newManager(t, r)

	url := srv.URL + "/slow.lrc"
	id := m.Download(context.Background(), url)
	<-started

	if again := m.Download(context.Background(), url); again != id {
		t.Errorf("repeat id = %d, want %d", again, id)
	}
	select {
	case got := <-r.notify:
		if got != id {
			t.Fatalf("completion for %d, want %d", got, id)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("repeat error never delivered")
	}
	if k := kindOf(t, r.last(t, id).err); k != KindRepeat {
		t.Errorf("repeat kind = %v, want %v", k, KindRepeat)
	}

	close(release)
	m.Wait()
	if res := r.last(t, id); res.err != nil || string(res.data) != lrcBody {
		t.Errorf("final result = (%q, %v)", res.data, res.err)
	}
}

func TestDownloadCancel(t *testing.T) {
	srv, started, _ := blockingServer(t, lrcBody)
	r := newResults()
	m := newManager(t, r)

	id := m.Download(context.Background(), srv.URL+"/slow.lrc")
	<-started
	m.Cancel(id)
	m.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.done[id]) != 0 {
		t.Errorf("cancelled request completed: %+v", r.done[id])
	}
	entries, _ := os.ReadDir(m.Dir())
	if len(entries) != 0 {
		t.Errorf("cancelled download left %d files", len(entries))
	}
}

func writeAged(t *testing.T, dir, name, content string, age time.Duration) {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	mod := time.Now().Add(-age)
	if err := os.Chtimes(p, mod, mod); err != nil {
		t.Fatal(err)
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestEvictOverflow(t *testing.T) {
	srv, _ := fileServer(t, map[string][]byte{"/new.lrc": []byte(lrcBody)})
	r := newResults()
	m := newManager(t, r, WithMaxFiles(2))

	writeAged(t, m.Dir(), "old1.lrc", "1", 3*time.Minute)
	writeAged(t, m.Dir(), "old2.lrc", "2", 2*time.Minute)
	writeAged(t, m.Dir(), "old3.lrc", "3", time.Minute)

	m.Download(context.Background(), srv.URL+"/new.lrc")
	m.Wait()

	got := strings.Join(listDir(t, m.Dir()), ",")
	if got != "new.lrc,old3.lrc" {
		t.Errorf("cache = %s, want new.lrc,old3.lrc", got)
	}
}

func TestEvictExpired(t *testing.T) {
	srv, hits := fileServer(t, map[string][]byte{"/song.lrc": []byte(lrcBody)})
	r := newResults()
	m := newManager(t, r, WithMaxAge(time.Hour))

	writeAged(t, m.Dir(), "song.lrc", "stale", 2*time.Hour)
	writeAged(t, m.Dir(), "other.lrc", "stale", 2*time.Hour)

	id := m.Download(context.Background(), srv.URL+"/song.lrc")
	m.Wait()

	if res := r.last(t, id); string(res.data) != lrcBody {
		t.Errorf("data = %q, want fresh copy", res.data)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
	if got := listDir(t, m.Dir()); len(got) != 1 || got[0] != "song.lrc" {
		t.Errorf("cache = %v, want only song.lrc", got)
	}
}

func TestCleanAll(t *testing.T) {
	m := newManager(t, newResults())
	writeAged(t, m.Dir(), "a.lrc", "a", 0)
	writeAged(t, m.Dir(), "b.zip", "b", 0)
	if err := os.Mkdir(filepath.Join(m.Dir(), "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := m.CleanAll(); err != nil {
		t.Fatalf("CleanAll() error = %v", err)
	}
	if got := listDir(t, m.Dir()); len(got) != 1 || got[0] != "sub" {
		t.Errorf("after CleanAll = %v, want only the sub directory", got)
	}
}

func TestRequestIDWrap(t *testing.T) {
	m := newManager(t, newResults())
	if id := m.nextID(); id != 0 {
		t.Fatalf("first id = %d, want 0", id)
	}

	m.lastID = math.MaxInt32 - 2
	if id := m.nextID(); id != math.MaxInt32-1 {
		t.Errorf("id = %d, want %d", id, math.MaxInt32-1)
	}
	if id := m.nextID(); id != 0 {
		t.Errorf("id after wrap = %d, want 0", id)
	}
}

func TestCacheName(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://cdn.example.com/lyrics/825003.xml", "825003.xml"},
		{"https://cdn.example.com/a/b.lrc?token=1", "b.lrc"},
		{"https://cdn.example.com/pack.zip", "pack.zip"},
	}
	for _, tt := range tests {
		got, err := cacheName(tt.url)
		if err != nil || got != tt.want {
			t.Errorf("cacheName(%q) = (%q, %v), want %q", tt.url, got, err, tt.want)
		}
	}

	a, err := cacheName("https://cdn.example.com/")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := cacheName("https://cdn.example.com/?id=2")
	if !strings.HasSuffix(a, ".zip") || len(a) != 36 {
		t.Errorf("hashed name = %q, want 32 hex chars + .zip", a)
	}
	if a == b {
		t.Error("different URLs should hash to different names")
	}

	if _, err := cacheName(""); err == nil {
		t.Error("empty url should fail")
	}
}

func TestErrorFormatting(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Kind: KindHTTPLogic, Code: 503, Message: "503 Service Unavailable", Err: inner}
	if !errors.Is(err, inner) {
		t.Error("Error should unwrap to its cause")
	}
	if got := err.Error(); got != "download http logic error (code 503): 503 Service Unavailable: boom" {
		t.Errorf("Error() = %q", got)
	}
	if KindRepeat.String() != "repeat" || Kind(9).String() != "kind(9)" {
		t.Error("Kind.String() mismatch")
	}
}

// roundTripFunc serves requests without a network.
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// eofHook runs onEOF once the wrapped body is drained.
type eofHook struct {
	r     *strings.Reader
	onEOF func()
}

func (b *eofHook) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && b.onEOF != nil {
		b.onEOF()
		b.onEOF = nil
	}
	return n, err
}

func (b *eofHook) Close() error { return nil }

func TestDownloadCancelledAfterFetch(t *testing.T) {
	r := newResults()
	ids := make(chan int, 1)
	var m *Manager

	client := &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		body := &eofHook{r: strings.NewReader(lrcBody), onEOF: func() { m.Cancel(<-ids) }}
		return &http.Response{
			StatusCode:    http.StatusOK,
			Status:        "200 OK",
			Body:          body,
			ContentLength: int64(len(lrcBody)),
			Request:       req,
		}, nil
	})}
	m = newManager(t, r, WithHTTPClient(client))

	ids <- m.Download(context.Background(), "http://lyrics.test/song.lrc")
	m.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.done) != 0 {
		t.Errorf("request cancelled after fetch still completed: %+v", r.done)
	}
}
