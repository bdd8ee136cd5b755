package stacks_test

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/aweris/stacks"
)

// memStore is an in-memory Store and Watcher. Directories are implied by
// file paths.
type memStore struct {
	files    map[string][]byte
	watchers map[string][]func(io.Reader) error
	opens    map[string]int
	live     int
	closed   bool

	mu sync.Mutex
}

func newMemStore(files map[string]string) *memStore {
	s := &memStore{
		files:    make(map[string][]byte),
		watchers: make(map[string][]func(io.Reader) error),
		opens:    make(map[string]int),
	}
	for name, content := range files {
		s.files[name] = []byte(content)
	}
	return s
}

func (s *memStore) put(name string, data []byte) *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[name] = data
	return s
}

func (s *memStore) FileExists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok
}

func (s *memStore) DirExists(path string) bool {
	if path == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for name := range s.files {
		if strings.HasPrefix(name, path+"/") {
			return true
		}
	}
	return false
}

func (s *memStore) Open(path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("mem %s: not found", path)
	}
	s.opens[path]++
	s.live++
	return &memStream{Reader: bytes.NewReader(data), store: s}, nil
}

func (s *memStore) Files(dir string) iter.Seq[string] { return s.children(dir, false) }
func (s *memStore) Dirs(dir string) iter.Seq[string]  { return s.children(dir, true) }

func (s *memStore) children(dir string, dirs bool) iter.Seq[string] {
	s.mu.Lock()
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	var names []string
	for name := range s.files {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		head, _, nested := strings.Cut(rest, "/")
		if nested == dirs && !slices.Contains(names, prefix+head) {
			names = append(names, prefix+head)
		}
	}
	s.mu.Unlock()

	slices.Sort(names)
	return slices.Values(names)
}

func (s *memStore) Watch(path string, fn func(io.Reader) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers[path] = append(s.watchers[path], fn)
	return nil
}

// change replaces a file and runs its watch callbacks.
func (s *memStore) change(t *testing.T, path, content string) {
	t.Helper()

	s.mu.Lock()
	s.files[path] = []byte(content)
	fns := slices.Clone(s.watchers[path])
	s.mu.Unlock()

	for _, fn := range fns {
		if err := fn(strings.NewReader(content)); err != nil {
			t.Fatalf("watch callback error = %v", err)
		}
	}
}

func (s *memStore) openCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens[path]
}

func (s *memStore) liveStreams() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

func (s *memStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type memStream struct {
	*bytes.Reader
	store *memStore
	done  bool
}

func (m *memStream) Close() error {
	if m.done {
		return nil
	}
	m.done = true
	m.store.mu.Lock()
	m.store.live--
	m.store.mu.Unlock()
	return nil
}

// countingFactory counts nested stores it opens and records Close.
type countingFactory struct {
	stacks.Factory

	mu     sync.Mutex
	opens  int
	closed bool
}

func newZipCounter() *countingFactory {
	return &countingFactory{Factory: stacks.ZipFactory()}
}

func (f *countingFactory) Open(r io.Reader) (stacks.Store, error) {
	f.mu.Lock()
	f.opens++
	f.mu.Unlock()
	return f.Factory.Open(r)
}

func (f *countingFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

func (f *countingFactory) Close() error {
	f.closed = true
	return nil
}

func zipBytes(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	slices.Sort(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip Create(%s) error = %v", name, err)
		}
		if _, err := w.Write(files[name]); err != nil {
			t.Fatalf("zip Write(%s) error = %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close() error = %v", err)
	}
	return buf.Bytes()
}

// doc is a pointer resource so tests can compare identity.
type doc struct {
	mu   sync.Mutex
	body string
}

func (d *doc) text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.body
}

type docLoader struct {
	mu    sync.Mutex
	loads int
}

func (l *docLoader) Load(r io.Reader, _ *stacks.Library) (*doc, error) {
	l.mu.Lock()
	l.loads++
	l.mu.Unlock()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return &doc{body: string(data)}, nil
}

func (l *docLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads
}

// reloadingDocLoader updates docs in place.
type reloadingDocLoader struct {
	docLoader
}

func (l *reloadingDocLoader) Update(d *doc, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.body = string(data)
	d.mu.Unlock()
	return nil
}

func newLibrary(t *testing.T, opts ...stacks.Option) *stacks.Library {
	t.Helper()

	lib, err := stacks.New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { lib.Close() })
	return lib
}

func sorted(s []string) []string {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}
