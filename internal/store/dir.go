package store

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
	"github.com/spf13/afero"
)

// DirStore serves files below a root directory. Rooted paths and paths
// containing ".." are refused. Watching needs the store to sit on the local
// filesystem; it is off unless enabled with WithWatch.
type DirStore struct {
	root   string
	fs     afero.Fs
	watch  bool
	logger *slog.Logger

	watcher  *fsnotify.Watcher
	handlers map[string][]func(io.Reader) error
	watched  map[string]bool   // directories added to watcher
	names    map[string]string // absolute OS path -> store path
	wg       conc.WaitGroup

	mu sync.Mutex
}

// DirOption configures a DirStore.
type DirOption func(*DirStore)

// WithFs serves the store from fsys instead of the OS filesystem. The root
// is then interpreted inside fsys.
func WithFs(fsys afero.Fs) DirOption {
	return func(s *DirStore) { s.fs = fsys }
}

// WithWatch enables change notifications for watched files.
func WithWatch(enabled bool) DirOption {
	return func(s *DirStore) { s.watch = enabled }
}

// WithLogger sets the logger used to report failed reloads.
func WithLogger(logger *slog.Logger) DirOption {
	return func(s *DirStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewDirStore creates a store rooted at root.
func NewDirStore(root string, opts ...DirOption) (*DirStore, error) {
	s := &DirStore{
		root:     filepath.Clean(root),
		logger:   slog.Default(),
		watched:  make(map[string]bool),
		handlers: make(map[string][]func(io.Reader) error),
		names:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.fs == nil {
		// BasePathFs refuses every name under a relative base.
		abs, err := filepath.Abs(s.root)
		if err != nil {
			return nil, fmt.Errorf("open dir store: %w", err)
		}
		s.root = abs

		info, err := os.Stat(s.root)
		if err != nil {
			return nil, fmt.Errorf("open dir store: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("open dir store: %s: not a directory", root)
		}
		s.fs = afero.NewBasePathFs(afero.NewOsFs(), s.root)
	} else {
		s.fs = afero.NewBasePathFs(s.fs, filepath.ToSlash(filepath.Join("/", s.root)))
	}

	return s, nil
}

// Root returns the directory the store is rooted at. It is absolute unless
// the store was created with WithFs.
func (s *DirStore) Root() string { return s.root }

func (s *DirStore) FileExists(path string) bool {
	info, ok := s.stat(path)
	return ok && !info.IsDir()
}

func (s *DirStore) DirExists(path string) bool {
	info, ok := s.stat(path)
	return ok && info.IsDir()
}

func (s *DirStore) Open(path string) (io.ReadCloser, error) {
	if !valid(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotExist)
	}

	f, err := s.fs.Open(s.real(path))
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *DirStore) Files(dir string) iter.Seq[string] { return s.list(dir, false) }
func (s *DirStore) Dirs(dir string) iter.Seq[string]  { return s.list(dir, true) }

func (s *DirStore) list(dir string, dirs bool) iter.Seq[string] {
	return func(yield func(string) bool) {
		dir = Normalize(dir)
		if !valid(dir) {
			return
		}

		infos, err := afero.ReadDir(s.fs, s.real(dir))
		if err != nil {
			return
		}
		for _, info := range infos {
			if info.IsDir() != dirs {
				continue
			}
			if !yield(join(dir, info.Name())) {
				return
			}
		}
	}
}

// Watch calls fn with the new contents of path every time the file is
// written or replaced. Without WithWatch it does nothing.
func (s *DirStore) Watch(path string, fn func(io.Reader) error) error {
	if fn == nil {
		return errors.New("watch: nil callback")
	}
	if !s.watch {
		return nil
	}

	path = Normalize(path)
	if !valid(path) || path == "" {
		return fmt.Errorf("watch %s: %w", path, ErrNotExist)
	}

	abs, err := filepath.Abs(filepath.Join(s.root, filepath.FromSlash(path)))
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		s.watcher = w
		s.wg.Go(func() { s.loop(w) })
	}

	// Editors often replace files instead of writing them, so the parent
	// directory is watched rather than the file itself.
	dir := filepath.Dir(abs)
	if !s.watched[dir] {
		if err := s.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		s.watched[dir] = true
	}

	s.handlers[abs] = append(s.handlers[abs], fn)
	s.names[abs] = path
	return nil
}

func (s *DirStore) loop(w *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				s.dispatch(filepath.Clean(ev.Name))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watch error", "root", s.root, "error", err)
		}
	}
}

func (s *DirStore) dispatch(abs string) {
	s.mu.Lock()
	handlers := slices.Clone(s.handlers[abs])
	path := s.names[abs]
	s.mu.Unlock()

	for _, fn := range handlers {
		s.notify(path, fn)
	}
}

func (s *DirStore) notify(path string, fn func(io.Reader) error) {
	f, err := s.fs.Open(s.real(path))
	if err != nil {
		// The file may be mid-replace; the next event delivers it.
		s.logger.Debug("reload skipped", "path", path, "error", err)
		return
	}
	defer f.Close()

	var pc panics.Catcher
	pc.Try(func() { err = fn(f) })
	if r := pc.Recovered(); r != nil {
		s.logger.Error("reload panicked", "path", path, "panic", r.Value)
		return
	}
	if err != nil {
		s.logger.Warn("reload failed", "path", path, "error", err)
	}
}

// Close stops watching. Files opened from the store stay valid.
func (s *DirStore) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.watched = make(map[string]bool)
	s.mu.Unlock()

	if w == nil {
		return nil
	}
	err := w.Close()
	s.wg.Wait()
	return err
}

func (s *DirStore) stat(path string) (os.FileInfo, bool) {
	if !valid(path) {
		return nil, false
	}
	info, err := s.fs.Stat(s.real(path))
	if err != nil {
		return nil, false
	}
	return info, true
}

// real maps a store path to a name inside s.fs.
func (s *DirStore) real(path string) string {
	return "/" + Normalize(path)
}
