package stacks

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"reflect"
	"sync"
)

// Library is a namespace over a list of root stores with a typed resource
// cache on top. Archives found inside stores are opened through the
// registered factories and can be traversed like directories.
//
// A Library owns every store, factory and loader handed to it and every
// stream and nested store it opens; Close releases all of them.
//
// Library methods are safe for concurrent use. Loaders run without the
// library lock held, so a loader may call Load on the library it receives.
type Library struct {
	stores    []Store
	factories []Factory
	loaders   map[reflect.Type]loader
	resources *resourceCache
	mounts    *mountCache
	closed    bool

	mu sync.Mutex
}

// Stats describes what a Library currently holds.
type Stats struct {
	Stores    int
	Factories int
	Loaders   int
	Mounts    int
	Resources int
}

// New creates a Library from the given options.
func New(opts ...Option) (*Library, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	lib := &Library{
		loaders:   make(map[reflect.Type]loader),
		resources: newResourceCache(),
		mounts:    newMountCache(),
	}

	for _, s := range options.Stores {
		if err := lib.AddStore(s); err != nil {
			return nil, err
		}
	}
	for _, f := range options.Factories {
		if err := lib.AddFactory(f); err != nil {
			return nil, err
		}
	}

	return lib, nil
}

// AddStore appends a root store. Stores added later take precedence when
// several stores hold the same file.
func (l *Library) AddStore(s Store) error {
	if s == nil {
		return fmt.Errorf("%w: nil store", ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	l.stores = append(l.stores, s)
	return nil
}

// AddFactory appends a nested store factory. Factories are tried in the
// order they were added.
func (l *Library) AddFactory(f Factory) error {
	if f == nil {
		return fmt.Errorf("%w: nil factory", ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	l.factories = append(l.factories, f)
	return nil
}

// Open resolves path through the namespace and returns a stream for the
// file. The caller closes it.
func (l *Library) Open(path string) (io.ReadCloser, error) {
	path = cleanPath(path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidArgument)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}

	rc, _, _, err := l.openFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	return rc, nil
}

// IsDir reports whether path is a directory in any root store or the root
// of, or a directory inside, a nested store. The empty path is the
// namespace root.
func (l *Library) IsDir(path string) (bool, error) {
	path = cleanPath(path)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false, ErrClosed
	}
	if path == "" {
		return true, nil
	}

	for _, s := range l.stores {
		if s.DirExists(path) {
			return true, nil
		}
	}

	positions, err := l.locate(l.stores, "", "", newWalker(path))
	if err != nil {
		return false, err
	}
	return len(positions) > 0, nil
}

// Exists reports whether path names a file or a directory.
func (l *Library) Exists(path string) (bool, error) {
	if ok, err := l.IsDir(path); err != nil || ok {
		return ok, err
	}

	path = cleanPath(path)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false, ErrClosed
	}

	_, _, err := l.findFile(path)
	switch {
	case errors.Is(err, ErrNotFound):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// EnumerateFiles returns the full paths of the files directly under path,
// across every root store and every nested store positioned at path.
// The empty path lists the namespace root. Results are distinct.
func (l *Library) EnumerateFiles(path string) ([]string, error) {
	return l.enumerate(path, Store.Files)
}

// EnumerateDirectories is EnumerateFiles for directories.
func (l *Library) EnumerateDirectories(path string) ([]string, error) {
	return l.enumerate(path, Store.Dirs)
}

// Stats returns a snapshot of the library's contents.
func (l *Library) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Stats{
		Stores:    len(l.stores),
		Factories: len(l.factories),
		Loaders:   len(l.loaders),
		Mounts:    l.mounts.len(),
		Resources: l.resources.len(),
	}
}

// Close releases loaded resources, loaders, nested stores and their
// streams, root stores and factories, in that order. Resources, loaders
// and factories are closed when they implement io.Closer.
//
// The library lock is released before anything is closed, so a reload
// callback that is still running may call into the library; such calls
// see ErrClosed or an empty library.
func (l *Library) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true

	resources, mounts := l.resources, l.mounts
	loaders, stores, factories := l.loaders, l.stores, l.factories
	l.resources, l.mounts = newResourceCache(), newMountCache()
	l.loaders = make(map[reflect.Type]loader)
	l.stores, l.factories = nil, nil
	l.mu.Unlock()

	var errs []error
	errs = append(errs, resources.close())
	for _, ld := range loaders {
		errs = append(errs, ld.close())
	}
	errs = append(errs, mounts.close())
	for i := len(stores) - 1; i >= 0; i-- {
		if err := stores[i].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	for _, f := range factories {
		if c, ok := f.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close factory: %w", err))
			}
		}
	}

	return errors.Join(errs...)
}

func (l *Library) enumerate(path string, list func(Store, string) iter.Seq[string]) ([]string, error) {
	path = cleanPath(path)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}

	var out []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	for _, s := range l.stores {
		for name := range list(s, path) {
			add(name)
		}
	}

	if path == "" {
		return out, nil
	}

	positions, err := l.locate(l.stores, "", "", newWalker(path))
	if err != nil {
		return nil, err
	}
	for _, p := range positions {
		for name := range list(p.store, p.local) {
			add(joinPath(p.mount, name))
		}
	}

	return out, nil
}
