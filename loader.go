package stacks

import (
	"fmt"
	"io"
	"reflect"
)

// LoaderFunc adapts a function into a Loader.
type LoaderFunc[T any] func(r io.Reader, lib *Library) (T, error)

func (f LoaderFunc[T]) Load(r io.Reader, lib *Library) (T, error) { return f(r, lib) }

// loader is a Loader with its type parameter erased so loaders for
// unrelated types can share one registry.
type loader interface {
	load(r io.Reader, lib *Library) (any, error)
	// updater returns nil when the loader cannot reload in place.
	updater() func(item any, r io.Reader) error
	close() error
}

type typedLoader[T any] struct {
	impl Loader[T]
}

func (t typedLoader[T]) load(r io.Reader, lib *Library) (any, error) {
	return t.impl.Load(r, lib)
}

func (t typedLoader[T]) updater() func(any, io.Reader) error {
	rl, ok := t.impl.(ReloadableLoader[T])
	if !ok {
		return nil
	}
	return func(item any, r io.Reader) error {
		v, _ := item.(T)
		return rl.Update(v, r)
	}
}

func (t typedLoader[T]) close() error {
	if c, ok := t.impl.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close loader for %s: %w", reflect.TypeFor[T](), err)
		}
	}
	return nil
}

// RegisterLoader makes ld the loader for T. Only one loader can be
// registered per type; a second registration fails with ErrLoaderExists and
// leaves the first in place.
func RegisterLoader[T any](lib *Library, ld Loader[T]) error {
	if lib == nil || ld == nil {
		return fmt.Errorf("%w: nil library or loader", ErrInvalidArgument)
	}

	typ := reflect.TypeFor[T]()

	lib.mu.Lock()
	defer lib.mu.Unlock()

	if lib.closed {
		return ErrClosed
	}
	if _, ok := lib.loaders[typ]; ok {
		return fmt.Errorf("%w for %s", ErrLoaderExists, typ)
	}

	lib.loaders[typ] = typedLoader[T]{impl: ld}
	return nil
}

// Load returns the T at path, loading it through the registered loader on
// first use. Later calls for the same type and path return the cached item
// without touching any store.
//
// If the loader is a ReloadableLoader and the store holding the file is a
// Watcher, the item is updated in place whenever the file changes. Updates
// run on the store's goroutine; items that are read concurrently must guard
// their own state.
func Load[T any](lib *Library, path string) (T, error) {
	var zero T
	if lib == nil {
		return zero, fmt.Errorf("%w: nil library", ErrInvalidArgument)
	}

	path = cleanPath(path)
	if path == "" {
		return zero, fmt.Errorf("%w: empty path", ErrInvalidArgument)
	}

	item, err := lib.load(reflect.TypeFor[T](), path)
	if err != nil {
		return zero, err
	}

	v, _ := item.(T)
	return v, nil
}

func (l *Library) load(typ reflect.Type, path string) (any, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrClosed
	}
	if item, ok := l.resources.get(typ, path); ok {
		l.mu.Unlock()
		return item, nil
	}

	ld, ok := l.loaders[typ]
	if !ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w for %s", ErrNoLoader, typ)
	}

	rc, owner, local, err := l.openFile(path)
	l.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", path, err)
	}

	item, err := loadAndClose(ld, rc, l)
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", path, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		_ = closeItem(item)
		return nil, ErrClosed
	}
	// Another caller may have loaded the same item while the lock was
	// released; the first one stored wins.
	if existing, ok := l.resources.get(typ, path); ok {
		_ = closeItem(item)
		return existing, nil
	}

	if update := ld.updater(); update != nil {
		if w, ok := owner.(Watcher); ok {
			err := w.Watch(local, func(r io.Reader) error {
				return update(item, r)
			})
			if err != nil {
				_ = closeItem(item)
				return nil, fmt.Errorf("watch %q: %w", path, err)
			}
		}
	}

	l.resources.put(typ, path, item)
	return item, nil
}

// loadAndClose runs ld over rc and closes rc afterwards, even if ld panics.
func loadAndClose(ld loader, rc io.ReadCloser, lib *Library) (any, error) {
	defer rc.Close()
	return ld.load(rc, lib)
}
