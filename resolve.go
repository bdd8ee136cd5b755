package stacks

import (
	"fmt"
	"io"
)

// position is a directory inside a nested store, reached while resolving a
// namespace path. mount is the namespace path the store was opened at and
// local is the directory within the store.
type position struct {
	store Store
	mount string
	local string
}

// findFile walks path segment by segment and returns the store that owns
// the file at the end of it, together with the file's path inside that
// store. Directories take precedence over files on every segment but the
// last; a file on an inner segment is mounted as a nested store and the walk
// continues inside it. When several stores hold the file, the last one wins.
//
// Callers hold l.mu.
func (l *Library) findFile(path string) (Store, string, error) {
	w := newWalker(path)
	stores := l.stores
	mount, local := "", ""

	for w.Next() {
		local = joinPath(local, w.Current())

		if w.HasNext() {
			if dirs := filter(stores, Store.DirExists, local); len(dirs) > 0 {
				stores = dirs
				continue
			}
		}

		files := filter(stores, Store.FileExists, local)
		if len(files) == 0 {
			return nil, "", ErrNotFound
		}

		if !w.HasNext() {
			return files[len(files)-1], local, nil
		}

		full := joinPath(mount, local)
		nested, err := l.mount(full, local, files)
		if err != nil {
			return nil, "", err
		}
		if nested == nil {
			return nil, "", ErrNotFound
		}

		stores = []Store{nested}
		mount, local = full, ""
	}

	return nil, "", ErrNotFound
}

// openFile is findFile followed by opening the file on its owner.
func (l *Library) openFile(path string) (io.ReadCloser, Store, string, error) {
	owner, local, err := l.findFile(path)
	if err != nil {
		return nil, nil, "", err
	}

	rc, err := owner.Open(local)
	if err != nil {
		return nil, nil, "", err
	}
	return rc, owner, local, nil
}

// locate returns every nested store directory that path leads to. Unlike
// findFile it follows both branches when a segment is a directory in one
// store and an archive in another, so listings see all of them. Positions
// inside root stores are left out; callers list roots directly.
//
// w is taken by value so each branch keeps its own cursor.
//
// Callers hold l.mu.
func (l *Library) locate(stores []Store, mount, local string, w walker) ([]position, error) {
	if !w.Next() {
		if mount == "" {
			return nil, nil
		}
		out := make([]position, 0, len(stores))
		for _, s := range stores {
			out = append(out, position{store: s, mount: mount, local: local})
		}
		return out, nil
	}

	local = joinPath(local, w.Current())

	var out []position
	if dirs := filter(stores, Store.DirExists, local); len(dirs) > 0 {
		found, err := l.locate(dirs, mount, local, w)
		if err != nil {
			return nil, err
		}
		out = append(out, found...)
	}

	if files := filter(stores, Store.FileExists, local); len(files) > 0 {
		full := joinPath(mount, local)
		nested, err := l.mount(full, local, files)
		if err != nil {
			return nil, err
		}
		if nested != nil {
			found, err := l.locate([]Store{nested}, full, "", w)
			if err != nil {
				return nil, err
			}
			out = append(out, found...)
		}
	}

	return out, nil
}

// mount returns the nested store for the file at full, opening it on first
// use. The file is read from the last store in claimers through the first
// factory that matches local. A nil store and nil error mean no factory
// matches. Once opened, a mount is reused for the life of the library.
//
// Callers hold l.mu.
func (l *Library) mount(full, local string, claimers []Store) (Store, error) {
	if m, ok := l.mounts.get(full); ok {
		return m.store, nil
	}

	factory := l.factoryFor(local)
	if factory == nil {
		return nil, nil
	}

	rc, err := claimers[len(claimers)-1].Open(local)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrMount, full, err)
	}

	s, err := factory.Open(rc)
	if err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("%w %q: %w", ErrMount, full, err)
	}

	l.mounts.put(full, s, rc)
	return s, nil
}

func (l *Library) factoryFor(path string) Factory {
	for _, f := range l.factories {
		if f.Match(path) {
			return f
		}
	}
	return nil
}

func filter(stores []Store, pred func(Store, string) bool, path string) []Store {
	var out []Store
	for _, s := range stores {
		if pred(s, path) {
			out = append(out, s)
		}
	}
	return out
}
