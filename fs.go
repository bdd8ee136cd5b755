package stacks

import (
	"io"
	"iter"
)

// Store is a source of files and directories addressed by forward-slash paths
// relative to the store root. The empty path denotes the root.
type Store interface {
	FileExists(path string) bool
	DirExists(path string) bool

	// Open returns a stream for the file at path. Fails if the file is absent.
	Open(path string) (io.ReadCloser, error)

	// Files and Dirs yield the immediate children of dir. Every name is a full
	// store path beginning with dir, without leading or trailing separators.
	// A missing dir yields nothing.
	Files(dir string) iter.Seq[string]
	Dirs(dir string) iter.Seq[string]

	Close() error // releases everything the store holds
}

// Watcher is implemented by stores that can report changes to a file.
// The callback receives a fresh stream for every change and may run on any
// goroutine. The store closes the stream after the callback returns.
type Watcher interface {
	Watch(path string, fn func(r io.Reader) error) error
}

// Factory opens a file found inside another store as a nested Store.
type Factory interface {
	// Match reports whether the file at path can be opened by this factory.
	Match(path string) bool

	// Open builds a Store from r. The caller owns r and keeps it open for the
	// lifetime of the returned Store.
	Open(r io.Reader) (Store, error)
}

// FactoryFunc adapts a predicate and a constructor into a Factory.
type FactoryFunc struct {
	MatchFunc func(path string) bool
	OpenFunc  func(r io.Reader) (Store, error)
}

func (f FactoryFunc) Match(path string) bool          { return f.MatchFunc(path) }
func (f FactoryFunc) Open(r io.Reader) (Store, error) { return f.OpenFunc(r) }

// Loader turns bytes into a T. Load must not close r.
type Loader[T any] interface {
	Load(r io.Reader, lib *Library) (T, error)
}

// ReloadableLoader can refresh an item it created from a new stream.
type ReloadableLoader[T any] interface {
	Loader[T]
	Update(item T, r io.Reader) error
}
