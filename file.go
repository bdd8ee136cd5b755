package stacks

import (
	"bytes"
	"io"
	"io/fs"
)

// file is an open namespace file. Its content is read in full on open.
type file struct {
	node *node
	r    *bytes.Reader
}

func newFile(n *node, content []byte) *file {
	return &file{node: n, r: bytes.NewReader(content)}
}

func (f *file) Read(p []byte) (int, error)                   { return f.r.Read(p) }
func (f *file) ReadAt(p []byte, off int64) (int, error)      { return f.r.ReadAt(p, off) }
func (f *file) Seek(offset int64, whence int) (int64, error) { return f.r.Seek(offset, whence) }
func (f *file) Stat() (fs.FileInfo, error)                   { return f.node, nil }
func (f *file) Close() error                                 { return nil }

// dir is an open namespace directory. Entries are listed on the first
// ReadDir call.
type dir struct {
	node    *node
	fsys    *namespaceFS
	path    string
	entries []fs.DirEntry
	loaded  bool
	offset  int
}

func (d *dir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.path, Err: fs.ErrInvalid}
}

func (d *dir) Stat() (fs.FileInfo, error) { return d.node, nil }
func (d *dir) Close() error               { return nil }

// ReadDir follows the fs.ReadDirFile contract.
func (d *dir) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.loaded {
		entries, err := d.fsys.readDir(d.path)
		if err != nil {
			return nil, err
		}
		d.entries = entries
		d.loaded = true
	}

	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	d.offset += n
	return rest[:n], nil
}
