package stacks

import (
	"errors"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
)

// namespaceFS exposes a Library as an fs.FS. Files that a registered
// factory can open are presented as directories, so fs.WalkDir descends
// into archives. An archive that fails to open is presented as a plain
// file. Sizes reported by ReadDir are zero; Stat and Open report
// the real size.
type namespaceFS struct {
	lib *Library
}

var (
	_ fs.ReadDirFS  = (*namespaceFS)(nil)
	_ fs.ReadFileFS = (*namespaceFS)(nil)
	_ fs.StatFS     = (*namespaceFS)(nil)
)

// FS returns a read-only fs.FS view of the namespace.
func (l *Library) FS() fs.FS {
	return &namespaceFS{lib: l}
}

func (f *namespaceFS) Open(name string) (fs.File, error) {
	p, err := nsPath("open", name)
	if err != nil {
		return nil, err
	}

	isDir, err := f.lib.IsDir(p)
	if err != nil && !errors.Is(err, ErrMount) {
		return nil, pathError("open", name, err)
	}
	if isDir {
		return &dir{node: newDirNode(baseName(p)), fsys: f, path: name}, nil
	}

	data, err := f.readFile(p)
	if err != nil {
		return nil, pathError("open", name, err)
	}
	return newFile(newFileNode(baseName(p), int64(len(data))), data), nil
}

func (f *namespaceFS) ReadFile(name string) ([]byte, error) {
	p, err := nsPath("readfile", name)
	if err != nil {
		return nil, err
	}
	if p == "" {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}

	data, err := f.readFile(p)
	if err != nil {
		return nil, pathError("readfile", name, err)
	}
	return data, nil
}

func (f *namespaceFS) Stat(name string) (fs.FileInfo, error) {
	file, err := f.Open(name)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return file.Stat()
}

func (f *namespaceFS) ReadDir(name string) ([]fs.DirEntry, error) {
	p, err := nsPath("readdir", name)
	if err != nil {
		return nil, err
	}

	isDir, err := f.lib.IsDir(p)
	if err != nil {
		return nil, pathError("readdir", name, err)
	}
	if !isDir {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return f.readDir(name)
}

func (f *namespaceFS) readDir(name string) ([]fs.DirEntry, error) {
	p, err := nsPath("readdir", name)
	if err != nil {
		return nil, err
	}

	dirs, err := f.lib.EnumerateDirectories(p)
	if err != nil {
		return nil, pathError("readdir", name, err)
	}
	files, err := f.lib.EnumerateFiles(p)
	if err != nil {
		return nil, pathError("readdir", name, err)
	}

	seen := make(map[string]bool, len(dirs)+len(files))
	entries := make([]fs.DirEntry, 0, len(dirs)+len(files))
	for _, d := range dirs {
		base := baseName(d)
		if !seen[base] {
			seen[base] = true
			entries = append(entries, newDirNode(base))
		}
	}
	for _, file := range files {
		base := baseName(file)
		if seen[base] {
			continue
		}
		seen[base] = true
		if f.isMountable(file) {
			entries = append(entries, newDirNode(base))
		} else {
			entries = append(entries, newFileNode(base, 0))
		}
	}

	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return entries, nil
}

func (f *namespaceFS) readFile(p string) ([]byte, error) {
	rc, err := f.lib.Open(p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// isMountable reports whether p is an archive that opens as a nested store.
func (f *namespaceFS) isMountable(p string) bool {
	if !f.lib.isArchive(p) {
		return false
	}
	ok, err := f.lib.IsDir(p)
	return err == nil && ok
}

// isArchive reports whether some registered factory would open the file.
func (l *Library) isArchive(p string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.factoryFor(p) != nil
}

// nsPath converts an fs.FS name to a namespace path.
func nsPath(op, name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return "", nil
	}
	return name, nil
}

func pathError(op, name string, err error) error {
	if errors.Is(err, ErrNotFound) {
		err = fs.ErrNotExist
	}
	return &fs.PathError{Op: op, Path: name, Err: err}
}

func baseName(p string) string {
	if p == "" {
		return "."
	}
	return path.Base(p)
}
