package store

import (
	"iter"

	"golang.org/x/text/cases"
)

// index is an in-memory directory tree over the entry names of an archive.
// Directories are recorded explicitly or derived from the parents of files.
// With foldCase set, lookups ignore case and names keep the archive's
// spelling.
type index struct {
	foldCase bool

	files map[string]string // key -> archive name
	dirs  map[string]string

	fileKids map[string][]string // parent key -> archive names, in archive order
	dirKids  map[string][]string
}

func newIndex(foldCase bool) *index {
	return &index{
		foldCase: foldCase,
		files:    make(map[string]string),
		dirs:     make(map[string]string),
		fileKids: make(map[string][]string),
		dirKids:  make(map[string][]string),
	}
}

func (x *index) key(path string) string {
	if !x.foldCase {
		return path
	}
	// Casers carry state and are not safe for concurrent use.
	return cases.Fold().String(path)
}

func (x *index) addFile(name string) {
	name = Normalize(name)
	if name == "" {
		return
	}
	k := x.key(name)
	if _, ok := x.files[k]; ok {
		return
	}
	x.files[k] = name

	parent, _ := split(name)
	x.addDir(parent)
	pk := x.key(parent)
	x.fileKids[pk] = append(x.fileKids[pk], name)
}

func (x *index) addDir(name string) {
	name = Normalize(name)
	if name == "" {
		return
	}
	k := x.key(name)
	if _, ok := x.dirs[k]; ok {
		return
	}
	x.dirs[k] = name

	parent, _ := split(name)
	x.addDir(parent)
	pk := x.key(parent)
	x.dirKids[pk] = append(x.dirKids[pk], name)
}

// file returns the archive name of the file at path.
func (x *index) file(path string) (string, bool) {
	name, ok := x.files[x.key(Normalize(path))]
	return name, ok
}

func (x *index) hasDir(path string) bool {
	path = Normalize(path)
	if path == "" {
		return true
	}
	_, ok := x.dirs[x.key(path)]
	return ok
}

// list yields the children of dir, spelled with dir as the caller gave it.
func (x *index) list(dir string, files bool) iter.Seq[string] {
	dir = Normalize(dir)
	kids := x.dirKids
	if files {
		kids = x.fileKids
	}
	names := kids[x.key(dir)]

	return func(yield func(string) bool) {
		for _, name := range names {
			_, base := split(name)
			if !yield(join(dir, base)) {
				return
			}
		}
	}
}

func (x *index) len() int { return len(x.files) }
