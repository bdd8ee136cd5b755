package stacks

import "strings"

// walker steps through the segments of a path. It is a value type so the
// resolution engine can fork a walk at a segment by copying it.
type walker struct {
	parts []string
	i     int
}

func newWalker(path string) walker {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	return walker{parts: parts, i: -1}
}

// Next advances to the next segment and reports whether one exists.
func (w *walker) Next() bool {
	if w.i < len(w.parts) {
		w.i++
	}
	return w.i < len(w.parts)
}

func (w *walker) Current() string { return w.parts[w.i] }

// HasNext reports whether a segment follows the current one.
func (w *walker) HasNext() bool { return w.i < len(w.parts)-1 }

// joinPath joins two namespace paths with a single slash.
func joinPath(base, name string) string {
	switch {
	case base == "":
		return name
	case name == "":
		return base
	}
	return base + "/" + name
}

// cleanPath normalizes a caller supplied path to the form stores expect.
func cleanPath(path string) string {
	w := newWalker(path)
	return strings.Join(w.parts, "/")
}
