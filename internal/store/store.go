// Package store implements the stores behind a stacks namespace: a directory
// tree on any afero filesystem, and read-only views over zip, tar and
// container image archives.
//
// All stores speak the same path contract:
// - paths are relative to the store root and use "/" as the separator
// - the empty path is the root
// - listings return full store paths starting with the listed directory
package store

import (
	"io/fs"
	"strings"
)

// Normalize converts a name reported by a filesystem or an archive into
// store form: forward slashes, no leading "/" or "./" and no trailing "/".
func Normalize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	for {
		switch {
		case strings.HasPrefix(name, "./"):
			name = name[2:]
		case strings.HasPrefix(name, "/"):
			name = name[1:]
		default:
			name = strings.TrimRight(name, "/")
			if name == "." {
				return ""
			}
			return name
		}
	}
}

// valid rejects rooted paths and paths that climb out of the store.
func valid(path string) bool {
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, "\\") {
		return false
	}
	for _, part := range strings.FieldsFunc(path, isSep) {
		if part == ".." {
			return false
		}
	}
	return true
}

func isSep(r rune) bool { return r == '/' || r == '\\' }

func join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// split returns the parent directory and base name of a store path.
func split(path string) (dir, base string) {
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return "", path
	}
	return path[:i], path[i+1:]
}

// ErrNotExist is returned when opening a path that is not a file.
var ErrNotExist = fs.ErrNotExist
