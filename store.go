package stacks

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/aweris/stacks/internal/store"
)

// DirOption configures a directory store.
// Re-exported from internal/store for convenience.
type DirOption = store.DirOption

// WithWatch enables change notifications on a directory store, which lets
// reloadable resources follow edits on disk.
func WithWatch(enabled bool) DirOption { return store.WithWatch(enabled) }

// WithLogger sets the logger a directory store reports failed reloads to.
func WithLogger(logger *slog.Logger) DirOption { return store.WithLogger(logger) }

// WithFs backs a directory store with an afero filesystem, such as
// afero.NewMemMapFs in tests.
func WithFs(fsys afero.Fs) DirOption { return store.WithFs(fsys) }

// NewDirStore returns a store serving the files below root.
func NewDirStore(root string, opts ...DirOption) (Store, error) {
	s, err := store.NewDirStore(root, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenZip opens the zip archive at path as a store.
func OpenZip(path string) (Store, error) {
	s, err := store.OpenZipFile(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenTar reads the tar archive at path, optionally gzip or zstd
// compressed, into a store.
func OpenTar(path string) (Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	s, err := store.OpenTar(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// OpenImage reads the container image tarball at path into a store over
// the image's flattened filesystem.
func OpenImage(path string) (Store, error) {
	s, err := store.OpenImageFile(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// OpenPath picks a store for path: a directory store for directories, an
// archive store for files with a known archive extension.
func OpenPath(path string, opts ...DirOption) (Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	switch {
	case info.IsDir():
		return NewDirStore(path, opts...)
	case store.IsZip(path):
		return OpenZip(path)
	case store.IsImage(path):
		return OpenImage(path)
	case store.IsTar(path):
		return OpenTar(path)
	default:
		return nil, fmt.Errorf("%w: %s: not a directory or known archive", ErrInvalidArgument, path)
	}
}

// ZipFactory opens ".zip" files as nested stores. Names are matched
// without regard to case.
func ZipFactory() Factory {
	return FactoryFunc{
		MatchFunc: store.IsZip,
		OpenFunc: func(r io.Reader) (Store, error) {
			s, err := store.OpenZip(r)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

// TarFactory opens ".tar", ".tar.gz", ".tgz", ".tar.zst" and ".tzst" files
// as nested stores.
func TarFactory() Factory {
	return FactoryFunc{
		MatchFunc: store.IsTar,
		OpenFunc: func(r io.Reader) (Store, error) {
			s, err := store.OpenTar(r)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}

// ImageFactory opens ".image.tar" and ".oci.tar" container image tarballs
// as nested stores over their flattened filesystem.
func ImageFactory() Factory {
	return FactoryFunc{
		MatchFunc: store.IsImage,
		OpenFunc: func(r io.Reader) (Store, error) {
			s, err := store.OpenImage(r)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
	}
}
