package store

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/aweris/stacks/internal/compression"
)

// TarStore serves the regular files and directories of a tar archive. The
// archive is read once and kept in memory, so the source stream is not
// needed after construction. Paths are case-sensitive.
type TarStore struct {
	idx  *index
	data map[string][]byte
}

// IsTar reports whether name looks like a plain or compressed tar archive.
func IsTar(name string) bool {
	name = strings.ToLower(name)
	for _, suffix := range []string{".tar", ".tar.gz", ".tgz", ".tar.zst", ".tzst"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// OpenTar reads a tar archive from r. gzip and zstd compressed archives are
// detected from their content.
func OpenTar(r io.Reader) (*TarStore, error) {
	dr, err := compression.Decode(r)
	if err != nil {
		return nil, err
	}
	defer dr.Close()

	return NewTarStore(dr)
}

// NewTarStore reads an uncompressed tar stream from r.
func NewTarStore(r io.Reader) (*TarStore, error) {
	s := &TarStore{
		idx:  newIndex(false),
		data: make(map[string][]byte),
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar header: %w", err)
		}

		name := Normalize(hdr.Name)
		if name == "" {
			continue
		}

		switch {
		case hdr.Typeflag == tar.TypeDir:
			s.idx.addDir(name)
		case hdr.FileInfo().Mode().IsRegular():
			data, err := io.ReadAll(tr)
			if err != nil {
				return nil, fmt.Errorf("read tar entry %s: %w", name, err)
			}
			s.idx.addFile(name)
			s.data[name] = data
		}
	}

	return s, nil
}

func (s *TarStore) FileExists(path string) bool {
	_, ok := s.idx.file(path)
	return ok
}

func (s *TarStore) DirExists(path string) bool {
	return s.idx.hasDir(path)
}

func (s *TarStore) Open(path string) (io.ReadCloser, error) {
	name, ok := s.idx.file(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(s.data[name])), nil
}

func (s *TarStore) Files(dir string) iter.Seq[string] { return s.idx.list(dir, true) }
func (s *TarStore) Dirs(dir string) iter.Seq[string]  { return s.idx.list(dir, false) }

// Len returns the number of files in the archive.
func (s *TarStore) Len() int { return s.idx.len() }

func (s *TarStore) Close() error {
	s.data = nil
	s.idx = newIndex(false)
	return nil
}
