package store

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// ZipStore serves the entries of a zip archive. Lookups ignore case; names
// keep the spelling stored in the archive. Encrypted archives are not
// supported. Entries compressed with zstd (method 93) are readable.
type ZipStore struct {
	idx     *index
	entries map[string]*zip.File
	closer  io.Closer
}

// IsZip reports whether name looks like a zip archive.
func IsZip(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".zip")
}

// NewZipStore reads the zip directory from r.
func NewZipStore(r io.ReaderAt, size int64) (*ZipStore, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("read zip directory: %w", err)
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	s := &ZipStore{
		idx:     newIndex(true),
		entries: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			s.idx.addDir(f.Name)
			continue
		}
		name := Normalize(f.Name)
		s.idx.addFile(name)
		s.entries[name] = f
	}

	return s, nil
}

// OpenZip reads a zip archive from a stream. A zip directory sits at the
// end of the archive, so streams without random access are buffered.
func OpenZip(r io.Reader) (*ZipStore, error) {
	if ra, ok := r.(interface {
		io.ReaderAt
		io.Seeker
	}); ok {
		size, err := ra.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, fmt.Errorf("size zip stream: %w", err)
		}
		return NewZipStore(ra, size)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read zip stream: %w", err)
	}
	return NewZipStore(bytes.NewReader(data), int64(len(data)))
}

// OpenZipFile opens the zip archive at path on the local filesystem. The
// store keeps the file open until Close.
func OpenZipFile(path string) (*ZipStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	s, err := NewZipStore(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.closer = f
	return s, nil
}

func (s *ZipStore) FileExists(path string) bool {
	_, ok := s.idx.file(path)
	return ok
}

func (s *ZipStore) DirExists(path string) bool {
	return s.idx.hasDir(path)
}

func (s *ZipStore) Open(path string) (io.ReadCloser, error) {
	name, ok := s.idx.file(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotExist)
	}

	rc, err := s.entries[name].Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %s: %w", name, err)
	}
	return rc, nil
}

func (s *ZipStore) Files(dir string) iter.Seq[string] { return s.idx.list(dir, true) }
func (s *ZipStore) Dirs(dir string) iter.Seq[string]  { return s.idx.list(dir, false) }

// Len returns the number of files in the archive.
func (s *ZipStore) Len() int { return s.idx.len() }

func (s *ZipStore) Close() error {
	s.entries = nil
	s.idx = newIndex(true)
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
