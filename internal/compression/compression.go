// Package compression detects and decodes the stream compressions used by
// archives in a stacks namespace.
package compression

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format identifies a stream compression.
type Format int

const (
	None Format = iota
	Gzip
	Zstd
)

func (f Format) String() string {
	switch f {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	default:
		return "none"
	}
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Sniff reports the compression of r from its leading bytes. The returned
// reader yields the whole stream, including the bytes that were inspected.
func Sniff(r io.Reader) (Format, io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return None, nil, fmt.Errorf("sniff compression: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip, br, nil
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd, br, nil
	default:
		return None, br, nil
	}
}

// NewReader returns a reader that decodes r according to f.
func NewReader(r io.Reader, f Format) (io.ReadCloser, error) {
	switch f {
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return zr, nil
	case Zstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("open zstd stream: %w", err)
		}
		return zr.IOReadCloser(), nil
	default:
		return io.NopCloser(r), nil
	}
}

// Decode sniffs the compression of r and returns a decoding reader.
func Decode(r io.Reader) (io.ReadCloser, error) {
	f, br, err := Sniff(r)
	if err != nil {
		return nil, err
	}
	return NewReader(br, f)
}
