package store

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/tarball"
)

// ImageStore serves the flattened filesystem of a container image: every
// layer applied in order, with whiteouts removed.
type ImageStore struct {
	*TarStore
	digest v1.Hash
}

// IsImage reports whether name looks like an image tarball as written by
// `docker save` or crane.
func IsImage(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".image.tar") || strings.HasSuffix(name, ".oci.tar")
}

// NewImageStore flattens img into a store.
func NewImageStore(img v1.Image) (*ImageStore, error) {
	digest, err := img.Digest()
	if err != nil {
		return nil, fmt.Errorf("image digest: %w", err)
	}

	rc := mutate.Extract(img)
	defer rc.Close()

	ts, err := NewTarStore(rc)
	if err != nil {
		return nil, fmt.Errorf("flatten image %s: %w", digest, err)
	}
	return &ImageStore{TarStore: ts, digest: digest}, nil
}

// OpenImage reads an image tarball holding a single image from r.
func OpenImage(r io.Reader) (*ImageStore, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image tarball: %w", err)
	}

	img, err := tarball.Image(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("read image tarball: %w", err)
	}
	return NewImageStore(img)
}

// OpenImageFile reads the image tarball at path on the local filesystem.
func OpenImageFile(path string) (*ImageStore, error) {
	img, err := tarball.ImageFromPath(path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return NewImageStore(img)
}

// Digest returns the manifest digest of the image.
func (s *ImageStore) Digest() v1.Hash { return s.digest }
