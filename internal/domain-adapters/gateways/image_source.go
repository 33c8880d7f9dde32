// Package gateways provides adapter implementations for platform services and file formats.
package gateways

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ImageSource provides the bytes of an executable image
type ImageSource interface {
	// Name identifies the image in snapshots and log fields
	Name() string
	// Open returns a reader over the whole image and its size. The caller closes it.
	Open() (io.ReaderAt, int64, io.Closer, error)
}

// fileImageSource reads an image from disk, defaulting to the running executable
type fileImageSource struct {
	path string
}

// NewFileImageSource creates an image source for path. An empty path selects the running executable.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewFileImageSource(path string) *fileImageSource {
	return &fileImageSource{path: path}
}

func (s *fileImageSource) Name() string {
	p, err := s.resolve()
	if err != nil {
		return s.path
	}
	return p
}

func (s *fileImageSource) resolve() (string, error) {
	if s.path != "" {
		return s.path, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return exe, nil
	}
	return resolved, nil
}

func (s *fileImageSource) Open() (io.ReaderAt, int64, io.Closer, error) {
	path, err := s.resolve()
	if err != nil {
		return nil, 0, nil, err
	}
	//nolint:gosec // G304: path is the running executable or an operator-supplied binary
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("failed to open image: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, nil, fmt.Errorf("failed to stat image: %w", err)
	}
	return f, info.Size(), f, nil
}

// bytesImageSource serves an image already held in memory
type bytesImageSource struct {
	name string
	data []byte
}

// NewBytesImageSource creates an image source over an in-memory image
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewBytesImageSource(name string, data []byte) *bytesImageSource {
	return &bytesImageSource{name: name, data: data}
}

func (s *bytesImageSource) Name() string {
	return s.name
}

func (s *bytesImageSource) Open() (io.ReaderAt, int64, io.Closer, error) {
	return bytes.NewReader(s.data), int64(len(s.data)), io.NopCloser(nil), nil
}
