package gateways

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultWriteProbeDir is a system location a sandboxed app must not be able to write to
const DefaultWriteProbeDir = "/private"

// fileProber answers existence questions with lstat so links are reported, not followed
type fileProber struct {
	writeProbeDir string
}

// NewFileProber creates a file prober. An empty writeProbeDir selects DefaultWriteProbeDir.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewFileProber(writeProbeDir string) *fileProber {
	if writeProbeDir == "" {
		writeProbeDir = DefaultWriteProbeDir
	}
	return &fileProber{writeProbeDir: writeProbeDir}
}

// Exists reports whether path exists
func (p *fileProber) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
}

// IsSymlink reports whether path is a symbolic link. A missing path is not a link.
func (p *fileProber) IsSymlink(path string) (bool, error) {
	info, err := os.Lstat(path)
	switch {
	case err == nil:
		return info.Mode()&fs.ModeSymlink != 0, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
}

// CanWriteOutsideContainer tries to create and remove a file in the probe directory.
// Any failure to create it is the expected sandboxed outcome.
func (p *fileProber) CanWriteOutsideContainer() (bool, error) {
	name := filepath.Join(p.writeProbeDir, ".appguard-"+strconv.Itoa(os.Getpid()))
	//nolint:gosec // G304: fixed probe file name under the probe directory
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return false, nil
	}
	_ = f.Close()
	_ = os.Remove(name)
	return true, nil
}
