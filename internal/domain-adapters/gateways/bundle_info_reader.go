package gateways

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ochairo/appguard/internal/domain/entities"
	"howett.net/plist"
)

// bundleInfoReader decodes the bundle's Info.plist (XML or binary)
type bundleInfoReader struct {
	path string
}

// NewBundleInfoReader creates a reader for the Info.plist at path
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewBundleInfoReader(path string) *bundleInfoReader {
	return &bundleInfoReader{path: path}
}

// ReadBundleInfo returns None when the file does not exist
func (r *bundleInfoReader) ReadBundleInfo(_ context.Context) (entities.Optional[*entities.BundleInfo], error) {
	none := entities.None[*entities.BundleInfo]()

	//nolint:gosec // G304: path is the bundle's own Info.plist
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return none, nil
	}
	if err != nil {
		return none, fmt.Errorf("failed to read Info.plist: %w", err)
	}

	var info entities.BundleInfo
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return none, fmt.Errorf("failed to parse Info.plist: %w", err)
	}
	return entities.Some(&info), nil
}
