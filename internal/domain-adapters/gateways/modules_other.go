//go:build !linux

package gateways

import (
	"context"
	"os"
	"strings"
)

// moduleLister reports the libraries dyld was asked to insert. The dyld image list
// needs cgo; linked libraries come from the image through linkedModuleLister.
type moduleLister struct{}

// NewModuleLister creates a lister for the current process
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewModuleLister() *moduleLister {
	return &moduleLister{}
}

// LoadedModules returns the DYLD_INSERT_LIBRARIES entries
func (l *moduleLister) LoadedModules(_ context.Context) ([]string, error) {
	var modules []string
	for _, lib := range strings.Split(os.Getenv("DYLD_INSERT_LIBRARIES"), ":") {
		if lib = strings.TrimSpace(lib); lib != "" {
			modules = append(modules, lib)
		}
	}
	return modules, nil
}
