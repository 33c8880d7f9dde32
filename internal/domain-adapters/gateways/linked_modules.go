package gateways

import (
	"context"
	"fmt"

	"github.com/ochairo/appguard/internal/domain/interfaces/gateways"
)

// LinkedLibrarySource lists the dylibs an executable image links against
type LinkedLibrarySource interface {
	LinkedLibraries(ctx context.Context) ([]string, error)
}

// linkedModuleLister reports the modules mapped into the process together with
// the libraries the executable image declares
type linkedModuleLister struct {
	process gateways.ModuleLister
	image   LinkedLibrarySource
}

// NewLinkedModuleLister merges the process module list with the image's linked libraries
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewLinkedModuleLister(process gateways.ModuleLister, image LinkedLibrarySource) *linkedModuleLister {
	return &linkedModuleLister{process: process, image: image}
}

// LoadedModules returns each module once, process modules first
func (l *linkedModuleLister) LoadedModules(ctx context.Context) ([]string, error) {
	mapped, err := l.process.LoadedModules(ctx)
	if err != nil {
		return nil, err
	}
	linked, err := l.image.LinkedLibraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked libraries: %w", err)
	}

	seen := make(map[string]struct{}, len(mapped)+len(linked))
	modules := make([]string, 0, len(mapped)+len(linked))
	for _, group := range [][]string{mapped, linked} {
		for _, m := range group {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			modules = append(modules, m)
		}
	}
	return modules, nil
}
