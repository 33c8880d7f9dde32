//go:build linux

package gateways

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// moduleLister reads the file-backed mappings of the current process
type moduleLister struct {
	pid int32
}

// NewModuleLister creates a lister for the current process
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewModuleLister() *moduleLister {
	//nolint:gosec // G115: pids fit in int32 on every supported platform
	return &moduleLister{pid: int32(os.Getpid())}
}

// LoadedModules returns each mapped shared object once
func (l *moduleLister) LoadedModules(ctx context.Context) ([]string, error) {
	proc, err := process.NewProcessWithContext(ctx, l.pid)
	if err != nil {
		return nil, fmt.Errorf("failed to open process %d: %w", l.pid, err)
	}
	maps, err := proc.MemoryMapsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to read memory maps: %w", err)
	}
	if maps == nil {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var modules []string
	for _, m := range *maps {
		if !strings.HasPrefix(m.Path, "/") || !strings.Contains(m.Path, ".so") {
			continue
		}
		if _, dup := seen[m.Path]; dup {
			continue
		}
		seen[m.Path] = struct{}{}
		modules = append(modules, m.Path)
	}
	return modules, nil
}
