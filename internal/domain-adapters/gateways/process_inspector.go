package gateways

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v4/process"
)

// processInspector queries the process table through gopsutil
type processInspector struct {
	pid int32
}

// NewProcessInspector creates an inspector for the current process
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewProcessInspector() *processInspector {
	//nolint:gosec // G115: pids fit in int32 on every supported platform
	return &processInspector{pid: int32(os.Getpid())}
}

// ParentProcessName returns false when the parent is the init/launchd process
func (p *processInspector) ParentProcessName(ctx context.Context) (string, bool, error) {
	self, err := process.NewProcessWithContext(ctx, p.pid)
	if err != nil {
		return "", false, fmt.Errorf("failed to open process %d: %w", p.pid, err)
	}
	ppid, err := self.PpidWithContext(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to read parent pid: %w", err)
	}
	if ppid <= 1 {
		return "", false, nil
	}
	parent, err := process.NewProcessWithContext(ctx, ppid)
	if err != nil {
		return "", false, fmt.Errorf("failed to open parent process %d: %w", ppid, err)
	}
	name, err := parent.NameWithContext(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to read parent name: %w", err)
	}
	return name, true, nil
}

// ForeignProcessCount counts visible processes other than this one
func (p *processInspector) ForeignProcessCount(ctx context.Context) (int, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list processes: %w", err)
	}
	count := 0
	for _, pid := range pids {
		if pid != p.pid {
			count++
		}
	}
	return count, nil
}
