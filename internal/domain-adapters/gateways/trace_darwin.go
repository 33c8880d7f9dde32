//go:build darwin || ios

package gateways

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// pTraced is the kernel process flag set while a tracer is attached
const pTraced = 0x00000800

// traceProber reads P_TRACED from the kernel process table
type traceProber struct{}

// NewTraceProber creates a trace prober for the current process
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewTraceProber() *traceProber {
	return &traceProber{}
}

// IsTraced reports whether a debugger is attached
func (p *traceProber) IsTraced(_ context.Context) (bool, error) {
	info, err := unix.SysctlKinfoProc("kern.proc.pid", os.Getpid())
	if err != nil {
		return false, fmt.Errorf("failed to read process info: %w", err)
	}
	return info.Proc.P_flag&pTraced != 0, nil
}
