//go:build linux

package gateways

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// traceProber reads TracerPid from procfs
type traceProber struct {
	statusPath string
}

// NewTraceProber creates a trace prober for the current process
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewTraceProber() *traceProber {
	return &traceProber{statusPath: "/proc/self/status"}
}

// IsTraced reports whether a tracer is attached
func (p *traceProber) IsTraced(_ context.Context) (bool, error) {
	data, err := os.ReadFile(p.statusPath)
	if err != nil {
		return false, fmt.Errorf("failed to read process status: %w", err)
	}
	return parseTracerPid(data)
}

func parseTracerPid(status []byte) (bool, error) {
	scanner := bufio.NewScanner(bytes.NewReader(status))
	for scanner.Scan() {
		value, found := strings.CutPrefix(scanner.Text(), "TracerPid:")
		if !found {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return false, fmt.Errorf("failed to parse TracerPid: %w", err)
		}
		return pid != 0, nil
	}
	return false, fmt.Errorf("TracerPid not found in process status")
}
