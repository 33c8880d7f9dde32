//go:build !darwin && !ios && !linux

package gateways

import "context"

// traceProber has no trace source on this platform; the parent-process check still runs
type traceProber struct{}

// NewTraceProber creates a trace prober for the current process
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewTraceProber() *traceProber {
	return &traceProber{}
}

// IsTraced always reports false
func (p *traceProber) IsTraced(_ context.Context) (bool, error) {
	return false, nil
}
