package gateways

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// DefaultSpawnCommand is a child process that exits immediately
var DefaultSpawnCommand = []string{"/bin/sh", "-c", "exit 0"}

// processSpawner attempts to start a short-lived child process
type processSpawner struct {
	command []string
	timeout time.Duration
}

// NewProcessSpawner creates a spawner. An empty command selects DefaultSpawnCommand.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewProcessSpawner(command ...string) *processSpawner {
	if len(command) == 0 {
		command = DefaultSpawnCommand
	}
	return &processSpawner{
		command: command,
		timeout: 2 * time.Second,
	}
}

// TrySpawn returns nil when the child process started
func (s *processSpawner) TrySpawn(ctx context.Context) error {
	execCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	//nolint:gosec // G204: command is a fixed probe, not user input
	cmd := exec.CommandContext(execCtx, s.command[0], s.command[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to spawn %s: %w", s.command[0], err)
	}
	// the spawn itself is the signal; the exit status is irrelevant
	_ = cmd.Wait()
	return nil
}
