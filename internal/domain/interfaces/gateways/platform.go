package gateways

import "context"

// FileProber answers filesystem questions for the path-based probes
type FileProber interface {
	// Exists reports whether path exists. A missing path is (false, nil);
	// any other failure is returned as an error.
	Exists(path string) (bool, error)

	// IsSymlink reports whether path is a symbolic link
	IsSymlink(path string) (bool, error)

	// CanWriteOutsideContainer attempts a write in a system location and removes
	// the file again. A sandboxed process is expected to get false.
	CanWriteOutsideContainer() (bool, error)
}

// TraceProber reads the process trace state
type TraceProber interface {
	// IsTraced reports whether a tracer (debugger) is attached to the process
	IsTraced(ctx context.Context) (bool, error)
}

// ProcessInspector answers questions about the process tree
type ProcessInspector interface {
	// ParentProcessName returns the parent process name, absent when the parent is
	// the system launcher
	ParentProcessName(ctx context.Context) (string, bool, error)

	// ForeignProcessCount returns how many processes other than this one are visible
	ForeignProcessCount(ctx context.Context) (int, error)
}

// ModuleLister lists the dynamic libraries mapped into the process
type ModuleLister interface {
	LoadedModules(ctx context.Context) ([]string, error)
}

// ProcessSpawner attempts to create a child process, which a sandbox forbids
type ProcessSpawner interface {
	// TrySpawn returns nil when a child process was created
	TrySpawn(ctx context.Context) error
}

// URLCapabilityProber reports whether a URL scheme has a registered handler
type URLCapabilityProber interface {
	CanOpenURL(scheme string) (bool, error)
}

// Environment reads process environment variables
type Environment interface {
	LookupEnv(key string) (string, bool)
}

// PlatformGateway bundles every platform capability the probe set consumes
type PlatformGateway interface {
	FileProber
	TraceProber
	ProcessInspector
	ModuleLister
	ProcessSpawner
	URLCapabilityProber
	Environment
}
