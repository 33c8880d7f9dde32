package gateways

import (
	"context"
	"os"

	"github.com/ochairo/appguard/internal/domain/interfaces/gateways"
)

// osEnvironment reads the process environment
type osEnvironment struct{}

func (osEnvironment) LookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// compositePlatformGateway implements the PlatformGateway interface by composing
// the individual platform probers together
type compositePlatformGateway struct {
	files     gateways.FileProber
	trace     gateways.TraceProber
	processes gateways.ProcessInspector
	modules   gateways.ModuleLister
	spawner   gateways.ProcessSpawner
	urls      gateways.URLCapabilityProber
	env       gateways.Environment
}

// NewCompositePlatformGateway creates the platform gateway for the running process.
// When image is set its linked libraries are reported alongside the mapped modules.
func NewCompositePlatformGateway(image LinkedLibrarySource) gateways.PlatformGateway {
	files := NewFileProber("")
	var modules gateways.ModuleLister = NewModuleLister()
	if image != nil {
		modules = NewLinkedModuleLister(modules, image)
	}
	return &compositePlatformGateway{
		files:     files,
		trace:     NewTraceProber(),
		processes: NewProcessInspector(),
		modules:   modules,
		spawner:   NewProcessSpawner(),
		urls:      NewURLCapabilityProber(files, nil),
		env:       osEnvironment{},
	}
}

// NewCompositePlatformGatewayWithDeps creates a composite gateway with custom dependencies
// This is useful for testing or when you want to inject specific implementations
func NewCompositePlatformGatewayWithDeps(
	files gateways.FileProber,
	trace gateways.TraceProber,
	processes gateways.ProcessInspector,
	modules gateways.ModuleLister,
	spawner gateways.ProcessSpawner,
	urls gateways.URLCapabilityProber,
	env gateways.Environment,
) gateways.PlatformGateway {
	if env == nil {
		env = osEnvironment{}
	}
	return &compositePlatformGateway{
		files:     files,
		trace:     trace,
		processes: processes,
		modules:   modules,
		spawner:   spawner,
		urls:      urls,
		env:       env,
	}
}

func (c *compositePlatformGateway) Exists(path string) (bool, error) {
	return c.files.Exists(path)
}

func (c *compositePlatformGateway) IsSymlink(path string) (bool, error) {
	return c.files.IsSymlink(path)
}

func (c *compositePlatformGateway) CanWriteOutsideContainer() (bool, error) {
	return c.files.CanWriteOutsideContainer()
}

func (c *compositePlatformGateway) IsTraced(ctx context.Context) (bool, error) {
	return c.trace.IsTraced(ctx)
}

func (c *compositePlatformGateway) ParentProcessName(ctx context.Context) (string, bool, error) {
	return c.processes.ParentProcessName(ctx)
}

func (c *compositePlatformGateway) ForeignProcessCount(ctx context.Context) (int, error) {
	return c.processes.ForeignProcessCount(ctx)
}

func (c *compositePlatformGateway) LoadedModules(ctx context.Context) ([]string, error) {
	return c.modules.LoadedModules(ctx)
}

func (c *compositePlatformGateway) TrySpawn(ctx context.Context) error {
	return c.spawner.TrySpawn(ctx)
}

func (c *compositePlatformGateway) CanOpenURL(scheme string) (bool, error) {
	return c.urls.CanOpenURL(scheme)
}

func (c *compositePlatformGateway) LookupEnv(key string) (string, bool) {
	return c.env.LookupEnv(key)
}
