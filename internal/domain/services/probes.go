package services

import (
	"context"
	"path"
	"slices"
	"strings"

	"github.com/ochairo/appguard/internal/domain/interfaces/gateways"
	"github.com/ochairo/appguard/internal/domain/interfaces/services"
)

// ProbeFunc adapts a function to the Probe interface
type ProbeFunc struct {
	ProbeName string
	Fn        func(ctx context.Context) bool
}

// Name returns the probe name
func (p ProbeFunc) Name() string { return p.ProbeName }

// Evaluate runs the function
func (p ProbeFunc) Evaluate(ctx context.Context) bool { return p.Fn(ctx) }

var _ services.Probe = ProbeFunc{}

// simulatorProbe detects a virtual target from the environment or the linked platform
type simulatorProbe struct {
	env   gateways.Environment
	image gateways.ImageInspector
}

// NewSimulatorProbe creates the simulator probe
func NewSimulatorProbe(env gateways.Environment, image gateways.ImageInspector) services.Probe {
	return &simulatorProbe{env: env, image: image}
}

func (p *simulatorProbe) Name() string { return ProbeSimulator }

func (p *simulatorProbe) Evaluate(ctx context.Context) bool {
	for _, key := range SimulatorEnvironmentVariables {
		if v, ok := p.env.LookupEnv(key); ok && v != "" {
			return true
		}
	}
	platform, err := p.image.BuildPlatform(ctx)
	if err != nil {
		return true
	}
	return platform.IsSimulator()
}

// jailbreakProbe ORs artifact existence, relocated system directories and an escaped write
type jailbreakProbe struct {
	files       gateways.FileProber
	artifacts   []string
	symlinkDirs []string
}

// NewJailbreakProbe creates the jailbreak probe
func NewJailbreakProbe(files gateways.FileProber, artifacts, symlinkDirs []string) services.Probe {
	return &jailbreakProbe{files: files, artifacts: artifacts, symlinkDirs: symlinkDirs}
}

func (p *jailbreakProbe) Name() string { return ProbeJailbreak }

func (p *jailbreakProbe) Evaluate(_ context.Context) bool {
	if anyPathExists(p.files, p.artifacts) {
		return true
	}
	for _, dir := range p.symlinkDirs {
		linked, err := p.files.IsSymlink(dir)
		if err != nil || linked {
			return true
		}
	}
	writable, err := p.files.CanWriteOutsideContainer()
	return err != nil || writable
}

// debuggerProbe checks the trace flag and the parent process
type debuggerProbe struct {
	trace     gateways.TraceProber
	processes gateways.ProcessInspector
	debuggers []string
}

// NewDebuggerProbe creates the debugger probe
func NewDebuggerProbe(trace gateways.TraceProber, processes gateways.ProcessInspector, debuggers []string) services.Probe {
	return &debuggerProbe{trace: trace, processes: processes, debuggers: debuggers}
}

func (p *debuggerProbe) Name() string { return ProbeDebugger }

func (p *debuggerProbe) Evaluate(ctx context.Context) bool {
	traced, err := p.trace.IsTraced(ctx)
	if err != nil || traced {
		return true
	}
	parent, ok, err := p.processes.ParentProcessName(ctx)
	if err != nil {
		return true
	}
	if !ok {
		return false
	}
	parent = strings.ToLower(path.Base(parent))
	return slices.ContainsFunc(p.debuggers, func(name string) bool {
		return parent == strings.ToLower(name)
	})
}

// sandboxBreachProbe attempts operations a sandbox forbids. A failed attempt is
// the expected outcome and never a signal on its own.
type sandboxBreachProbe struct {
	spawner   gateways.ProcessSpawner
	processes gateways.ProcessInspector
}

// NewSandboxBreachProbe creates the sandbox-breach probe
func NewSandboxBreachProbe(spawner gateways.ProcessSpawner, processes gateways.ProcessInspector) services.Probe {
	return &sandboxBreachProbe{spawner: spawner, processes: processes}
}

func (p *sandboxBreachProbe) Name() string { return ProbeSandboxBreach }

func (p *sandboxBreachProbe) Evaluate(ctx context.Context) bool {
	if err := p.spawner.TrySpawn(ctx); err == nil {
		return true
	}
	count, err := p.processes.ForeignProcessCount(ctx)
	return err == nil && count > 0
}

// injectedLibraryProbe flags insertion requests and modules outside the allow-list
type injectedLibraryProbe struct {
	modules    gateways.ModuleLister
	env        gateways.Environment
	allowed    []string
	suspicious []string
	bundleDir  string
}

// NewInjectedLibraryProbe creates the injected-library probe. Modules under bundleDir are first-party.
func NewInjectedLibraryProbe(modules gateways.ModuleLister, env gateways.Environment, allowed, suspicious []string, bundleDir string) services.Probe {
	return &injectedLibraryProbe{
		modules:    modules,
		env:        env,
		allowed:    allowed,
		suspicious: suspicious,
		bundleDir:  bundleDir,
	}
}

func (p *injectedLibraryProbe) Name() string { return ProbeInjectedLibrary }

func (p *injectedLibraryProbe) Evaluate(ctx context.Context) bool {
	if v, ok := p.env.LookupEnv("DYLD_INSERT_LIBRARIES"); ok && strings.TrimSpace(v) != "" {
		return true
	}
	modules, err := p.modules.LoadedModules(ctx)
	if err != nil {
		return true
	}
	for _, module := range modules {
		if p.isSuspicious(module) || !p.isAllowed(module) {
			return true
		}
	}
	return false
}

func (p *injectedLibraryProbe) isSuspicious(module string) bool {
	name := strings.ToLower(path.Base(module))
	for _, s := range p.suspicious {
		if strings.Contains(name, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

func (p *injectedLibraryProbe) isAllowed(module string) bool {
	if p.bundleDir != "" && strings.HasPrefix(module, strings.TrimSuffix(p.bundleDir, "/")+"/") {
		return true
	}
	for _, prefix := range p.allowed {
		if strings.HasPrefix(module, prefix) {
			return true
		}
	}
	return false
}

// forbiddenPathProbe runs plain existence tests
type forbiddenPathProbe struct {
	files gateways.FileProber
	paths []string
}

// NewForbiddenPathProbe creates the forbidden-path probe
func NewForbiddenPathProbe(files gateways.FileProber, paths []string) services.Probe {
	return &forbiddenPathProbe{files: files, paths: paths}
}

func (p *forbiddenPathProbe) Name() string { return ProbeForbiddenPath }

func (p *forbiddenPathProbe) Evaluate(_ context.Context) bool {
	return anyPathExists(p.files, p.paths)
}

// forbiddenCapabilityProbe asks whether jailbreak-manager URL handlers can be invoked
type forbiddenCapabilityProbe struct {
	urls    gateways.URLCapabilityProber
	schemes []string
}

// NewForbiddenCapabilityProbe creates the forbidden-capability probe
func NewForbiddenCapabilityProbe(urls gateways.URLCapabilityProber, schemes []string) services.Probe {
	return &forbiddenCapabilityProbe{urls: urls, schemes: schemes}
}

func (p *forbiddenCapabilityProbe) Name() string { return ProbeForbiddenCapability }

func (p *forbiddenCapabilityProbe) Evaluate(_ context.Context) bool {
	for _, scheme := range p.schemes {
		ok, err := p.urls.CanOpenURL(scheme)
		if err != nil || ok {
			return true
		}
	}
	return false
}

// anyPathExists treats an unanswerable existence query as present
func anyPathExists(files gateways.FileProber, paths []string) bool {
	for _, p := range paths {
		ok, err := files.Exists(p)
		if err != nil || ok {
			return true
		}
	}
	return false
}
