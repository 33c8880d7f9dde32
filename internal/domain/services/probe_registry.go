package services

import (
	"github.com/ochairo/appguard/internal/domain/entities"
	"github.com/ochairo/appguard/internal/domain/interfaces/gateways"
	"github.com/ochairo/appguard/internal/domain/interfaces/services"
)

// ProbeRegistry is the ordered probe set the engine iterates. Short-circuit
// probes run before any other verdict step.
type ProbeRegistry struct {
	shortCircuit []services.Probe
	probes       []services.Probe
}

// NewProbeRegistry creates an empty registry
func NewProbeRegistry() *ProbeRegistry {
	return &ProbeRegistry{}
}

// Register appends probes evaluated after the identity checks
func (r *ProbeRegistry) Register(probes ...services.Probe) *ProbeRegistry {
	r.probes = append(r.probes, probes...)
	return r
}

// RegisterShortCircuit appends probes evaluated first
func (r *ProbeRegistry) RegisterShortCircuit(probes ...services.Probe) *ProbeRegistry {
	r.shortCircuit = append(r.shortCircuit, probes...)
	return r
}

// ShortCircuit returns a copy of the short-circuit probes
func (r *ProbeRegistry) ShortCircuit() []services.Probe {
	return append([]services.Probe(nil), r.shortCircuit...)
}

// Probes returns a copy of the ordinary probes
func (r *ProbeRegistry) Probes() []services.Probe {
	return append([]services.Probe(nil), r.probes...)
}

// Names lists every registered probe in evaluation order
func (r *ProbeRegistry) Names() []string {
	names := make([]string, 0, len(r.shortCircuit)+len(r.probes))
	for _, p := range r.shortCircuit {
		names = append(names, p.Name())
	}
	for _, p := range r.probes {
		names = append(names, p.Name())
	}
	return names
}

// NewDefaultProbeRegistry builds the full probe set over platform, extending
// the built-in catalogs with cfg.
func NewDefaultProbeRegistry(
	platform gateways.PlatformGateway,
	image gateways.ImageInspector,
	cfg entities.ProbeConfig,
	bundleDir string,
) *ProbeRegistry {
	return NewProbeRegistry().
		RegisterShortCircuit(NewSimulatorProbe(platform, image)).
		Register(
			NewJailbreakProbe(platform, mergeCatalog(DefaultJailbreakArtifacts, cfg.JailbreakArtifacts), DefaultSymlinkedSystemDirs),
			NewDebuggerProbe(platform, platform, mergeCatalog(DefaultDebuggerProcesses, cfg.DebuggerProcesses)),
			NewSandboxBreachProbe(platform, platform),
			NewInjectedLibraryProbe(
				platform,
				platform,
				mergeCatalog(DefaultAllowedLibraryPrefixes, cfg.AllowedLibraryPrefixes),
				mergeCatalog(DefaultSuspiciousLibraries, cfg.SuspiciousLibraries),
				bundleDir,
			),
			NewForbiddenPathProbe(platform, mergeCatalog(DefaultForbiddenPaths, cfg.ForbiddenPaths)),
			NewForbiddenCapabilityProbe(platform, mergeCatalog(DefaultForbiddenURLSchemes, cfg.ForbiddenURLSchemes)),
		)
}
