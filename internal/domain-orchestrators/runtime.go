// Package orchestrators coordinates domain services for host-facing use cases.
package orchestrators

import (
	"context"
	"sync"

	"github.com/ochairo/appguard/internal/domain/entities"
	"github.com/ochairo/appguard/internal/domain/interfaces"
	"github.com/ochairo/appguard/internal/domain/interfaces/services"
	domainservices "github.com/ochairo/appguard/internal/domain/services"
)

// Components are the services one runtime hands out
type Components struct {
	Legitimacy services.LegitimacyService
	Metadata   services.IdentityMetadataService
	Vault      services.KeyVault
	Enforcer   services.Enforcer
}

// ComponentFactory builds the components. It runs at most once per Runtime.
type ComponentFactory func(ctx context.Context) (*Components, error)

// Runtime is the per-process context created once by the host at startup and
// passed to every consumer. Setup is lazy and happens exactly once; after that
// the runtime holds no mutable state.
type Runtime struct {
	build  ComponentFactory
	logger interfaces.Logger

	once       sync.Once
	components *Components
	setupErr   error
}

// NewRuntime creates a runtime around factory
func NewRuntime(factory ComponentFactory, logger interfaces.Logger) *Runtime {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &Runtime{build: factory, logger: logger}
}

// Components returns the services, building them on first use. A failed setup
// yields fail-closed components and the setup error.
func (r *Runtime) Components(ctx context.Context) (*Components, error) {
	r.once.Do(func() {
		components, err := r.build(ctx)
		if err != nil {
			r.logger.Warn("runtime setup failed, failing closed", interfaces.F("error", err))
			r.components, r.setupErr = failClosedComponents(), err
			return
		}
		r.components = withDefaults(components)
	})
	return r.components, r.setupErr
}

func withDefaults(c *Components) *Components {
	out := *c
	fallback := failClosedComponents()
	if out.Legitimacy == nil {
		out.Legitimacy = fallback.Legitimacy
	}
	if out.Metadata == nil {
		out.Metadata = fallback.Metadata
	}
	if out.Vault == nil {
		out.Vault = fallback.Vault
	}
	if out.Enforcer == nil {
		out.Enforcer = fallback.Enforcer
	}
	return &out
}

func failClosedComponents() *Components {
	return &Components{
		Legitimacy: untrustedService{},
		Metadata:   unknownMetadata{},
		Vault:      domainservices.NewDefaultKeyVault(),
		Enforcer:   domainservices.NewEnforcer(nil),
	}
}

// untrustedService is used when the engine could not be set up
type untrustedService struct{}

func (untrustedService) IsAppLegitimate(context.Context) bool { return false }

func (untrustedService) Evaluate(context.Context) entities.Verdict {
	return entities.IllegitimateVerdict("setup-failed")
}

type unknownMetadata struct{}

func (unknownMetadata) Metadata(context.Context) entities.IdentityMetadata {
	return entities.IdentityMetadata{
		BundleIdentifier: entities.UnknownField,
		TeamIdentifier:   entities.UnknownField,
		Version:          entities.UnknownField,
		DisplayName:      entities.UnknownField,
	}
}

func (unknownMetadata) BundleIdentifier(context.Context) string { return entities.UnknownField }
func (unknownMetadata) TeamIdentifier(context.Context) string   { return entities.UnknownField }
func (unknownMetadata) Version(context.Context) string          { return entities.UnknownField }
func (unknownMetadata) BundleName(context.Context) string       { return entities.UnknownField }
