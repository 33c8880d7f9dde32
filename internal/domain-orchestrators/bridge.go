package orchestrators

import (
	"context"
	"sync"

	"github.com/ochairo/appguard/internal/domain/entities"
)

// EnvironmentCheckFailed is delivered to the view-appeared callback on an untrusted verdict
const EnvironmentCheckFailed = "environment check failed"

// BootTask runs the host's post-launch work and returns the deep-link target, if any
type BootTask func(ctx context.Context) (entities.Optional[string], error)

// ViewAppearedCallback receives either a deep-link target or an error message
type ViewAppearedCallback func(url entities.Optional[string], errMessage entities.Optional[string])

// Bridge is the surface the host application calls into
type Bridge struct {
	runtime *Runtime
	boot    BootTask

	viewOnce sync.Once
}

// NewBridge creates a bridge over runtime. boot may be nil.
func NewBridge(runtime *Runtime, boot BootTask) *Bridge {
	return &Bridge{runtime: runtime, boot: boot}
}

func (b *Bridge) components(ctx context.Context) *Components {
	c, _ := b.runtime.Components(ctx)
	return c
}

// GetServerIdentityKey returns the server identity key. It is not gated by the verdict.
func (b *Bridge) GetServerIdentityKey(ctx context.Context) entities.Optional[[]byte] {
	return b.components(ctx).Vault.ServerIdentityKey()
}

// GetBundleIdentifier returns the application identifier or "unknown"
func (b *Bridge) GetBundleIdentifier(ctx context.Context) string {
	return b.components(ctx).Metadata.BundleIdentifier(ctx)
}

// GetTeamIdentifier returns the signing team or "unknown"
func (b *Bridge) GetTeamIdentifier(ctx context.Context) string {
	return b.components(ctx).Metadata.TeamIdentifier(ctx)
}

// GetVersion returns the version string or "unknown"
func (b *Bridge) GetVersion(ctx context.Context) string {
	return b.components(ctx).Metadata.Version(ctx)
}

// GetBundleName returns the display name or "unknown"
func (b *Bridge) GetBundleName(ctx context.Context) string {
	return b.components(ctx).Metadata.BundleName(ctx)
}

// IsAppLegitimate runs a fresh evaluation
func (b *Bridge) IsAppLegitimate(ctx context.Context) bool {
	return b.components(ctx).Legitimacy.IsAppLegitimate(ctx)
}

// SilentQuit terminates the process
func (b *Bridge) SilentQuit(ctx context.Context) {
	b.components(ctx).Enforcer.SilentQuit()
}

// OnViewAppeared fires completion exactly once per bridge. An untrusted
// environment never reaches the boot task.
func (b *Bridge) OnViewAppeared(ctx context.Context, completion ViewAppearedCallback) {
	b.viewOnce.Do(func() {
		none := entities.None[string]()
		if !b.IsAppLegitimate(ctx) {
			completion(none, entities.Some(EnvironmentCheckFailed))
			return
		}
		if b.boot == nil {
			completion(none, none)
			return
		}
		url, err := b.boot(ctx)
		if err != nil {
			completion(none, entities.Some(err.Error()))
			return
		}
		completion(url, none)
	})
}
