// Package gateways defines interfaces for platform and file-format adapters.
package gateways

import (
	"context"

	"github.com/ochairo/appguard/internal/domain/entities"
)

// ImageInspector inspects the running executable image.
// Every call reads the image afresh; nothing is cached between calls.
type ImageInspector interface {
	// Inspect returns the full image snapshot
	Inspect(ctx context.Context) (*entities.ExecutableImage, error)

	// ExtractEncryptionInfo reports the encryption descriptor. A well-formed image
	// without the descriptor returns Present == false and no error.
	ExtractEncryptionInfo(ctx context.Context) (entities.EncryptionInfo, error)

	// ExtractSigningIdentityToken returns the binary-embedded token, absent when none is found
	ExtractSigningIdentityToken(ctx context.Context) (entities.Optional[entities.SigningIdentityToken], error)

	// BuildPlatform returns the platform the binary was linked for
	BuildPlatform(ctx context.Context) (entities.BuildPlatform, error)
}

// EmbeddedIdentitySource exposes identity facts embedded in the binary for the metadata fallback
type EmbeddedIdentitySource interface {
	// SigningIdentifier returns the code-signing identifier (normally the bundle identifier)
	SigningIdentifier(ctx context.Context) (entities.Optional[string], error)

	// EmbeddedInfo returns the Info.plist linked into __TEXT,__info_plist
	EmbeddedInfo(ctx context.Context) (entities.Optional[*entities.BundleInfo], error)
}

// ProvisioningReader reads the optional install-time provisioning artifact.
// Absence returns None with a nil error; a present but unparsable artifact
// returns an error wrapping entities.ErrMalformedProvisioning.
type ProvisioningReader interface {
	ReadArtifact(ctx context.Context) (entities.Optional[*entities.ProvisioningArtifact], error)
	ReadSigningIdentityToken(ctx context.Context) (entities.Optional[entities.SigningIdentityToken], error)
}

// BundleInfoReader reads the bundle's Info.plist
type BundleInfoReader interface {
	ReadBundleInfo(ctx context.Context) (entities.Optional[*entities.BundleInfo], error)
}
