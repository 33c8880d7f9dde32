// Package services defines interfaces for domain service contracts.
package services

import (
	"context"

	"github.com/ochairo/appguard/internal/domain/entities"
)

// Probe is one stateless environment-integrity predicate.
// Evaluate returns true when the untrusted signal is present.
type Probe interface {
	Name() string
	Evaluate(ctx context.Context) bool
}

// LegitimacyService folds image, identity and probe signals into one verdict
type LegitimacyService interface {
	// IsAppLegitimate always returns a boolean, never an error
	IsAppLegitimate(ctx context.Context) bool

	// Evaluate returns the verdict with its in-process diagnostic record
	Evaluate(ctx context.Context) entities.Verdict
}

// IdentityMetadataService exposes display/reporting identity
type IdentityMetadataService interface {
	Metadata(ctx context.Context) entities.IdentityMetadata
	BundleIdentifier(ctx context.Context) string
	TeamIdentifier(ctx context.Context) string
	Version(ctx context.Context) string
	BundleName(ctx context.Context) string
}

// KeyVault recovers the protected secret. It is not gated by the verdict.
type KeyVault interface {
	GetSecureServerKey() []byte
	ServerIdentityKey() entities.Optional[[]byte]
}

// Enforcer terminates the process after an untrusted verdict
type Enforcer interface {
	SilentQuit()
}
