package services

import (
	"context"

	"github.com/ochairo/appguard/internal/domain/entities"
	"github.com/ochairo/appguard/internal/domain/interfaces"
	"github.com/ochairo/appguard/internal/domain/interfaces/gateways"
	"github.com/ochairo/appguard/internal/domain/interfaces/services"
)

// identityMetadataReader answers the display identity fields. Every lookup
// degrades to entities.UnknownField instead of failing.
type identityMetadataReader struct {
	info         gateways.BundleInfoReader
	embedded     gateways.EmbeddedIdentitySource
	image        gateways.ImageInspector
	provisioning gateways.ProvisioningReader
	logger       interfaces.Logger
}

// NewIdentityMetadataService creates the metadata reader
func NewIdentityMetadataService(
	info gateways.BundleInfoReader,
	embedded gateways.EmbeddedIdentitySource,
	image gateways.ImageInspector,
	provisioning gateways.ProvisioningReader,
	logger interfaces.Logger,
) services.IdentityMetadataService {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &identityMetadataReader{
		info:         info,
		embedded:     embedded,
		image:        image,
		provisioning: provisioning,
		logger:       logger,
	}
}

// Metadata returns all four fields
func (r *identityMetadataReader) Metadata(ctx context.Context) entities.IdentityMetadata {
	infos := r.bundleInfos(ctx)
	return entities.IdentityMetadata{
		BundleIdentifier: r.bundleIdentifier(ctx, infos),
		TeamIdentifier:   r.TeamIdentifier(ctx),
		Version:          firstField(infos, func(i *entities.BundleInfo) string { return i.ShortVersion }, func(i *entities.BundleInfo) string { return i.BuildVersion }),
		DisplayName:      firstField(infos, func(i *entities.BundleInfo) string { return i.BundleDisplayName }, func(i *entities.BundleInfo) string { return i.BundleName }, func(i *entities.BundleInfo) string { return i.Executable }),
	}
}

// BundleIdentifier returns the application identifier
func (r *identityMetadataReader) BundleIdentifier(ctx context.Context) string {
	return r.bundleIdentifier(ctx, r.bundleInfos(ctx))
}

// TeamIdentifier prefers the binary token and falls back to the profile token
func (r *identityMetadataReader) TeamIdentifier(ctx context.Context) string {
	if r.image != nil {
		token, err := r.image.ExtractSigningIdentityToken(ctx)
		if err != nil {
			r.logger.Debug("binary team identifier unavailable", interfaces.F("error", err))
		} else if t, ok := token.Get(); ok {
			return t.String()
		}
	}
	if r.provisioning != nil {
		token, err := r.provisioning.ReadSigningIdentityToken(ctx)
		if err != nil {
			r.logger.Debug("profile team identifier unavailable", interfaces.F("error", err))
		} else if t, ok := token.Get(); ok {
			return t.String()
		}
	}
	return entities.UnknownField
}

// Version returns the marketing version, else the build number
func (r *identityMetadataReader) Version(ctx context.Context) string {
	return firstField(r.bundleInfos(ctx),
		func(i *entities.BundleInfo) string { return i.ShortVersion },
		func(i *entities.BundleInfo) string { return i.BuildVersion },
	)
}

// BundleName returns the display name, else the bundle name, else the executable name
func (r *identityMetadataReader) BundleName(ctx context.Context) string {
	return firstField(r.bundleInfos(ctx),
		func(i *entities.BundleInfo) string { return i.BundleDisplayName },
		func(i *entities.BundleInfo) string { return i.BundleName },
		func(i *entities.BundleInfo) string { return i.Executable },
	)
}

func (r *identityMetadataReader) bundleIdentifier(ctx context.Context, infos []*entities.BundleInfo) string {
	id := firstField(infos, func(i *entities.BundleInfo) string { return i.BundleIdentifier })
	if id != entities.UnknownField || r.embedded == nil {
		return id
	}
	signing, err := r.embedded.SigningIdentifier(ctx)
	if err != nil {
		r.logger.Debug("signing identifier unavailable", interfaces.F("error", err))
		return entities.UnknownField
	}
	return signing.OrElse(entities.UnknownField)
}

// bundleInfos returns the on-disk Info.plist followed by the embedded one
func (r *identityMetadataReader) bundleInfos(ctx context.Context) []*entities.BundleInfo {
	var infos []*entities.BundleInfo
	if r.info != nil {
		info, err := r.info.ReadBundleInfo(ctx)
		if err != nil {
			r.logger.Debug("Info.plist unavailable", interfaces.F("error", err))
		} else if i, ok := info.Get(); ok {
			infos = append(infos, i)
		}
	}
	if r.embedded != nil {
		info, err := r.embedded.EmbeddedInfo(ctx)
		if err != nil {
			r.logger.Debug("embedded Info.plist unavailable", interfaces.F("error", err))
		} else if i, ok := info.Get(); ok {
			infos = append(infos, i)
		}
	}
	return infos
}

// firstField returns the first non-empty value over infos, trying each getter per info
func firstField(infos []*entities.BundleInfo, getters ...func(*entities.BundleInfo) string) string {
	for _, info := range infos {
		for _, get := range getters {
			if v := get(info); v != "" {
				return v
			}
		}
	}
	return entities.UnknownField
}
