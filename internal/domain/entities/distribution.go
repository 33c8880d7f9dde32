package entities

// DistributionChannel is how a build reached the device
type DistributionChannel string

// Distribution channels
const (
	ChannelAppStore    DistributionChannel = "app-store"
	ChannelAdHoc       DistributionChannel = "ad-hoc"
	ChannelEnterprise  DistributionChannel = "enterprise"
	ChannelDevelopment DistributionChannel = "development"
)

// ShipsUnencrypted reports whether builds on this channel are legitimately unencrypted
func (c DistributionChannel) ShipsUnencrypted() bool {
	switch c {
	case ChannelAdHoc, ChannelEnterprise, ChannelDevelopment:
		return true
	default:
		return false
	}
}

// EncryptionPolicy decides how the encryption descriptor feeds the verdict
type EncryptionPolicy string

// Encryption policies
const (
	// EncryptionStrict requires an encrypted binary on every channel
	EncryptionStrict EncryptionPolicy = "strict"
	// EncryptionChannelAware requires the descriptor everywhere and a non-zero
	// cryptid unless a team-pinned install's profile declares an unencrypted channel
	EncryptionChannelAware EncryptionPolicy = "channel-aware"
	// EncryptionPermissive ignores encryption entirely
	EncryptionPermissive EncryptionPolicy = "permissive"
)

// Satisfied reports whether info passes the policy for the given channel.
// channel is absent when no provisioning artifact is bundled or the binary
// token does not match the configured team pin.
func (p EncryptionPolicy) Satisfied(info EncryptionInfo, channel Optional[DistributionChannel]) bool {
	switch p {
	case EncryptionPermissive:
		return true
	case EncryptionChannelAware:
		if !info.Present {
			return false
		}
		if c, ok := channel.Get(); ok && c.ShipsUnencrypted() {
			return true
		}
		return info.Encrypted()
	default:
		return info.Encrypted()
	}
}
