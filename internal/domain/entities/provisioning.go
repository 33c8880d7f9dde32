package entities

import (
	"errors"
	"time"
)

// DefaultProvisioningProfile is the bundle-relative path of the install-time profile
const DefaultProvisioningProfile = "embedded.mobileprovision"

// ErrMalformedProvisioning is returned when a provisioning artifact exists but cannot be parsed
var ErrMalformedProvisioning = errors.New("malformed provisioning artifact")

// ProvisioningArtifact represents the signed profile bundled with an install
type ProvisioningArtifact struct {
	Name                 string
	UUID                 string
	AppIDName            string
	TeamName             string
	TeamIdentifiers      []string
	Entitlements         map[string]interface{}
	ProvisionedDevices   []string
	ProvisionsAllDevices bool
	CreationDate         time.Time
	ExpirationDate       time.Time
	Token                SigningIdentityToken
}

// Channel infers the distribution channel the profile was issued for
func (p *ProvisioningArtifact) Channel() DistributionChannel {
	if allow, ok := p.Entitlements["get-task-allow"].(bool); ok && allow {
		return ChannelDevelopment
	}
	if p.ProvisionsAllDevices {
		return ChannelEnterprise
	}
	if len(p.ProvisionedDevices) > 0 {
		return ChannelAdHoc
	}
	return ChannelAppStore
}

// Expired reports whether the profile is past its expiration date
func (p *ProvisioningArtifact) Expired(now time.Time) bool {
	return !p.ExpirationDate.IsZero() && now.After(p.ExpirationDate)
}
