package gateways

import (
	"strings"

	"github.com/ochairo/appguard/internal/domain/interfaces/gateways"
)

// DefaultSchemeHandlers maps jailbreak-manager URL schemes to the app bundles that register them
var DefaultSchemeHandlers = map[string][]string{
	"cydia":     {"/Applications/Cydia.app", "/var/jb/Applications/Cydia.app"},
	"sileo":     {"/Applications/Sileo.app", "/var/jb/Applications/Sileo.app"},
	"zbra":      {"/Applications/Zebra.app", "/var/jb/Applications/Zebra.app"},
	"filza":     {"/Applications/Filza.app", "/var/jb/Applications/Filza.app"},
	"undecimus": {"/Applications/unc0ver.app"},
	"activator": {"/Library/Activator", "/var/jb/Library/Activator"},
}

// urlCapabilityProber resolves a scheme to its handler bundles and checks whether one is installed
type urlCapabilityProber struct {
	files    gateways.FileProber
	handlers map[string][]string
}

// NewURLCapabilityProber creates a prober. A nil handlers map selects DefaultSchemeHandlers.
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewURLCapabilityProber(files gateways.FileProber, handlers map[string][]string) *urlCapabilityProber {
	if handlers == nil {
		handlers = DefaultSchemeHandlers
	}
	return &urlCapabilityProber{files: files, handlers: handlers}
}

// CanOpenURL reports whether a handler for scheme is installed. Unknown schemes have no handler.
func (p *urlCapabilityProber) CanOpenURL(scheme string) (bool, error) {
	scheme = strings.ToLower(strings.TrimSuffix(scheme, "://"))
	for _, bundle := range p.handlers[scheme] {
		ok, err := p.files.Exists(bundle)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
