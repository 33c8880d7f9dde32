package entities

import (
	"fmt"
	"regexp"
	"strings"
)

// SigningIdentityToken identifies the organization that signed a binary or profile
type SigningIdentityToken string

// SigningIdentityTokenLength is the fixed token length
const SigningIdentityTokenLength = 10

var tokenPattern = regexp.MustCompile(`^[A-Z0-9]{10}$`)

// TokenScanPattern finds a token candidate inside raw signature bytes
var TokenScanPattern = regexp.MustCompile(`<key>com\.apple\.developer\.team-identifier</key>\s*<string>([A-Z0-9]{10})</string>`)

// ParseSigningIdentityToken validates the fixed token format
func ParseSigningIdentityToken(s string) (SigningIdentityToken, error) {
	s = strings.TrimSpace(s)
	if !tokenPattern.MatchString(s) {
		return "", fmt.Errorf("invalid signing identity token %q", s)
	}
	return SigningIdentityToken(s), nil
}

// IsValidSigningIdentityToken reports whether s has the fixed token format
func IsValidSigningIdentityToken(s string) bool {
	return tokenPattern.MatchString(s)
}

func (t SigningIdentityToken) String() string {
	return string(t)
}
