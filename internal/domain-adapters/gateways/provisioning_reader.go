package gateways

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ochairo/appguard/internal/domain/entities"
	"howett.net/plist"
)

var (
	plistStart = []byte("<?xml")
	plistEnd   = []byte("</plist>")
)

// provisioningDocument mirrors the plist payload of a provisioning profile
type provisioningDocument struct {
	AppIDName            string                 `plist:"AppIDName"`
	Name                 string                 `plist:"Name"`
	UUID                 string                 `plist:"UUID"`
	TeamIdentifier       []string               `plist:"TeamIdentifier"`
	TeamName             string                 `plist:"TeamName"`
	Entitlements         map[string]interface{} `plist:"Entitlements"`
	ProvisionedDevices   []string               `plist:"ProvisionedDevices"`
	ProvisionsAllDevices bool                   `plist:"ProvisionsAllDevices"`
	CreationDate         time.Time              `plist:"CreationDate"`
	ExpirationDate       time.Time              `plist:"ExpirationDate"`
}

// provisioningReader reads the provisioning profile bundled with the install.
// The CMS envelope is not verified; the payload is only used for cross-checking.
type provisioningReader struct {
	path string
}

// NewProvisioningReader creates a reader for the profile at path
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewProvisioningReader(path string) *provisioningReader {
	return &provisioningReader{path: path}
}

// ReadArtifact returns the parsed profile, None when the file does not exist
func (r *provisioningReader) ReadArtifact(_ context.Context) (entities.Optional[*entities.ProvisioningArtifact], error) {
	none := entities.None[*entities.ProvisioningArtifact]()

	//nolint:gosec // G304: path is the bundle's own provisioning profile
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return none, nil
	}
	if err != nil {
		return none, fmt.Errorf("failed to read provisioning profile: %w", err)
	}

	artifact, err := ParseProvisioningProfile(data)
	if err != nil {
		return none, err
	}
	return entities.Some(artifact), nil
}

// ReadSigningIdentityToken returns the profile token, None when no profile is bundled
func (r *provisioningReader) ReadSigningIdentityToken(ctx context.Context) (entities.Optional[entities.SigningIdentityToken], error) {
	artifact, err := r.ReadArtifact(ctx)
	if err != nil {
		return entities.None[entities.SigningIdentityToken](), err
	}
	a, ok := artifact.Get()
	if !ok {
		return entities.None[entities.SigningIdentityToken](), nil
	}
	return entities.Some(a.Token), nil
}

// ParseProvisioningProfile extracts the plist payload from a signed profile and
// decodes it. Any failure wraps entities.ErrMalformedProvisioning.
func ParseProvisioningProfile(data []byte) (*entities.ProvisioningArtifact, error) {
	payload, err := extractPlistPayload(data)
	if err != nil {
		return nil, err
	}

	var doc provisioningDocument
	if _, err := plist.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrMalformedProvisioning, err)
	}

	token, err := profileToken(&doc)
	if err != nil {
		return nil, err
	}

	return &entities.ProvisioningArtifact{
		Name:                 doc.Name,
		UUID:                 doc.UUID,
		AppIDName:            doc.AppIDName,
		TeamName:             doc.TeamName,
		TeamIdentifiers:      doc.TeamIdentifier,
		Entitlements:         doc.Entitlements,
		ProvisionedDevices:   doc.ProvisionedDevices,
		ProvisionsAllDevices: doc.ProvisionsAllDevices,
		CreationDate:         doc.CreationDate,
		ExpirationDate:       doc.ExpirationDate,
		Token:                token,
	}, nil
}

func extractPlistPayload(data []byte) ([]byte, error) {
	start := bytes.Index(data, plistStart)
	if start < 0 {
		return nil, fmt.Errorf("%w: no plist payload", entities.ErrMalformedProvisioning)
	}
	end := bytes.Index(data[start:], plistEnd)
	if end < 0 {
		return nil, fmt.Errorf("%w: unterminated plist payload", entities.ErrMalformedProvisioning)
	}
	return data[start : start+end+len(plistEnd)], nil
}

// profileToken prefers the TeamIdentifier array and falls back to the entitlements
func profileToken(doc *provisioningDocument) (entities.SigningIdentityToken, error) {
	candidate := ""
	if len(doc.TeamIdentifier) > 0 {
		candidate = doc.TeamIdentifier[0]
	} else if team, ok := doc.Entitlements["com.apple.developer.team-identifier"].(string); ok {
		candidate = team
	}
	if candidate == "" {
		return "", fmt.Errorf("%w: no team identifier", entities.ErrMalformedProvisioning)
	}
	token, err := entities.ParseSigningIdentityToken(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %v", entities.ErrMalformedProvisioning, err)
	}
	return token, nil
}
