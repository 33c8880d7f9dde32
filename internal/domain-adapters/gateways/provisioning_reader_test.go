package gateways

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ochairo/appguard/internal/domain-adapters/gateways/fixtures"
	"github.com/ochairo/appguard/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestParseProvisioningProfile(t *testing.T) {
	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		profile     fixtures.Profile
		wantToken   string
		wantChannel entities.DistributionChannel
	}{
		{
			name:        "app store",
			profile:     fixtures.Profile{Name: "Moon Store", TeamID: teamA, Expiration: expiry},
			wantToken:   teamA,
			wantChannel: entities.ChannelAppStore,
		},
		{
			name:        "development",
			profile:     fixtures.Profile{Name: "Moon Dev", TeamID: teamA, GetTaskAllow: true, ProvisionedDevices: []string{"00008030-001A"}},
			wantToken:   teamA,
			wantChannel: entities.ChannelDevelopment,
		},
		{
			name:        "ad hoc",
			profile:     fixtures.Profile{Name: "Moon AdHoc", TeamID: teamA, ProvisionedDevices: []string{"00008030-001A", "00008030-002B"}},
			wantToken:   teamA,
			wantChannel: entities.ChannelAdHoc,
		},
		{
			name:        "enterprise",
			profile:     fixtures.Profile{Name: "Moon InHouse", TeamID: teamA, ProvisionsAllDevices: true},
			wantToken:   teamA,
			wantChannel: entities.ChannelEnterprise,
		},
		{
			name:        "team from entitlements",
			profile:     fixtures.Profile{Name: "Moon Store", EntitlementsTeamID: teamB},
			wantToken:   teamB,
			wantChannel: entities.ChannelAppStore,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			artifact, err := ParseProvisioningProfile(tt.profile.Build())
			require.NoError(t, err)

			assert.Equal(t, tt.profile.Name, artifact.Name)
			assert.Equal(t, "Moon", artifact.AppIDName)
			assert.Equal(t, tt.wantToken, artifact.Token.String())
			assert.Equal(t, tt.wantChannel, artifact.Channel())
			assert.Equal(t, tt.profile.Expiration.IsZero(), artifact.ExpirationDate.IsZero())
		})
	}
}

func TestParseProvisioningProfile_Expiry(t *testing.T) {
	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	artifact, err := ParseProvisioningProfile(fixtures.Profile{Name: "p", TeamID: teamA, Expiration: expiry}.Build())
	require.NoError(t, err)

	assert.True(t, artifact.ExpirationDate.Equal(expiry))
	assert.False(t, artifact.Expired(expiry.Add(-time.Hour)))
	assert.True(t, artifact.Expired(expiry.Add(time.Hour)))
}

func TestParseProvisioningProfile_Malformed(t *testing.T) {
	valid := fixtures.Profile{Name: "p", TeamID: teamA}.Build()

	tests := map[string][]byte{
		"empty":               {},
		"no payload":          []byte{0x30, 0x82, 0x01, 0x00},
		"unterminated":        valid[:len(valid)-40],
		"no team":             fixtures.Profile{Name: "p"}.Build(),
		"invalid team format": fixtures.Profile{Name: "p", TeamID: "abc"}.Build(),
		"not a plist":         []byte(`<?xml version="1.0"?><html></html></plist>`),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseProvisioningProfile(data)
			require.Error(t, err)
			assert.ErrorIs(t, err, entities.ErrMalformedProvisioning)
		})
	}
}

func TestProvisioningReader(t *testing.T) {
	ctx := context.Background()

	t.Run("missing profile is absent", func(t *testing.T) {
		reader := NewProvisioningReader(filepath.Join(t.TempDir(), entities.DefaultProvisioningProfile))

		artifact, err := reader.ReadArtifact(ctx)
		require.NoError(t, err)
		assert.False(t, artifact.IsPresent())

		token, err := reader.ReadSigningIdentityToken(ctx)
		require.NoError(t, err)
		assert.False(t, token.IsPresent())
	})

	t.Run("present profile", func(t *testing.T) {
		path := writeFile(t, entities.DefaultProvisioningProfile, fixtures.Profile{Name: "p", TeamID: teamA}.Build())
		reader := NewProvisioningReader(path)

		token, err := reader.ReadSigningIdentityToken(ctx)
		require.NoError(t, err)
		got, ok := token.Get()
		require.True(t, ok)
		assert.Equal(t, teamA, got.String())
	})

	t.Run("corrupt profile", func(t *testing.T) {
		path := writeFile(t, entities.DefaultProvisioningProfile, []byte("garbage"))
		reader := NewProvisioningReader(path)

		_, err := reader.ReadSigningIdentityToken(ctx)
		assert.ErrorIs(t, err, entities.ErrMalformedProvisioning)
	})

	t.Run("unreadable path", func(t *testing.T) {
		reader := NewProvisioningReader(t.TempDir())

		_, err := reader.ReadArtifact(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, entities.ErrMalformedProvisioning)
	})
}

// FuzzParseProvisioningProfile checks that arbitrary profile bytes never panic.
//
// Run with: go test -fuzz=FuzzParseProvisioningProfile -fuzztime=30s
func FuzzParseProvisioningProfile(f *testing.F) {
	f.Add(fixtures.Profile{Name: "p", TeamID: teamA}.Build())
	f.Add([]byte("<?xml</plist>"))
	f.Add([]byte{})

	f.Fuzz(func(_ *testing.T, data []byte) {
		_, _ = ParseProvisioningProfile(data)
	})
}

func TestBundleInfoReader(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes keys", func(t *testing.T) {
		path := writeFile(t, "Info.plist", fixtures.InfoPlist("com.moon.app", "2.4.0", "240", "Moon"))

		info, err := NewBundleInfoReader(path).ReadBundleInfo(ctx)
		require.NoError(t, err)
		got, ok := info.Get()
		require.True(t, ok)
		assert.Equal(t, "com.moon.app", got.BundleIdentifier)
		assert.Equal(t, "2.4.0", got.ShortVersion)
		assert.Equal(t, "240", got.BuildVersion)
		assert.Equal(t, "Moon", got.BundleDisplayName)
		assert.Equal(t, "Moon", got.Executable)
	})

	t.Run("missing file", func(t *testing.T) {
		info, err := NewBundleInfoReader(filepath.Join(t.TempDir(), "Info.plist")).ReadBundleInfo(ctx)
		require.NoError(t, err)
		assert.False(t, info.IsPresent())
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := writeFile(t, "Info.plist", []byte("<?xml version=\"1.0\"?><plist><dict><key>"))
		_, err := NewBundleInfoReader(path).ReadBundleInfo(ctx)
		assert.Error(t, err)
	})
}
